package utils

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ValidateFilename validates that the given attachment filename is non-empty
// and does not contain path separators ("/", "\\") or ".." so it cannot escape
// the staging directory.
func ValidateFilename(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("filename is required and must be a non-empty string")
	}
	if strings.ContainsAny(trimmed, "/\\") || strings.Contains(trimmed, "..") {
		return errors.New("filename must not contain path separators or '..'")
	}
	return nil
}

// MaxFilenameBytes bounds sanitized names, leaving room under the usual
// 255 byte NAME_MAX for the prefix the media store adds.
const MaxFilenameBytes = 200

// SanitizeFilename reduces a remote-supplied name to a safe base name of
// at most MaxFilenameBytes bytes. Names that are still invalid afterwards
// are replaced by fallback.
func SanitizeFilename(name, fallback string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == ".." || name == "/" {
		return fallback
	}
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = capFilename(name, MaxFilenameBytes)
	if ValidateFilename(name) != nil {
		return fallback
	}
	return name
}

// capFilename cuts the base name at a rune boundary so name fits in limit
// bytes, keeping a short extension intact.
func capFilename(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= limit/2 {
		ext = ""
	}
	base := name[:len(name)-len(ext)]
	keep := limit - len(ext)
	for keep > 0 && !utf8.RuneStart(base[keep]) {
		keep--
	}
	return strings.TrimRight(base[:keep], ".") + ext
}

// Truncate shortens s to at most maxRunes runes, marking the cut with an
// ellipsis. A non-positive limit means no limit.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if maxRunes == 1 {
		return "…"
	}
	return string(runes[:maxRunes-1]) + "…"
}
