// Package media stages relayed attachments on local disk.
//
// A StagedFile lives for exactly one relay operation: it is written by
// Stage, opened by the outbound client, and removed by Release on every
// exit path. Names carry a random prefix so concurrent relays in both
// directions never collide.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinyland-inc/topicbridge/pkg/logger"
	"github.com/tinyland-inc/topicbridge/pkg/utils"
)

// ErrTooLarge is returned when an attachment exceeds the store's size cap.
var ErrTooLarge = errors.New("attachment too large")

const fallbackName = "attachment"

type Store struct {
	dir      string
	maxBytes int64

	mu   sync.Mutex
	live map[string]string // id -> path
}

// NewStore creates the staging directory if needed. maxBytes <= 0 disables
// the size cap.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, errors.New("media directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		live:     make(map[string]string),
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// MaxBytes is the size cap, or 0 when unlimited.
func (s *Store) MaxBytes() int64 {
	if s.maxBytes < 0 {
		return 0
	}
	return s.maxBytes
}

// Stage copies r into a new file named after name. A context cancelled
// mid-copy aborts staging and leaves nothing behind.
func (s *Store) Stage(ctx context.Context, name string, r io.Reader) (*StagedFile, error) {
	id := uuid.New().String()
	safe := utils.SanitizeFilename(name, fallbackName)
	path := filepath.Join(s.dir, id+"-"+safe)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	src := io.Reader(&ctxReader{ctx: ctx, r: r})
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write staged file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close staged file: %w", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	s.mu.Lock()
	s.live[id] = path
	s.mu.Unlock()

	return &StagedFile{ID: id, Name: safe, Size: n, path: path, store: s}, nil
}

// Resolve returns the on-disk path of a staged file that has not been
// released yet.
func (s *Store) Resolve(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.live[id]
	return p, ok
}

// Live reports how many staged files are currently held.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Sweep removes files left behind by a previous process that died between
// Stage and Release. Call it before any relay starts.
func (s *Store) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read media dir: %w", err)
	}

	s.mu.Lock()
	held := make(map[string]bool, len(s.live))
	for _, p := range s.live {
		held[p] = true
	}
	s.mu.Unlock()

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !looksStaged(e.Name()) {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		if held[p] {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.WarnCF("media", "Failed to remove stale staged file", map[string]any{
				"path":  p,
				"error": err.Error(),
			})
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) release(id string) error {
	s.mu.Lock()
	p, ok := s.live[id]
	delete(s.live, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

// looksStaged matches the "<uuid>-<name>" pattern Stage produces.
func looksStaged(name string) bool {
	if len(name) < 37 || name[36] != '-' {
		return false
	}
	_, err := uuid.Parse(name[:36])
	return err == nil
}

// StagedFile is a temporary local copy of one attachment.
type StagedFile struct {
	ID   string
	Name string
	Size int64

	path  string
	store *Store
	once  sync.Once
	err   error
}

// Open returns a reader over the staged bytes. The caller closes it.
func (f *StagedFile) Open() (*os.File, error) {
	if _, ok := f.store.Resolve(f.ID); !ok {
		return nil, fmt.Errorf("staged file %s already released", f.ID)
	}
	return os.Open(f.path)
}

// ContentType guesses a MIME type from the file name; empty when unknown.
func (f *StagedFile) ContentType() string {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".pdf":
		return "application/pdf"
	}
	return ""
}

// Release deletes the staged file. It is safe to call more than once.
func (f *StagedFile) Release() error {
	f.once.Do(func() {
		f.err = f.store.release(f.ID)
	})
	return f.err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
