package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tinyland-inc/topicbridge/pkg/bridge"
	"github.com/tinyland-inc/topicbridge/pkg/config"
	"github.com/tinyland-inc/topicbridge/pkg/logger"
)

const Logo = "🌉"

// ConfigPathEnv overrides the default config file location.
const ConfigPathEnv = "TOPICBRIDGE_CONFIG"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// GetConfigPath resolves the config file: the flag value, then
// $TOPICBRIDGE_CONFIG, then ~/.topicbridge/config.json. The file is optional.
func GetConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".topicbridge", "config.json")
}

func LoadConfig(flag string) (*config.Config, error) {
	return config.LoadConfig(GetConfigPath(flag))
}

// SetupLogging applies the configured level; debug forces DEBUG.
func SetupLogging(cfg *config.Config, debug bool) {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
		return
	}
	level, ok := logger.ParseLevel(cfg.Bridge.LogLevel)
	if !ok {
		logger.WarnCF("config", "Unknown log level, using info", map[string]any{
			"log_level": cfg.Bridge.LogLevel,
		})
	}
	logger.SetLevel(level)
}

// TopicRegistry builds the bridge registry from configured topics.
func TopicRegistry(cfg *config.Config) (*bridge.TopicRegistry, error) {
	entries := make([]bridge.TopicEntry, 0, len(cfg.Topics))
	for _, t := range cfg.Topics {
		entries = append(entries, bridge.TopicEntry{ID: bridge.TopicID(t.ID), Name: t.Name})
	}
	return bridge.NewTopicRegistry(entries)
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
