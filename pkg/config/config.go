package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		result = append(result, flexibleString(v))
	}
	*f = result
	return nil
}

func flexibleString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', 0, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Topics   TopicList      `env:"TOPICS" json:"topics"`
	Bridge   BridgeConfig   `json:"bridge"`
}

type TelegramConfig struct {
	Token     string              `env:"TELEGRAM_BOT_TOKEN"  json:"token"`
	GroupID   int64               `env:"TELEGRAM_GROUP_ID"   json:"group_id"`
	Proxy     string              `env:"TELEGRAM_PROXY"      json:"proxy,omitempty"`
	AllowFrom FlexibleStringSlice `env:"TELEGRAM_ALLOW_FROM" json:"allow_from,omitempty"`

	// APIServer points the bot at a self-hosted Bot API server.
	APIServer string `env:"TELEGRAM_API_SERVER" json:"api_server,omitempty"`
}

type DiscordConfig struct {
	Token          string              `env:"DISCORD_BOT_TOKEN"       json:"token"`
	ServerID       string              `env:"DISCORD_SERVER_ID"       json:"server_id"`
	GeneralChannel string              `env:"DISCORD_GENERAL_CHANNEL" json:"general_channel"`
	AllowFrom      FlexibleStringSlice `env:"DISCORD_ALLOW_FROM"      json:"allow_from,omitempty"`
}

type BridgeConfig struct {
	MediaDir             string `env:"BRIDGE_MEDIA_DIR"              json:"media_dir"`
	BackfillLimit        int    `env:"BRIDGE_BACKFILL_LIMIT"         json:"backfill_limit"` // 0 disables backfill
	MaxAttachmentBytes   int64  `env:"BRIDGE_MAX_ATTACHMENT_BYTES"   json:"max_attachment_bytes"`
	ShutdownGraceSeconds int    `env:"BRIDGE_SHUTDOWN_GRACE_SECONDS" json:"shutdown_grace_seconds"`
	QueueSize            int    `env:"BRIDGE_QUEUE_SIZE"             json:"queue_size"`
	LogLevel             string `env:"BRIDGE_LOG_LEVEL"              json:"log_level"`
}

// ShutdownGrace is how long in-flight relays may run after shutdown starts.
func (b BridgeConfig) ShutdownGrace() time.Duration {
	return time.Duration(b.ShutdownGraceSeconds) * time.Second
}

func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			GeneralChannel: "general",
		},
		Topics: TopicList{},
		Bridge: BridgeConfig{
			MediaDir:             "./temp_media",
			BackfillLimit:        100,
			MaxAttachmentBytes:   25 << 20,
			ShutdownGraceSeconds: 10,
			QueueSize:            100,
			LogLevel:             "info",
		},
	}
}

// LoadConfig builds the configuration from defaults, the JSON file at path
// (skipped when absent) and the environment, in that order. Parse failures
// are reported as a *ConfigError; call Validate or ValidateDiscord before use.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, &ConfigError{Problems: []string{fmt.Sprintf("parse %s: %v", path, err)}}
			}
		case !os.IsNotExist(err):
			return nil, &ConfigError{Problems: []string{fmt.Sprintf("read %s: %v", path, err)}}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks everything the bridge needs to run. All problems are
// reported together.
func (c *Config) Validate() error {
	problems := c.telegramProblems()
	problems = append(problems, c.discordProblems()...)
	problems = append(problems, c.bridgeProblems()...)
	return asConfigError(problems)
}

// ValidateDiscord checks only what channel synchronization needs.
func (c *Config) ValidateDiscord() error {
	return asConfigError(c.discordProblems())
}

func (c *Config) telegramProblems() []string {
	var problems []string
	if strings.TrimSpace(c.Telegram.Token) == "" {
		problems = append(problems, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.GroupID == 0 {
		problems = append(problems, "TELEGRAM_GROUP_ID is required")
	}
	return problems
}

func (c *Config) discordProblems() []string {
	var problems []string
	if strings.TrimSpace(c.Discord.Token) == "" {
		problems = append(problems, "DISCORD_BOT_TOKEN is required")
	}
	if c.Discord.ServerID == "" {
		problems = append(problems, "DISCORD_SERVER_ID is required")
	} else if _, err := strconv.ParseUint(c.Discord.ServerID, 10, 64); err != nil {
		problems = append(problems, fmt.Sprintf("DISCORD_SERVER_ID %q is not a numeric snowflake", c.Discord.ServerID))
	}
	if strings.TrimSpace(c.Discord.GeneralChannel) == "" {
		problems = append(problems, "DISCORD_GENERAL_CHANNEL must not be empty")
	}
	return append(problems, c.Topics.problems(c.Discord.GeneralChannel)...)
}

func (c *Config) bridgeProblems() []string {
	var problems []string
	if c.Bridge.MediaDir == "" {
		problems = append(problems, "BRIDGE_MEDIA_DIR must not be empty")
	}
	if c.Bridge.BackfillLimit < 0 {
		problems = append(problems, "BRIDGE_BACKFILL_LIMIT must not be negative")
	}
	if c.Bridge.ShutdownGraceSeconds < 0 {
		problems = append(problems, "BRIDGE_SHUTDOWN_GRACE_SECONDS must not be negative")
	}
	return problems
}

func asConfigError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ConfigError{Problems: problems}
}

// ConfigError reports invalid or missing configuration. It is fatal at
// startup.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}
