// Package config loads and validates plugin configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Poll     PollConfig     `mapstructure:"poll"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// BackendConfig locates the crawler backend.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// PollConfig governs the completion poll loop.
type PollConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	IntervalMs     int `mapstructure:"interval_ms"`
	HeartbeatEvery int `mapstructure:"heartbeat_every"`
}

// ArtifactConfig governs result file selection.
type ArtifactConfig struct {
	NameMarker   string `mapstructure:"name_marker"`
	PreviewLimit int    `mapstructure:"preview_limit"`
	FileType     string `mapstructure:"file_type"`
}

// LarkConfig holds Base open-api credentials. When AppToken is empty the
// service falls back to the in-memory table, which is useful for local runs.
type LarkConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	AppToken  string `mapstructure:"app_token"`
	TableID   string `mapstructure:"table_id"`
}

// SessionConfig locates the cookie store.
type SessionConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("XHSPLUGIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("poll.max_attempts", 60)
	v.SetDefault("poll.interval_ms", 2000)
	v.SetDefault("poll.heartbeat_every", 5)
	v.SetDefault("artifact.name_marker", "detail_contents")
	v.SetDefault("artifact.preview_limit", 2000)
	v.SetDefault("artifact.file_type", "json")
	v.SetDefault("lark.base_url", "https://open.feishu.cn")
	v.SetDefault("session.db_path", "session.db")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must be set")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max_attempts must be > 0")
	}
	if c.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll.interval_ms must be > 0")
	}
	if c.Poll.HeartbeatEvery <= 0 {
		return fmt.Errorf("poll.heartbeat_every must be > 0")
	}
	if c.Artifact.PreviewLimit <= 0 {
		return fmt.Errorf("artifact.preview_limit must be > 0")
	}
	if c.Lark.AppToken != "" {
		if c.Lark.AppID == "" || c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_id and lark.app_secret must be set when lark.app_token is set")
		}
		if c.Lark.TableID == "" {
			return fmt.Errorf("lark.table_id must be set when lark.app_token is set")
		}
	}
	return nil
}

// PollInterval converts the configured interval into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMs) * time.Millisecond
}
