package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host        string   `json:"host" yaml:"host"`
	Port        int      `json:"port" yaml:"port"`
	Subpath     string   `json:"subpath" yaml:"subpath"`
	JWTSecret   string   `json:"jwtSecret" yaml:"jwtSecret"`
	RequireAuth bool     `json:"require_auth" yaml:"require_auth"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is "postgres" (default) or "sqlite".
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// LLMConfig selects and tunes the reasoning backend.
type LLMConfig struct {
	Provider              string  `json:"provider" yaml:"provider"`
	URL                   string  `json:"url" yaml:"url"`
	Model                 string  `json:"model" yaml:"model"`
	APIKey                string  `json:"api_key" yaml:"api_key"`
	MaxTokens             int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature           float64 `json:"temperature" yaml:"temperature"`
	TimeoutSeconds        int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxConcurrent         int     `json:"max_concurrent" yaml:"max_concurrent"`
	BreakerThreshold      int     `json:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerTimeoutSeconds int     `json:"breaker_timeout_seconds" yaml:"breaker_timeout_seconds"`
}

type DiscoveryConfig struct {
	MaxConversationHistory int     `json:"max_conversation_history" yaml:"max_conversation_history"`
	CompletionThreshold    float64 `json:"completion_threshold" yaml:"completion_threshold"`
	HistoryCharLimit       int     `json:"history_char_limit" yaml:"history_char_limit"`
	ExtractionWindow       int     `json:"extraction_window" yaml:"extraction_window"`
	CacheSize              int     `json:"cache_size" yaml:"cache_size"`
	LockWaitSeconds        int     `json:"lock_wait_seconds" yaml:"lock_wait_seconds"`
}

type SessionsConfig struct {
	RetentionDays        int `json:"retention_days" yaml:"retention_days"`
	CleanupIntervalHours int `json:"cleanup_interval_hours" yaml:"cleanup_interval_hours"`
	LockTTLSeconds       int `json:"lock_ttl_seconds" yaml:"lock_ttl_seconds"`
}

// ArchiveConfig points at an S3-compatible bucket for expired sessions.
type ArchiveConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Sessions  SessionsConfig  `json:"sessions" yaml:"sessions"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads the config file from disk (singleton). Files ending in
// .yaml or .yml are parsed as YAML, anything else as JSON. Values from the
// environment (and an optional .env file) override the file.
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(raw, &c)
		default:
			err = json.Unmarshal(raw, &c)
		}
		if err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}

		// a missing .env is fine
		_ = godotenv.Load()
		applyEnv(&c)
		c.ApplyDefaults()

		if err := c.Validate(); err != nil {
			cfgErr = err
			return
		}
		cfg = &c
	})
	return cfg, cfgErr
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}

func applyEnv(c *Config) {
	set := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set("REBASE_JWT_SECRET", &c.Server.JWTSecret)
	set("REBASE_DATABASE_DSN", &c.Database.DSN)
	set("REBASE_DATABASE_DRIVER", &c.Database.Driver)
	set("REBASE_REDIS_ADDR", &c.Redis.Addr)
	set("REBASE_LLM_PROVIDER", &c.LLM.Provider)
	set("REBASE_LLM_URL", &c.LLM.URL)
	set("REBASE_LLM_MODEL", &c.LLM.Model)
	set("GEMINI_API_KEY", &c.LLM.APIKey)
	set("REBASE_ARCHIVE_ACCESS_KEY", &c.Archive.AccessKey)
	set("REBASE_ARCHIVE_SECRET_KEY", &c.Archive.SecretKey)
}

// ApplyDefaults fills every unset tunable.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.LLM.MaxConcurrent == 0 {
		c.LLM.MaxConcurrent = 2
	}
	if c.LLM.BreakerThreshold == 0 {
		c.LLM.BreakerThreshold = 5
	}
	if c.LLM.BreakerTimeoutSeconds == 0 {
		c.LLM.BreakerTimeoutSeconds = 60
	}

	if c.Discovery.MaxConversationHistory == 0 {
		c.Discovery.MaxConversationHistory = 50
	}
	if c.Discovery.CompletionThreshold == 0 {
		c.Discovery.CompletionThreshold = 0.7
	}
	if c.Discovery.HistoryCharLimit == 0 {
		c.Discovery.HistoryCharLimit = 200
	}
	if c.Discovery.ExtractionWindow == 0 {
		c.Discovery.ExtractionWindow = 3
	}
	if c.Discovery.CacheSize == 0 {
		c.Discovery.CacheSize = 1024
	}
	if c.Discovery.LockWaitSeconds == 0 {
		c.Discovery.LockWaitSeconds = 10
	}

	if c.Sessions.RetentionDays == 0 {
		c.Sessions.RetentionDays = 30
	}
	if c.Sessions.CleanupIntervalHours == 0 {
		c.Sessions.CleanupIntervalHours = 24
	}
	if c.Sessions.LockTTLSeconds == 0 {
		c.Sessions.LockTTLSeconds = 120
	}

	if c.Archive.Bucket == "" {
		c.Archive.Bucket = "rebase-sessions"
	}
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.JWTSecret == "" {
		return errors.New("jwtSecret must be set in config")
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn must be set in config")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Archive.Enabled && c.Archive.Endpoint == "" {
		return errors.New("archive endpoint must be set when archive is enabled")
	}
	return nil
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c LLMConfig) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSeconds) * time.Second
}

func (c DiscoveryConfig) LockWait() time.Duration {
	return time.Duration(c.LockWaitSeconds) * time.Second
}

func (c SessionsConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c SessionsConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalHours) * time.Hour
}

func (c SessionsConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}
