package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

type Config struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	AI      AIConfig      `yaml:"ai"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

type YouTubeConfig struct {
	APIKey            string  `yaml:"api_key"`
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	TokenFile         string  `yaml:"token_file"`
	MaxComments       int     `yaml:"max_comments"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
}

// UsesOAuth reports whether the client should authenticate with a stored
// OAuth token instead of an API key.
func (c YouTubeConfig) UsesOAuth() bool {
	return c.APIKey == "" && c.ClientID != "" && c.ClientSecret != ""
}

type AIConfig struct {
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	Model        string        `yaml:"model"`
	BatchSize    int           `yaml:"batch_size"`
	Timeout      time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Driver        string        `yaml:"driver"` // memory, sqlite or redis
	DataDir       string        `yaml:"data_dir"`
	Persist       bool          `yaml:"persist"`
	RedisURL      string        `yaml:"redis_url"`
	TTL           time.Duration `yaml:"ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	explicit := configFile != ""
	if !explicit {
		configFile = defaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// env-only deployments run without a config file
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = os.Getenv("REDIS_URL")
	}
	if c.Server.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.MaxComments == 0 {
		c.YouTube.MaxComments = 1000
	}
	if c.YouTube.RequestsPerSecond == 0 {
		c.YouTube.RequestsPerSecond = 5
	}
	if c.YouTube.MaxRetries == 0 {
		c.YouTube.MaxRetries = 2
	}

	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.BatchSize == 0 {
		c.AI.BatchSize = 500
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SweepSchedule == "" {
		c.Storage.SweepSchedule = "0 0 * * * *" // hourly
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 3 * time.Minute // a cold analysis can take a while
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func (c *Config) validate() error {
	if c.YouTube.APIKey == "" && !c.YouTube.UsesOAuth() {
		return fmt.Errorf("YouTube credentials are required (set YOUTUBE_API_KEY or youtube.api_key, or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET)")
	}
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if c.YouTube.MaxComments < 0 {
		return fmt.Errorf("youtube.max_comments must not be negative")
	}
	if c.AI.BatchSize < 0 {
		return fmt.Errorf("ai.batch_size must not be negative")
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis storage requires a URL (set REDIS_URL or storage.redis_url)")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want memory, sqlite or redis)", c.Storage.Driver)
	}
	if c.Storage.TTL < 0 {
		return fmt.Errorf("storage.ttl must not be negative")
	}
	return nil
}
