// Package config loads the client's configuration with koanf: compiled
// defaults, overlaid by TODO_-prefixed environment variables, then
// validated.
package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/todoclient/internal/domain"
)

// EnvPrefix prefixes every environment variable read by Load. A double
// underscore separates nesting levels: TODO_API__BASE_URL sets
// api.base_url.
const EnvPrefix = "TODO_"

// Token store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

// Config holds all client configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	API      APIConfig      `koanf:"api"`
	Session  SessionConfig  `koanf:"session"`
	Store    StoreConfig    `koanf:"store"`
	Redis    RedisConfig    `koanf:"redis"`
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	AWS      AWSConfig      `koanf:"aws"`
	OTEL     OTELConfig     `koanf:"otel"`
}

// APIConfig locates the todo backend.
type APIConfig struct {
	BaseURL   string        `koanf:"base_url"`
	AuthPath  string        `koanf:"auth_path"`
	TodosPath string        `koanf:"todos_path"`
	Timeout   time.Duration `koanf:"timeout"` // bounds every request
}

// SessionConfig tunes the session coordinator.
type SessionConfig struct {
	RefreshThreshold  time.Duration `koanf:"refresh_threshold"`
	LogoutTimeout     time.Duration `koanf:"logout_timeout"`
	KeepAliveInterval time.Duration `koanf:"keepalive_interval"`
}

// StoreConfig selects where the session is persisted.
type StoreConfig struct {
	Backend   string `koanf:"backend"` // memory, file, redis or dynamodb
	Namespace string `koanf:"namespace"`
	FilePath  string `koanf:"file_path"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
	// TTL expires stored session entries; zero keeps them until logout.
	TTL time.Duration `koanf:"ttl"`
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint string        `koanf:"endpoint"` // empty uses the default AWS endpoint
	Table    string        `koanf:"table"`
	Timeout  time.Duration `koanf:"timeout"`
	// TTL sets the items' ttl attribute; zero keeps them until logout.
	TTL time.Duration `koanf:"ttl"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region string `koanf:"region"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // empty disables OTLP export
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "warn",
		LogFormat:   "text",

		API: APIConfig{
			BaseURL:   domain.DefaultBaseURL,
			AuthPath:  domain.DefaultAuthPath,
			TodosPath: domain.DefaultTodosPath,
			Timeout:   domain.DefaultRequestTimeout,
		},
		Session: SessionConfig{
			RefreshThreshold:  domain.DefaultRefreshThreshold,
			LogoutTimeout:     domain.DefaultLogoutTimeout,
			KeepAliveInterval: domain.DefaultKeepAliveInterval,
		},
		Store: StoreConfig{
			Backend:   BackendFile,
			Namespace: domain.DefaultStoreNamespace,
			FilePath:  defaultSessionFile(),
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Timeout: domain.RedisTimeout,
			TTL:     domain.DefaultSessionTTL,
		},
		DynamoDB: DynamoDBConfig{
			Table:   "todo-sessions",
			Timeout: domain.DynamoDBTimeout,
			TTL:     domain.DefaultSessionTTL,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		OTEL: OTELConfig{
			ServiceName: "todo",
			Insecure:    true,
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".todo", "session.json")
	}
	return filepath.Join(dir, "todo", "session.json")
}

// Load builds the configuration: compiled defaults, then environment
// variables, then validation. Invalid or missing required values fail
// with domain.ErrInvalidInput or domain.ErrConfigRequired.
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps TODO_API__BASE_URL to api.base_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks the configuration for values the client cannot run
// with. It is exported so command-line overrides can be re-checked.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url", domain.ErrConfigRequired)
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api.base_url %q is not an absolute URL", domain.ErrInvalidInput, c.API.BaseURL)
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{"api.timeout", c.API.Timeout},
		{"session.refresh_threshold", c.Session.RefreshThreshold},
		{"session.logout_timeout", c.Session.LogoutTimeout},
		{"session.keepalive_interval", c.Session.KeepAliveInterval},
	}
	for _, d := range durations {
		if d.val <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", domain.ErrInvalidInput, d.key, d.val)
		}
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("%w: store.file_path", domain.ErrConfigRequired)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
		}
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("%w: dynamodb.table", domain.ErrConfigRequired)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", domain.ErrInvalidInput, c.Store.Backend)
	}
	return nil
}
