package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/config"
	"github.com/aelexs/todoclient/internal/domain"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "/api/v1/auth", cfg.API.AuthPath)
	assert.Equal(t, "/api/v1/todos", cfg.API.TodosPath)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)

	assert.Equal(t, 5*time.Minute, cfg.Session.RefreshThreshold)
	assert.Equal(t, 5*time.Second, cfg.Session.LogoutTimeout)
	assert.Equal(t, time.Minute, cfg.Session.KeepAliveInterval)

	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, "todo", cfg.Store.Namespace)
	assert.Contains(t, cfg.Store.FilePath, "session.json")

	assert.Equal(t, domain.RedisTimeout, cfg.Redis.Timeout)
	assert.Equal(t, domain.DefaultSessionTTL, cfg.Redis.TTL)
	assert.Equal(t, domain.DefaultSessionTTL, cfg.DynamoDB.TTL)
	assert.Equal(t, domain.DynamoDBTimeout, cfg.DynamoDB.Timeout)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "todo", cfg.OTEL.ServiceName)
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("TODO_ENVIRONMENT", "prod")
	t.Setenv("TODO_LOG_LEVEL", "debug")
	t.Setenv("TODO_API__BASE_URL", "https://todo.example.com")
	t.Setenv("TODO_API__TIMEOUT", "30s")
	t.Setenv("TODO_SESSION__REFRESH_THRESHOLD", "2m")
	t.Setenv("TODO_STORE__BACKEND", "redis")
	t.Setenv("TODO_STORE__NAMESPACE", "work")
	t.Setenv("TODO_REDIS__ADDR", "redis:6379")
	t.Setenv("TODO_REDIS__DB", "3")
	t.Setenv("TODO_OTEL__INSECURE", "false")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://todo.example.com", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Session.RefreshThreshold)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "work", cfg.Store.Namespace)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.False(t, cfg.OTEL.Insecure)
}

func TestLoad_IgnoresUnprefixedVariables(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
		wantKey string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{"TODO_STORE__BACKEND": "sqlite"},
			wantErr: domain.ErrInvalidInput,
			wantKey: "store.backend",
		},
		{
			name:    "relative base URL",
			env:     map[string]string{"TODO_API__BASE_URL": "localhost"},
			wantErr: domain.ErrInvalidInput,
			wantKey: "api.base_url",
		},
		{
			name:    "empty base URL",
			env:     map[string]string{"TODO_API__BASE_URL": ""},
			wantErr: domain.ErrConfigRequired,
			wantKey: "api.base_url",
		},
		{
			name:    "zero timeout",
			env:     map[string]string{"TODO_API__TIMEOUT": "0s"},
			wantErr: domain.ErrInvalidInput,
			wantKey: "api.timeout",
		},
		{
			name:    "negative keepalive",
			env:     map[string]string{"TODO_SESSION__KEEPALIVE_INTERVAL": "-1m"},
			wantErr: domain.ErrInvalidInput,
			wantKey: "session.keepalive_interval",
		},
		{
			name:    "redis without addr",
			env:     map[string]string{"TODO_STORE__BACKEND": "redis", "TODO_REDIS__ADDR": ""},
			wantErr: domain.ErrConfigRequired,
			wantKey: "redis.addr",
		},
		{
			name:    "dynamodb without table",
			env:     map[string]string{"TODO_STORE__BACKEND": "dynamodb", "TODO_DYNAMODB__TABLE": ""},
			wantErr: domain.ErrConfigRequired,
			wantKey: "dynamodb.table",
		},
		{
			name:    "file without path",
			env:     map[string]string{"TODO_STORE__FILE_PATH": ""},
			wantErr: domain.ErrConfigRequired,
			wantKey: "store.file_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(context.Background())

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestValidate_MemoryBackendNeedsNothingElse(t *testing.T) {
	t.Setenv("TODO_STORE__BACKEND", "memory")
	t.Setenv("TODO_STORE__FILE_PATH", "")
	t.Setenv("TODO_REDIS__ADDR", "")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
}
