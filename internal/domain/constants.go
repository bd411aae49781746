package domain

import "time"

// Compiled defaults. Each can be overridden via configuration.
const (
	// Token lifecycle
	DefaultRefreshThreshold  = 5 * time.Minute // refresh when less than this remains
	DefaultKeepAliveInterval = 1 * time.Minute

	// Timeout contracts
	DefaultRequestTimeout = 15 * time.Second // every outbound HTTP call
	DefaultLogoutTimeout  = 5 * time.Second  // best-effort server-side logout
	RedisTimeout          = 2 * time.Second
	DynamoDBTimeout       = 5 * time.Second

	// Graceful shutdown
	ShutdownOTELTimeout = 5 * time.Second

	// Backend REST contract
	DefaultBaseURL   = "http://localhost:8080"
	DefaultAuthPath  = "/api/v1/auth"
	DefaultTodosPath = "/api/v1/todos"

	// Persisted client state
	DefaultStoreNamespace = "todo"
	DefaultSessionTTL     = 7 * 24 * time.Hour // server-side store entries

	// Todo validation limits
	MaxTodoTitleLength       = 255
	MaxTodoDescriptionLength = 1000

	// Credential validation limits
	MinPasswordLength = 6
)
