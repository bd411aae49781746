// Package bootstrap provides the shared process lifecycle runner.
// Every command delegates to bootstrap.Run for signal handling, config
// loading, observability init, component wiring, session restoration and
// ordered shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/aelexs/todoclient/internal/auth"
	"github.com/aelexs/todoclient/internal/authapi"
	"github.com/aelexs/todoclient/internal/authstate"
	"github.com/aelexs/todoclient/internal/config"
	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/dynamo"
	"github.com/aelexs/todoclient/internal/observability"
	"github.com/aelexs/todoclient/internal/redis"
	"github.com/aelexs/todoclient/internal/restclient"
	"github.com/aelexs/todoclient/internal/session"
	"github.com/aelexs/todoclient/internal/todos"
	"github.com/aelexs/todoclient/internal/tokenstore"
)

// Params configures one run of the client.
type Params struct {
	// Name identifies the process in logs and telemetry.
	Name    string
	Version string

	// Configure adjusts the loaded configuration, e.g. from command-line
	// flags. The result is validated again.
	Configure func(cfg *config.Config)

	// KeepAlive refreshes the session in the background for as long as
	// the command runs. The command's context is cancelled if the session
	// ends.
	KeepAlive bool

	// LogWriter receives logs. Defaults to os.Stderr.
	LogWriter io.Writer
}

// App is the wired client handed to a command.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *tokenstore.Store
	Session *session.Coordinator
	Auth    *authstate.Distributor
	Todos   *todos.Client
}

// Run executes the client lifecycle around fn: signal handling, config
// loading, observability initialization, wiring, session restoration, and
// graceful shutdown. fn's context is cancelled on SIGINT/SIGTERM.
func Run(ctx context.Context, p Params, fn func(ctx context.Context, app *App) error) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if p.Configure != nil {
		p.Configure(cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: p.Name,
		Environment: cfg.Environment,
		Writer:      p.LogWriter,
	})

	// --- Startup order: telemetry -> token store -> clients ---

	providers, err := observability.Init(ctx, observability.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: p.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		Insecure:       cfg.OTEL.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		otelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), domain.ShutdownOTELTimeout)
		defer cancel()
		if shutdownErr := providers.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("telemetry shutdown failed", slog.String("error", shutdownErr.Error()))
		}
	}()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer func() {
		if closeErr := closeBackend(); closeErr != nil {
			logger.Warn("token store close failed", slog.String("error", closeErr.Error()))
		}
	}()

	app, err := wire(cfg, p, logger, backend)
	if err != nil {
		return err
	}
	// Coordinator goroutines (refresh, server-side logout) finish before
	// the store is closed and telemetry is flushed.
	defer app.Session.Wait()

	app.Auth.Restore(ctx)

	// --- Structured concurrency via errgroup ---
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		return fn(gctx, app)
	})

	if p.KeepAlive {
		g.Go(func() error {
			return app.Session.KeepAlive(gctx, cfg.Session.KeepAliveInterval)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("interrupted")
		return nil
	}
	return err
}

func wire(cfg *config.Config, p Params, logger *slog.Logger, backend tokenstore.Backend) (*App, error) {
	rest, err := restclient.New(restclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: p.Name + "/" + p.Version,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create REST client: %w", err)
	}

	store := tokenstore.New(tokenstore.Config{
		Backend:   backend,
		Namespace: cfg.Store.Namespace,
		Logger:    logger,
	})

	coord := session.NewCoordinator(session.Config{
		API:   authapi.New(authapi.Config{REST: rest, AuthPath: cfg.API.AuthPath}),
		Store: store,
		Inspector: auth.NewInspector(auth.InspectorConfig{
			Threshold: cfg.Session.RefreshThreshold,
		}),
		Logger:         logger,
		RefreshTimeout: cfg.API.Timeout,
		LogoutTimeout:  cfg.Session.LogoutTimeout,
	})

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Session: coord,
		Auth:    authstate.New(authstate.Config{Session: coord, Logger: logger}),
		Todos: todos.New(todos.Config{
			REST:      rest,
			Session:   coord,
			TodosPath: cfg.API.TodosPath,
			AuthPath:  cfg.API.AuthPath,
			Logger:    logger,
		}),
	}, nil
}

// openBackend builds the configured token store backend and returns a
// function releasing its connections.
func openBackend(ctx context.Context, cfg *config.Config) (tokenstore.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return tokenstore.NewMemoryBackend(), noop, nil

	case config.BackendFile:
		return tokenstore.NewFileBackend(cfg.Store.FilePath), noop, nil

	case config.BackendRedis:
		client := redis.NewClient(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return tokenstore.NewRedisBackend(client.RDB, cfg.Redis.TTL), client.Close, nil

	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Endpoint: cfg.DynamoDB.Endpoint,
			Region:   cfg.AWS.Region,
			Timeout:  cfg.DynamoDB.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return tokenstore.NewDynamoBackend(client.DB, cfg.DynamoDB.Table, cfg.DynamoDB.TTL, domain.RealClock{}), noop, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, cfg.Store.Backend)
}
