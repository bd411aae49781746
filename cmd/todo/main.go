// Command todo is a terminal client for the todo backend. It keeps a
// persistent session, refreshing tokens as needed, and exposes the todo
// endpoints as subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aelexs/todoclient/internal/bootstrap"
	"github.com/aelexs/todoclient/internal/config"
	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/errmap"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
		os.Exit(exitCode(err))
	}
}

// Exit codes follow sysexits(3).
const (
	exitFailure  = 1
	exitDataErr  = 65 // rejected input or missing resource
	exitTempFail = 75 // network, timeout, 429, 503
	exitNoPerm   = 77 // not logged in or session expired
)

// exitCode maps err to a process exit status. A lost session wins over
// the transport cause that ended it.
func exitCode(err error) int {
	switch {
	case domain.IsSessionError(err):
		return exitNoPerm
	case domain.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return exitTempFail
	case domain.IsClientError(err):
		return exitDataErr
	}
	return exitFailure
}

// globalFlags override configuration loaded from the environment.
type globalFlags struct {
	baseURL  string
	store    string
	logLevel string
}

func (f *globalFlags) apply(cfg *config.Config) {
	if f.baseURL != "" {
		cfg.API.BaseURL = f.baseURL
	}
	if f.store != "" {
		cfg.Store.Backend = f.store
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Manage your todos from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "Backend base URL (overrides TODO_API__BASE_URL)")
	cmd.PersistentFlags().StringVar(&flags.store, "store", "", "Session store backend: memory, file, redis or dynamodb")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newLoginCommand(flags),
		newRegisterCommand(flags),
		newLogoutCommand(flags),
		newWhoamiCommand(flags),
		newListCommand(flags),
		newGetCommand(flags),
		newAddCommand(flags),
		newUpdateCommand(flags),
		newDoneCommand(flags),
		newRemoveCommand(flags),
		newStatsCommand(flags),
		newWatchCommand(flags),
	)
	return cmd
}

// run executes fn inside the client lifecycle.
func run(cmd *cobra.Command, flags *globalFlags, keepAlive bool, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return bootstrap.Run(ctx, bootstrap.Params{
		Name:      "todo",
		Version:   version,
		Configure: flags.apply,
		KeepAlive: keepAlive,
		LogWriter: cmd.ErrOrStderr(),
	}, fn)
}

// describe turns err into the text shown to the user. Session, transport
// and backend failures use fixed messages; anything else (bad flags,
// configuration, local validation) is shown as is.
func describe(err error) string {
	var userErr *errmap.UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	if domain.IsSessionError(err) ||
		errors.Is(err, domain.ErrRequestFailed) ||
		errors.Is(err, domain.ErrNetwork) ||
		errors.Is(err, context.DeadlineExceeded) {
		return errmap.UserMessage(err)
	}
	return err.Error()
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
