package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aelexs/todoclient/internal/bootstrap"
	"github.com/aelexs/todoclient/internal/domain"
)

// passwordFlags is shared by login and register.
type passwordFlags struct {
	password      string
	passwordStdin bool
}

func (p *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.password, "password", "", "Account password")
	cmd.Flags().BoolVar(&p.passwordStdin, "password-stdin", false, "Read the password from stdin")
}

func (p *passwordFlags) read(in io.Reader) (domain.SecretString, error) {
	if !p.passwordStdin {
		return domain.SecretString(p.password), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return domain.SecretString(strings.TrimRight(line, "\r\n")), nil
}

func newLoginCommand(flags *globalFlags) *cobra.Command {
	var (
		email string
		pw    passwordFlags
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				user, err := app.Auth.Login(ctx, domain.Credentials{Email: email, Password: password})
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Logged in as %s\n", user.DisplayName())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCommand(flags *globalFlags) *cobra.Command {
	var (
		username string
		email    string
		pw       passwordFlags
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				user, err := app.Auth.Register(ctx, domain.Registration{
					Username: username,
					Email:    email,
					Password: password,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Welcome, %s\n", user.DisplayName())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				app.Auth.Logout(ctx)
				fmt.Fprintln(out(cmd), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(flags *globalFlags) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				if remote {
					user, err := app.Todos.Me(ctx)
					if err != nil {
						return err
					}
					printUser(out(cmd), &user)
					return nil
				}

				state := app.Auth.State()
				if !state.IsAuthenticated {
					return domain.ErrNoSession
				}
				printUser(out(cmd), state.User)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the backend instead of the cached profile")
	return cmd
}

func printUser(w io.Writer, u *domain.User) {
	if u == nil {
		fmt.Fprintln(w, "unknown user")
		return
	}
	if u.Username != "" {
		fmt.Fprintf(w, "%s <%s>\n", u.Username, u.Email)
		return
	}
	fmt.Fprintln(w, u.Email)
}
