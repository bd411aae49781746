package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aelexs/todoclient/internal/bootstrap"
	"github.com/aelexs/todoclient/internal/domain"
)

func newListCommand(flags *globalFlags) *cobra.Command {
	var (
		asJSON  bool
		pending bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.Todos.List(ctx)
				if err != nil {
					return err
				}
				if pending {
					items = slices.DeleteFunc(items, func(t domain.Todo) bool { return t.Done })
				}
				if asJSON {
					return printJSON(out(cmd), items)
				}
				return printTodos(out(cmd), items)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only show todos that are not done")
	return cmd
}

func newGetCommand(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTodoID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				item, err := app.Todos.Get(ctx, id)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out(cmd), item)
				}
				return printTodos(out(cmd), []domain.Todo{item})
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newAddCommand(flags *globalFlags) *cobra.Command {
	var (
		description string
		priority    string
	)

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePriority(priority)
			if err != nil {
				return err
			}
			req := domain.TodoRequest{Title: args[0], Description: description, Priority: p}
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				item, err := app.Todos.Create(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Created #%s %s\n", item.ID, item.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Longer description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "HIGH, MEDIUM or LOW (default MEDIUM)")
	return cmd
}

func newUpdateCommand(flags *globalFlags) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		done        bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTodoID(args[0])
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			if !changed("title") && !changed("description") && !changed("priority") && !changed("done") {
				return fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
			}

			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				current, err := app.Todos.Get(ctx, id)
				if err != nil {
					return err
				}

				req := domain.RequestFrom(current)
				if changed("title") {
					req.Title = title
				}
				if changed("description") {
					req.Description = description
				}
				if changed("priority") {
					if req.Priority, err = domain.ParsePriority(priority); err != nil {
						return err
					}
				}
				if changed("done") {
					req.Done = &done
				}

				item, err := app.Todos.Update(ctx, id, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Updated #%s %s\n", item.ID, item.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "HIGH, MEDIUM or LOW")
	cmd.Flags().BoolVar(&done, "done", false, "Mark as done (--done=false to reopen)")
	return cmd
}

func newDoneCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Toggle the done flag of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTodoID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				item, err := app.Todos.Toggle(ctx, id)
				if err != nil {
					return err
				}
				state := "open"
				if item.Done {
					state = "done"
				}
				fmt.Fprintf(out(cmd), "#%s %s is now %s\n", item.ID, item.Title, state)
				return nil
			})
		},
	}
}

func newRemoveCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseTodoID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Todos.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Deleted #%s\n", id)
				return nil
			})
		},
	}
}

func newStatsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show todo counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags, false, func(ctx context.Context, app *bootstrap.App) error {
				stats, err := app.Todos.Statistics(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "total: %d\ncompleted: %d\npending: %d\n",
					stats.Total, stats.Completed, stats.Pending)
				return nil
			})
		},
	}
}

// newWatchCommand keeps the session alive and reprints the list whenever
// it changes.
func newWatchCommand(flags *globalFlags) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive and print the list when it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("%w: interval must be positive", domain.ErrInvalidInput)
			}
			return run(cmd, flags, true, func(ctx context.Context, app *bootstrap.App) error {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				var (
					last    []domain.Todo
					printed bool
				)
				for {
					items, err := app.Todos.List(ctx)
					if err != nil {
						return err
					}
					if !printed || !slices.Equal(items, last) {
						fmt.Fprintf(out(cmd), "-- %s\n", time.Now().Format(time.TimeOnly))
						if err := printTodos(out(cmd), items); err != nil {
							return err
						}
						last, printed = items, true
					}

					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-ticker.C:
					}
				}
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Polling interval")
	return cmd
}

func printTodos(w io.Writer, items []domain.Todo) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No todos")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tTITLE")
	for _, t := range items {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\n", t.ID, mark, t.Priority, t.Title)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
