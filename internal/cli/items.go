package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"theone-todo/internal/models"
	"theone-todo/internal/ui"
)

// withApp はエンジンを開き、現在のユーザーのリストを読み込んでから fn を実行します。
func withApp(cmd *cobra.Command, rootOpts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := rootOpts.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.load(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

// NewListCommand は自分の ToDo を期限順に表示するコマンドです。
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your todos, soonest deadline first",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return RenderItems(cmd.OutOrStdout(), format, a.engine.Items())
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format (text|json|yaml)")
	return cmd
}

// NewAddCommand は ToDo を追加するコマンドです。
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var deadline string

	cmd := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Add a todo",
		Example: "  todo add Buy milk --deadline 2024-01-01\n" +
			"  todo add \"Call mom\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := models.ParseDeadline(deadline)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --deadline", err)
			}
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return NewExitError(ExitCommandError, "todo text is empty")
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.engine.AddTodo(ctx, text, d); err != nil {
					return WrapExitError(ExitFailure, "could not add todo", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", models.ComposeDisplayText(d, text))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&deadline, "deadline", "d", "", "deadline ("+models.DeadlineLayout+")")
	return cmd
}

// NewToggleCommand は完了状態を切り替えるコマンドです。
func NewToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Mark a todo done or not done",
		Long:  "Flip the completed flag of a todo. ID may be any unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				it, err := a.resolve(args[0])
				if err != nil {
					return err
				}
				if err := a.engine.ToggleTodo(ctx, it.ID); err != nil {
					return WrapExitError(ExitFailure, "could not update todo", err)
				}
				it.Completed = !it.Completed
				return RenderItems(cmd.OutOrStdout(), "text", []models.TodoItem{it})
			})
		},
	}
}

// NewRemoveCommand は ToDo を削除するコマンドです。
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Long:    "Delete a todo. ID may be any unique prefix.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				it, err := a.resolve(args[0])
				if err != nil {
					return err
				}
				if err := a.engine.DeleteTodo(ctx, it.ID); err != nil {
					return WrapExitError(ExitFailure, "could not delete todo", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", it.DisplayText)
				return nil
			})
		},
	}
}

// NewTUICommand はターミナルUIを起動するコマンドです。
func NewTUICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive todo list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 画面が崩れるので TUI の間はログを出さない
			rootOpts.logger.SetOutput(io.Discard)

			a, err := rootOpts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan struct{})
			go func() {
				defer close(done)
				a.engine.Run(ctx, a.provider.Subscribe(ctx))
			}()

			err = ui.Run(ctx, a.engine)
			cancel()
			<-done
			if err != nil {
				return WrapExitError(ExitFailure, "tui failed", err)
			}
			return nil
		},
	}
}
