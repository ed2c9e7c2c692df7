// Package cli は todo コマンドのサブコマンドを定義します (cobra)。
package cli

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"theone-todo/internal/config"
	"theone-todo/internal/logging"
)

// RootOptions は全コマンド共通のフラグです。
type RootOptions struct {
	ConfigPath string
	Server     string
	Local      bool
	User       string
	DBPath     string
	LogLevel   string

	// PersistentPreRunE で設定されます。
	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand は todo コマンドのルートを作成します。
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Todo List of 'The One'",
		Long: "Manage your todo list from the terminal.\n\n" +
			"By default todos live on the API server (log in first with `todo login`).\n" +
			"With --local they are kept in a SQLite file for a single user.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to theone.toml")
	flags.StringVar(&opts.Server, "server", "", "API server base URL")
	flags.BoolVar(&opts.Local, "local", false, "use a local SQLite store instead of the API server")
	flags.StringVar(&opts.User, "user", "", "user name in --local mode (default $USER)")
	flags.StringVar(&opts.DBPath, "db-path", "", "SQLite file in --local mode")
	flags.StringVar(&opts.LogLevel, "log-level", "", "debug|info|warn|error")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewToggleCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewTUICommand(opts))

	return cmd
}

// load は設定ファイルと環境変数を読み込み、フラグで上書きします。
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Server != "" {
		cfg.Client.APIBaseURL = o.Server
	}
	if o.User != "" {
		cfg.Client.LocalUser = o.User
	}
	if o.DBPath != "" {
		cfg.Client.LocalDBPath = o.DBPath
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}

	o.cfg = cfg
	o.logger = logging.Setup(cfg.Log, cmd.ErrOrStderr(), "todo")
	return nil
}
