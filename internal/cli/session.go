package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"theone-todo/internal/auth"
)

// NewLoginCommand は API サーバーにログインするコマンドです。
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the API server",
		Long:  "Log in and store the token in the credentials file.\nMissing --email or --password are read from stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Local {
				return NewExitError(ExitCommandError, "login is not needed with --local")
			}
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if email == "" {
				if email, err = prompt(cmd.ErrOrStderr(), in, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd.ErrOrStderr(), in, "Password: "); err != nil {
					return err
				}
			}

			s, err := rootOpts.session()
			if err != nil {
				return err
			}
			id, err := s.Login(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, auth.ErrLoginFailed) {
					return WrapExitError(ExitCommandError, "login rejected", err)
				}
				return WrapExitError(ExitFailure, "login failed", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", id.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

// NewLogoutCommand は保存済みの資格情報を削除するコマンドです。
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Local {
				return NewExitError(ExitCommandError, "logout is not needed with --local")
			}
			s, err := rootOpts.session()
			if err != nil {
				return err
			}
			if err := s.Logout(); err != nil {
				return WrapExitError(ExitFailure, "logout failed", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// NewWhoamiCommand は現在のユーザーを表示するコマンドです。
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id auth.Identity
			if rootOpts.Local {
				name, err := rootOpts.localUser()
				if err != nil {
					return err
				}
				id = auth.Identity{Name: name}
			} else {
				s, err := rootOpts.session()
				if err != nil {
					return err
				}
				id = s.Current()
			}
			if !id.Authenticated() {
				return NewExitError(ExitCommandError, "not logged in")
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.Name)
			return nil
		},
	}
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", WrapExitError(ExitFailure, "could not read input", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", NewExitError(ExitCommandError, strings.TrimSuffix(strings.ToLower(label), ": ")+" is required")
	}
	return line, nil
}
