// Command api は todo ドキュメントストアのAPIサーバーです。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"theone-todo/internal/config"
	"theone-todo/internal/database"
	"theone-todo/internal/logging"
	"theone-todo/internal/routes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

// newRootCommand は api コマンドを作成します。
func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Todo document store API server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to theone.toml")
	return cmd
}

// serve は ctx が終わるまでサーバーを動かします。
func serve(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger := logging.Setup(cfg.Log, logOut, "api")
	if logging.ParseLevel(cfg.Log.Level) != log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Server.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", cfg.Database.Driver, err)
	}
	defer db.Close()

	r, err := routes.SetupRouter(db, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
