// Command todo は todo リストのCLI/TUIクライアントです。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"theone-todo/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "todo: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
