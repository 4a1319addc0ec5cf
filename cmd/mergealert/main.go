// Command mergealert is the administration console for the GitLab merge
// request notification service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mergealert/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := app.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
