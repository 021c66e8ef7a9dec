package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/byway-lms/byway-admin/internal/cli"
	"github.com/byway-lms/byway-admin/pkg/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCmd(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, session.ErrMissingRole) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
