// Command ladder expands a published Google Sheet with the unit ladder and
// uploads the result as point features.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/sheet-ladder-etl/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, version, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
