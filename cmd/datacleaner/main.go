// Command datacleaner serves the data cleaning API and runs cleaning jobs on
// local files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"datacleaner/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
