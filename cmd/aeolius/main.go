// Command aeolius is the terminal front-end of Aeolius: it signs in to a
// PDS and manages the deletion settings kept by the Aeolius manager.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "An error occurred:", err)
		stop()
		os.Exit(1)
	}
}
