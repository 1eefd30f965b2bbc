package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// Bad flags, bad config, or a failure under --strict.
		log.Printf("refresh failed: %v", err)
		stop()
		os.Exit(1)
	}
}
