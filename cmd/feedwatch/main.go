// feedwatch connects to the post feed and prints new posts as they arrive.
// Usage: go run ./cmd/feedwatch watch --config configs/feedwatch.yaml
//
// Environment variables:
//
//	SOCKET_URL - Remote feed address used when the config leaves it empty
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
