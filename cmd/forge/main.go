package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ChainForge/internal/cli"
)

// main 是 forge 命令行的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
