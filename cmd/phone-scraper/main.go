package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/cmd/phone-scraper/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
