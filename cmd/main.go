package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/vinylhub/eventsync/cmd/app"
	"github.com/vinylhub/eventsync/internal/adapters/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	cfg := config.Get(*configPath)
	a, err := app.New(cfg)
	if err != nil {
		log.Panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Panic(err)
	}
}
