package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/stratoforge/stratoctl/cmd/stratoctl/commands"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	// Cancel the context on interrupt so in-flight waits unwind as
	// cancellations rather than being killed mid-poll.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received interrupt signal, shutting down...")
		cancel()
	}()

	if err := commands.Execute(ctx, Version, Commit, BuildDate); err != nil {
		os.Exit(1)
	}
}
