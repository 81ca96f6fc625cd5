package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kioskfleet/kiosk-fleet-go/internal/agent"
	"github.com/kioskfleet/kiosk-fleet-go/internal/config"
	"github.com/kioskfleet/kiosk-fleet-go/pkg/logger"
)

func main() {
	configDir := flag.String("config-dir", "", "directory holding agent.yaml (default: working directory)")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)

	a, err := agent.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start kiosk agent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.WithError(err).Fatal("kiosk agent exited with error")
	}
}
