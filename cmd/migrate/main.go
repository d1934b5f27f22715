// Package main applies or rolls back the embedded profile schema migrations.
package main

import (
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/observability"
	"github.com/cory-johannsen/dungeon/migrations"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	logger, err := observability.NewLogger(config.LoggingConfig{Level: "info", Format: "console"})
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *direction != "up" && *direction != "down" {
		logger.Fatal("invalid direction", zap.String("direction", *direction))
	}

	db, err := config.LoadDatabase(*configPath)
	if err != nil {
		logger.Fatal("loading database config", zap.Error(err))
	}

	st, err := migrations.Apply(db.DSN(), *direction == "down", *steps)
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations complete",
		zap.String("direction", *direction),
		zap.Bool("changed", st.Changed),
		zap.Uint("version", st.Version),
		zap.Bool("dirty", st.Dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}
