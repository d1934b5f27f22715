// Package main provides the dungeon server binary: it loads content, starts a
// run for the configured profile, ticks it at a fixed step and serves its state
// over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/dice"
	"github.com/cory-johannsen/dungeon/internal/game/profile"
	"github.com/cory-johannsen/dungeon/internal/gameserver"
	"github.com/cory-johannsen/dungeon/internal/observability"
	"github.com/cory-johannsen/dungeon/internal/server"
	"github.com/cory-johannsen/dungeon/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dungeonID := flag.String("dungeon", "", "dungeon to run; empty picks the first by ID")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting dungeon server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	content, err := gameserver.LoadContent(cfg.Content, cfg.Simulation.ImmunityWindow, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}

	lifecycle := server.NewLifecycle(logger)

	var repo profile.Repository = profile.NewMemoryRepository()
	if cfg.Server.Persistent() {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		repo = postgres.NewProfileRepository(pool.DB())
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				err := pool.Monitor(ctx, 30*time.Second, 5*time.Second)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			},
			StopFn: func(context.Context) { pool.Close() },
		})
	}

	prof, err := loadProfile(ctx, repo, cfg.Simulation.ProfileID)
	if err != nil {
		logger.Fatal("loading profile", zap.Error(err))
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	roller := dice.NewLoggedRoller(dice.NewSeededSource(seed), logger)

	sess, err := gameserver.NewSession(gameserver.Options{
		DungeonID:  *dungeonID,
		Content:    content,
		Profile:    prof,
		Simulation: cfg.Simulation,
		Roller:     roller,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("starting session", zap.Error(err))
	}

	driver := gameserver.NewTickDriver(cfg.Simulation.TickInterval)
	hub := gameserver.NewHub(driver, logger)
	hub.Add(sess, func(s *gameserver.Session, sum *gameserver.Summary) {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Save(saveCtx, repo); err != nil {
			logger.Error("saving profile", zap.Error(err))
			return
		}
		logger.Info("profile saved",
			zap.String("profile", prof.ID.String()),
			zap.String("title", sum.Title),
		)
	})

	grpcServer, healthServer := gameserver.NewGRPCServer(
		gameserver.NewStatusService(hub, cfg.Server.Type, logger),
	)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func(context.Context) {
			healthServer.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	lifecycle.Add("simulation", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			driver.Start(ctx)
			<-ctx.Done()
			return nil
		},
		StopFn: func(context.Context) { hub.Close() },
	})

	logger.Info("dungeon server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("session", sess.ID),
		zap.Uint64("seed", seed),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// loadProfile returns the profile with id from repo, or a fresh profile when id
// is empty or not yet stored.
func loadProfile(ctx context.Context, repo profile.Repository, id string) (*profile.Profile, error) {
	if id == "" {
		return profile.New(), nil
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing profile id %q: %w", id, err)
	}
	p, err := repo.Load(ctx, pid)
	if errors.Is(err, profile.ErrNotFound) {
		p = profile.New()
		p.ID = pid
		return p, nil
	}
	return p, err
}
