// Package postgres stores player profiles in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
)

// Pool is the connection pool shared by the profile repository.
type Pool struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPool connects to the database described by cfg and checks that it answers.
//
// Precondition: cfg must pass config validation for persistent mode.
// Postcondition: Returns a pool that has answered one ping, or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnLifetime = cfg.MaxConnLifetime

	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("opening pool for %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Pool{db: db, logger: logger}, nil
}

// Health pings the database, failing after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("database health: %w", err)
	}
	return nil
}

// Monitor runs Health every interval until ctx is cancelled, logging failures.
//
// Postcondition: Returns ctx.Err() once ctx is done.
func (p *Pool) Monitor(ctx context.Context, interval, timeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Health(ctx, timeout); err != nil {
				failures++
				p.logger.Warn("database health check failed",
					zap.Int("consecutive_failures", failures),
					zap.Error(err),
				)
				continue
			}
			if failures > 0 {
				p.logger.Info("database healthy again", zap.Int("after_failures", failures))
			}
			failures = 0
		}
	}
}

// Close releases every connection.
func (p *Pool) Close() {
	p.db.Close()
}

// DB returns the pgx pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.db
}
