package migration

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"
)

// RiverMigrator installs the job queue tables the reminder scheduler runs on
type RiverMigrator struct {
	migrator *rivermigrate.Migrator[pgx.Tx]
	logger   *zap.Logger
}

// NewRiverMigrator creates a RiverMigrator on the given pool
func NewRiverMigrator(pool *pgxpool.Pool, logger *zap.Logger) (*RiverMigrator, error) {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create river migrator: %w", err)
	}
	return &RiverMigrator{migrator: migrator, logger: logger}, nil
}

// Up applies all pending River migrations
func (r *RiverMigrator) Up(ctx context.Context) error {
	return r.run(ctx, rivermigrate.DirectionUp, nil)
}

// Down rolls back River migrations down to, but not including, targetVersion
func (r *RiverMigrator) Down(ctx context.Context, targetVersion int) error {
	return r.run(ctx, rivermigrate.DirectionDown, &rivermigrate.MigrateOpts{TargetVersion: targetVersion})
}

func (r *RiverMigrator) run(ctx context.Context, direction rivermigrate.Direction, opts *rivermigrate.MigrateOpts) error {
	r.logger.Info("Running river migrations", zap.String("direction", string(direction)))

	res, err := r.migrator.Migrate(ctx, direction, opts)
	if err != nil {
		return fmt.Errorf("river migration %s failed: %w", direction, err)
	}
	if len(res.Versions) == 0 {
		r.logger.Info("No river migrations to apply")
		return nil
	}
	for _, v := range res.Versions {
		r.logger.Info("River migration applied",
			zap.Int("version", v.Version),
			zap.Duration("duration", v.Duration),
		)
	}
	return nil
}
