package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"portal/config"
	"portal/internal/domain/lifecycle"
	"portal/internal/errors"
	"portal/internal/infra/metrics"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	poolWatchInterval = 5 * time.Second
	poolWaitWarnAfter = 50 * time.Millisecond
	defaultStatsLabel = "portal"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Collector `optional:"true"`
}

// New opens the gorm handle, exports pool stats and, when configured, applies
// the embedded migrations before the server starts taking requests.
func New(params Params) (*gorm.DB, error) {
	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	db = db.Session(&gorm.Session{
		// Multi-step writes go through TransactionManager.Execute.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	if params.Metrics != nil {
		label := params.Config.Env.ServiceName
		if label == "" {
			label = defaultStatsLabel
		}
		if err := params.Metrics.RegisterDBStats(sqlDB, label); err != nil {
			return nil, errors.Wrap(err, "failed to register pool metrics")
		}
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}

			if params.Config.Migration != nil && params.Config.Migration.AutoMigrate {
				if err := Migrate(startCtx, db); err != nil {
					return err
				}
				params.Logger.Info("Database migrations applied")
			}

			go watchPoolWaits(watchCtx, params.Logger, sqlDB)

			return nil
		},
		OnStop: func(_ context.Context) error {
			stopWatch()

			return sqlDB.Close()
		},
	})

	return db, nil
}

// watchPoolWaits warns when requests queued for a connection in the last tick.
func watchPoolWaits(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB) {
	ticker := time.NewTicker(poolWatchInterval)
	defer ticker.Stop()

	prev := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := sqlDB.Stats()
			waits := cur.WaitCount - prev.WaitCount
			waited := cur.WaitDuration - prev.WaitDuration
			prev = cur

			if waits == 0 || waited < poolWaitWarnAfter {
				continue
			}

			logger.LogAttrs(ctx, slog.LevelWarn, "Postgres pool wait detected",
				slog.Int64("waits", waits),
				slog.Duration("avgWait", waited/time.Duration(waits)),
				slog.Int("inUse", cur.InUse),
				slog.Int("maxOpen", cur.MaxOpenConnections),
			)
		}
	}
}
