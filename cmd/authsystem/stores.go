package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	authsystem "github.com/MrEthical07/authsystem"
	"github.com/MrEthical07/authsystem/store/memory"
	"github.com/MrEthical07/authsystem/store/postgres"
	"github.com/MrEthical07/authsystem/store/redisstore"
	"github.com/MrEthical07/authsystem/store/sqlite"
)

const (
	driverMemory   = "memory"
	driverRedis    = "redis"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// openStore connects the configured backend. The returned close func releases
// its connections.
func openStore(ctx context.Context, cfg appConfig, logger *slog.Logger) (authsystem.UserStore, func(), error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	logger = logger.With("driver", driver)

	switch driver {
	case driverMemory, "":
		logger.Warn("using in-memory user store; accounts are lost on restart")
		return memory.New(), func() {}, nil

	case driverRedis:
		opts, err := redis.ParseURL(cfg.Store.DSN)
		if err != nil {
			return nil, nil, oops.Code("CONFIG_INVALID").With("driver", driver).Wrap(err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, oops.Code("STORE_CONNECT_FAILED").With("driver", driver).Wrap(err)
		}
		return redisstore.New(client, cfg.Store.RedisPrefix), func() { _ = client.Close() }, nil

	case driverPostgres:
		pool, err := postgres.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("migrations applied")
		}
		return postgres.New(pool), pool.Close, nil

	case driverSQLite:
		db, err := sqlite.Open(ctx, sqlitePath(cfg.Store.DSN))
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.AutoMigrate {
			if err := sqlite.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			logger.Info("migrations applied")
		}
		return sqlite.New(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func sqlitePath(dsn string) string {
	if dsn == "" {
		return "authsystem.db"
	}
	return dsn
}
