package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/calcount/calcount-api/config"
	repo "github.com/calcount/calcount-api/internal/domain/repository"
	"github.com/calcount/calcount-api/internal/infrastructure/memory"
	"github.com/calcount/calcount-api/internal/infrastructure/mongodb"
	pginfra "github.com/calcount/calcount-api/internal/infrastructure/postgres"
)

// Stores is the repository pair chosen by STORE_DRIVER plus the handles
// that back it. Exactly one of PG and Mongo is set unless the driver is memory.
type Stores struct {
	Users   repo.UserRepository
	Weights repo.WeightLogRepository

	PG    *pgxpool.Pool
	Mongo *mongo.Client
}

// Close releases the underlying connections.
func (s *Stores) Close() {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.Mongo != nil {
		_ = s.Mongo.Disconnect(context.Background())
	}
}

// OpenStores connects the configured store, applying migrations or indexes.
func OpenStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.MigrationsEnabled {
			if err := pginfra.RunMigrations(cfg.PostgresDSN(), logger); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return &Stores{
			Users:   pginfra.NewUserRepository(pool),
			Weights: pginfra.NewWeightLogRepository(pool),
			PG:      pool,
		}, nil

	case "mongo":
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		users := mongodb.NewUserRepository(client, db)
		return &Stores{Users: users, Weights: users, Mongo: client}, nil

	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		users := memory.NewUserRepository()
		return &Stores{Users: users, Weights: users}, nil
	}
	return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
}
