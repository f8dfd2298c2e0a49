package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"storefront/config"
	"storefront/controllers"
	"storefront/database"
	"storefront/routes"
	"storefront/services"
)

type catalog interface {
	services.Catalog
	controllers.ProductStore
}

// stores is the storage selected by STORE_DRIVER.
type stores struct {
	carts   services.CartRepository
	orders  services.OrderRepository
	catalog catalog
	users   routes.Users
	outbox  *database.Outbox
	health  func(ctx context.Context) error
	close   func()
}

func openStores(ctx context.Context, cfg config.Config, log *logrus.Entry) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory stores, data is lost on exit")
		return &stores{
			carts:   database.NewMemoryCarts(),
			orders:  database.NewMemoryOrders(),
			catalog: database.NewMemoryCatalog(),
			users:   database.NewMemoryUsers(),
			health:  func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	}

	pool, mongo, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var topic string
	if cfg.KafkaEnabled() {
		topic = cfg.KafkaTopic
	}
	return &stores{
		carts:   database.NewPostgresCarts(pool),
		orders:  database.NewPostgresOrders(pool, topic),
		catalog: database.NewMongoCatalog(mongo),
		users:   database.NewMongoUsers(mongo),
		outbox:  database.NewOutbox(pool),
		health: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			return mongo.Client.Ping(ctx, nil)
		},
		close: func() {
			pool.Close()
			_ = mongo.Close(context.Background())
		},
	}, nil
}

func connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, *database.Mongo, error) {
	pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	mongo, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, mongo, nil
}

// jwtSecret falls back to a random per-process secret in memory mode.
func jwtSecret(cfg config.Config, log *logrus.Entry) ([]byte, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), nil
	}
	if cfg.StoreDriver != config.DriverMemory {
		return nil, errors.New("JWT_SECRET not set")
	}
	log.Warn("JWT_SECRET not set, tokens will not survive a restart")
	return []byte(uuid.NewString()), nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}
