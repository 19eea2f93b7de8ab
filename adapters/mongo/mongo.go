// Package mongo persists user aggregates in MongoDB with optimistic
// version locking.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/codewandler/userd-go/internal/config"
)

const pingTimeout = 3 * time.Second

// Open connects, pings and returns a handle on the configured
// database. Callers own the client and should Disconnect it on
// shutdown.
func Open(cfg config.Mongo, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" {
		return nil, nil, errors.New("mongodb uri is empty")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("mongodb connected", slog.String("database", cfg.Database))
	return client, client.Database(cfg.Database), nil
}
