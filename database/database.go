package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PostsCollection = "posts"
	UsersCollection = "users"

	connectAttempts = 3
	retryDelay      = 2 * time.Second
)

// Store owns the Mongo client and the application database.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials MongoDB and pings it, retrying a few times so the API can
// start alongside a database that is still booting.
func Connect(ctx context.Context, uri, dbName string, logger *slog.Logger) (*Store, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		store, err := connectOnce(ctx, uri, dbName)
		if err == nil {
			logger.Info("✅ Connected to MongoDB", "database", dbName)
			return store, nil
		}
		lastErr = err
		logger.Warn("MongoDB connection attempt failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("connect to mongodb: %w", lastErr)
}

func connectOnce(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Store{Client: client, DB: client.Database(dbName)}, nil
}

// Disconnect closes the client, waiting at most ten seconds.
func (s *Store) Disconnect() error {
	if s == nil || s.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Client.Disconnect(ctx)
}

// Ping reports whether the deployment answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}
