package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the client shared by the rate limiter and the session revocation list
type Redis struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client and verifies the connection
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

// NewRedisFromClient wraps an existing client, e.g. one pointed at miniredis in tests
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.Client.Close()
}

// Ping checks if Redis is available
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
