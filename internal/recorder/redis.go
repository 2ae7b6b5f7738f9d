package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SnapshotPublisher pushes the latest analysis snapshot into Redis under a
// per-symbol key with a TTL, so dashboards can poll without touching the bot.
type SnapshotPublisher struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSnapshotPublisher connects to Redis and verifies the connection.
func NewSnapshotPublisher(ctx context.Context, addr, password string, db int, ttl time.Duration, logger zerolog.Logger) (*SnapshotPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &SnapshotPublisher{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "SnapshotPublisher").Logger(),
	}, nil
}

// Publish stores the snapshot JSON under structure:<symbol>.
func (s *SnapshotPublisher) Publish(ctx context.Context, symbol string, snapshot interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("structure:%s", symbol)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (s *SnapshotPublisher) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing redis client")
	}
}
