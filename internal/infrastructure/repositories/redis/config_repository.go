package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
)

const draftConfigKey = "skylink:config:draft"

// RedisConfigRepository persists the unsubmitted configuration draft so it
// survives agent restarts.
type RedisConfigRepository struct {
	client *redis.Client
}

func NewRedisConfigRepository(client *redis.Client) ports.ConfigRepository {
	return &RedisConfigRepository{client: client}
}

func (r *RedisConfigRepository) LoadDraft(ctx context.Context) (*domain.StreamConfig, error) {
	data, err := r.client.Get(ctx, draftConfigKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft from Redis: %w", err)
	}

	var cfg domain.StreamConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &cfg, nil
}

func (r *RedisConfigRepository) SaveDraft(ctx context.Context, cfg domain.StreamConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, draftConfigKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set draft in Redis: %w", err)
	}
	return nil
}

func (r *RedisConfigRepository) ClearDraft(ctx context.Context) error {
	if err := r.client.Del(ctx, draftConfigKey).Err(); err != nil {
		return fmt.Errorf("failed to delete draft from Redis: %w", err)
	}
	return nil
}
