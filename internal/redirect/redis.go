package redirect

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const slotKeyPrefix = "redirect:"

// RedisMemory stores redirect slots in redis so the remembered path survives
// instance restarts and is shared across replicas.
type RedisMemory struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMemory(client *redis.Client, ttl time.Duration) *RedisMemory {
	return &RedisMemory{client: client, ttl: ttl}
}

func slotKey(key string) string {
	return slotKeyPrefix + key
}

func (m *RedisMemory) Stash(ctx context.Context, key, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := m.client.Set(ctx, slotKey(key), path, m.ttl).Err(); err != nil {
		return fmt.Errorf("stash redirect path: %w", err)
	}
	return nil
}

// ConsumeOrDefault reads and clears the slot atomically with GETDEL, so two
// concurrent consumers cannot both see the stored path.
func (m *RedisMemory) ConsumeOrDefault(ctx context.Context, key, fallback string) (string, error) {
	path, err := m.client.GetDel(ctx, slotKey(key)).Result()
	if err == redis.Nil {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("consume redirect path: %w", err)
	}
	if path == "" {
		return fallback, nil
	}
	return path, nil
}
