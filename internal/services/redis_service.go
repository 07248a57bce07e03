package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"task-service/internal/database"

	"github.com/redis/go-redis/v9"
)

// onlineUsersKey holds the ids of users with at least one live connection
const onlineUsersKey = "tasks:online_users"

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{
		client: client,
	}
}

// =============================================================================
// Presence
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID string) error {
	if err := r.client.GetClient().SAdd(ctx, onlineUsersKey, userID).Err(); err != nil {
		slog.Error("Failed to set user online", "userID", userID, "error", err)
		return err
	}
	slog.Debug("User set to online", "userID", userID)
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID string) error {
	if err := r.client.GetClient().SRem(ctx, onlineUsersKey, userID).Err(); err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
		return err
	}
	slog.Debug("User set to offline", "userID", userID)
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return r.client.GetClient().SIsMember(ctx, onlineUsersKey, userID).Result()
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit records one hit on key and reports whether fewer than limit
// hits happened within window before it (sliding window log)
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.GetClient().Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	// Count current entries
	card := pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() < int64(limit), nil
}
