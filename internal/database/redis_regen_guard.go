package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"consistency-server/internal/interfaces"
)

// Compile-time check to ensure redisRegenGuard implements RegenGuard
var _ interfaces.RegenGuard = (*redisRegenGuard)(nil)

// regenProcessedKeyPrefix keys the per-image processed flags.
const regenProcessedKeyPrefix = "regen:processed:"

// redisRegenGuard implements the at-most-one-regeneration guarantee with an
// atomic SETNX per image id. Concurrent duplicate verdict submissions race on
// the same key and only one wins.
type redisRegenGuard struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRegenGuard creates a new Redis-backed RegenGuard.
func NewRedisRegenGuard(client *redis.Client, logger *zap.Logger) interfaces.RegenGuard {
	return &redisRegenGuard{
		client: client,
		logger: logger.Named("RedisRegenGuard"),
	}
}

// MarkProcessed sets the processed flag for imageID and reports whether this
// call was the first to do so. The flag never expires: verdicts are append-only
// history and a rejected image must never trigger twice.
func (r *redisRegenGuard) MarkProcessed(ctx context.Context, imageID string) (bool, error) {
	key := regenProcessedKeyPrefix + imageID

	first, err := r.client.SetNX(ctx, key, "1", 0).Result()
	if err != nil {
		r.logger.Error("Failed to set regeneration processed flag", zap.String("image_id", imageID), zap.Error(err))
		return false, fmt.Errorf("failed to set processed flag for image %s: %w", imageID, err)
	}

	if !first {
		r.logger.Debug("Regeneration already processed for image", zap.String("image_id", imageID))
	}
	return first, nil
}
