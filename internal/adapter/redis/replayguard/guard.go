package replayguard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
)

const signatureKeyPrefix = "webhook:sig:"

var _ secondary.ReplayGuard = (*Guard)(nil)

// Guard implements the ReplayGuard interface with Redis
type Guard struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewGuard creates a new Redis replay guard
func NewGuard(redisClient *redis.Client, logger primary.Logger) *Guard {
	return &Guard{
		redisClient: redisClient,
		logger:      logger,
	}
}

// FirstUse records the signature with an expiration and reports whether it
// was unseen. SETNX keeps the check-and-record atomic across instances.
func (g *Guard) FirstUse(ctx context.Context, signature string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%s", signatureKeyPrefix, signature)
	first, err := g.redisClient.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		g.logger.Error("Failed to record webhook signature", "error", err)
		return false, fmt.Errorf("failed to record webhook signature: %w", err)
	}
	return first, nil
}
