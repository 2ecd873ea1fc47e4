package redisledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/metroverse-pipeline/pkg/utils"
)

const (
	capturedPrefix = "captured:"
	retryPrefix    = "capture_retry:"
)

// LedgerImpl provides a concrete implementation of the CaptureLedger
// interface using Redis.
type LedgerImpl struct {
	client *redis.Client
}

// NewLedger creates a new instance of LedgerImpl.
func NewLedger(client *redis.Client) *LedgerImpl {
	return &LedgerImpl{client: client}
}

// capturedKey creates a consistent Redis key for a city by hashing its id.
func capturedKey(cityID string) string {
	return fmt.Sprintf("%s%s", capturedPrefix, utils.HashKey(cityID))
}

func retryKey(cityID string) string {
	return fmt.Sprintf("%s%s", retryPrefix, utils.HashKey(cityID))
}

// MarkCaptured marks a city as captured by setting a key with an expiry.
func (l *LedgerImpl) MarkCaptured(ctx context.Context, cityID string, expiry time.Duration) error {
	return l.client.SetEx(ctx, capturedKey(cityID), "1", expiry).Err()
}

// IsCaptured checks if a city was captured within the expiry window.
func (l *LedgerImpl) IsCaptured(ctx context.Context, cityID string) (bool, error) {
	val, err := l.client.Exists(ctx, capturedKey(cityID)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// Remove drops a city from the captured set, used for forced re-capture.
func (l *LedgerImpl) Remove(ctx context.Context, cityID string) error {
	return l.client.Del(ctx, capturedKey(cityID)).Err()
}

// IncrementRetry increments the failed-capture counter for a city. The key
// expires after a day so stale counters do not live forever.
func (l *LedgerImpl) IncrementRetry(ctx context.Context, cityID string) (int64, error) {
	key := retryKey(cityID)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	l.client.Expire(ctx, key, 24*time.Hour)
	return count, nil
}

// ClearRetry resets the failed-capture counter after a success.
func (l *LedgerImpl) ClearRetry(ctx context.Context, cityID string) error {
	return l.client.Del(ctx, retryKey(cityID)).Err()
}
