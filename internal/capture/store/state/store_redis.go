package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veridoc/internal/capture/models"
	id "veridoc/pkg/domain"
)

// Redis key prefix for upload-state snapshots.
const stateKeyPrefix = "capture:state:"

// RedisStore is the Redis-backed snapshot store for distributed deployments
// where multiple dashboard instances need to observe the same session.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed state store. The client lifecycle is
// managed externally.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores the snapshot with TTL. SET with expiry is atomic, so a stale
// snapshot never outlives its session window.
func (s *RedisStore) Put(ctx context.Context, sessionID id.CaptureSessionID, state models.UploadSessionState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal upload state: %w", err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+sessionID.String(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("put upload state: %w", err)
	}
	return nil
}

// Get returns the stored snapshot, or nil when none exists (never written,
// expired, or deleted).
func (s *RedisStore) Get(ctx context.Context, sessionID id.CaptureSessionID) (*models.UploadSessionState, error) {
	payload, err := s.client.Get(ctx, stateKeyPrefix+sessionID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get upload state: %w", err)
	}

	var state models.UploadSessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal upload state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.CaptureSessionID) error {
	if err := s.client.Del(ctx, stateKeyPrefix+sessionID.String()).Err(); err != nil {
		return fmt.Errorf("delete upload state: %w", err)
	}
	return nil
}
