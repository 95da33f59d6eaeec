package generalqa

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Exchange is one answered question.
type Exchange struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore keeps each user's recent general-question exchanges.
type HistoryStore interface {
	// Recent returns up to limit exchanges, oldest first.
	Recent(ctx context.Context, userID string, limit int) ([]Exchange, error)
	Append(ctx context.Context, userID string, ex Exchange) error
}

// RedisHistoryStore keeps a capped, expiring list per user.
type RedisHistoryStore struct {
	redis    *redis.Client
	tracer   trace.Tracer
	capacity int
	ttl      time.Duration
}

func NewRedisHistoryStore(client *redis.Client, capacity int, ttl time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("generalqa: redis client cannot be nil")
	}
	if capacity <= 0 {
		capacity = 5
	}
	return &RedisHistoryStore{
		redis:    client,
		tracer:   otel.Tracer("healthsync.internal.generalqa.history"),
		capacity: capacity,
		ttl:      ttl,
	}
}

func (s *RedisHistoryStore) Recent(ctx context.Context, userID string, limit int) ([]Exchange, error) {
	ctx, span := s.tracer.Start(ctx, "generalqa.load_history")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}
	raw, err := s.redis.LRange(ctx, historyKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generalqa: failed to load history: %w", err)
	}

	// Entries are pushed to the head, so the list is newest first.
	out := make([]Exchange, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var ex Exchange
		if err := json.Unmarshal([]byte(raw[i]), &ex); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("generalqa: failed to decode history: %w", err)
		}
		out = append(out, ex)
	}
	return out, nil
}

func (s *RedisHistoryStore) Append(ctx context.Context, userID string, ex Exchange) error {
	ctx, span := s.tracer.Start(ctx, "generalqa.save_history")
	defer span.End()

	data, err := json.Marshal(ex)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("generalqa: failed to marshal exchange: %w", err)
	}

	key := historyKey(userID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(s.capacity-1))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("generalqa: failed to persist history: %w", err)
	}
	return nil
}

func historyKey(userID string) string {
	return fmt.Sprintf("general_chat:%s", userID)
}
