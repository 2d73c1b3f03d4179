package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/conduit/pkg/api"
)

// RedisEventStore is an EventStore backed by Redis.
// It keeps one list per run:
//
//	<prefix>events:<runID>  => LIST of gob-encoded events, in append order
type RedisEventStore struct {
	client *redis.Client
	prefix string
}

var _ api.EventStore = (*RedisEventStore)(nil)

// NewRedisEventStore creates a RedisEventStore.
// prefix is optional but recommended (e.g. "conduit:").
func NewRedisEventStore(client *redis.Client, prefix string) *RedisEventStore {
	if prefix == "" {
		prefix = "conduit:"
	}
	return &RedisEventStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisEventStore) keyEvents(runID string) string {
	return s.prefix + "events:" + runID
}

func (s *RedisEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	if ev.RunID == "" {
		return ErrEmptyRunID
	}
	data, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.keyEvents(ev.RunID), data).Err()
}

func (s *RedisEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	raw, err := s.client.LRange(ctx, s.keyEvents(runID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]api.RunEvent, 0, len(raw))
	for i, item := range raw {
		ev, err := DecodeEvent([]byte(item))
		if err != nil {
			return nil, fmt.Errorf("decode event %d of run %s: %w", i, runID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
