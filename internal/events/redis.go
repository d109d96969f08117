// Package events publishes pipeline transitions on Redis and keeps the list
// of notifications that could not be delivered.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hirelane/pipeline-service/internal/pipeline"
)

// FailedNotificationsKey is the Redis list of undelivered notifications.
const FailedNotificationsKey = "pipeline:notifications:failed"

// Publisher publishes TransitionEvents on the EVENT_CANDIDATE_MOVED channel.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

var _ pipeline.EventPublisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, ev pipeline.TransitionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	if err := p.rdb.Publish(ctx, pipeline.EventCandidateMoved, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", pipeline.EventCandidateMoved, err)
	}
	return nil
}

// FailureLog appends failed notifications to a Redis list, oldest first.
type FailureLog struct {
	rdb *redis.Client
}

func NewFailureLog(rdb *redis.Client) *FailureLog {
	return &FailureLog{rdb: rdb}
}

var _ pipeline.FailureLog = (*FailureLog)(nil)

func (f *FailureLog) Record(ctx context.Context, rec pipeline.FailedNotification) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal failed notification: %w", err)
	}
	if err := f.rdb.RPush(ctx, FailedNotificationsKey, payload).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", FailedNotificationsKey, err)
	}
	return nil
}

// List returns up to limit recorded failures, oldest first. limit <= 0
// returns all of them.
func (f *FailureLog) List(ctx context.Context, limit int64) ([]pipeline.FailedNotification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}
	raw, err := f.rdb.LRange(ctx, FailedNotificationsKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", FailedNotificationsKey, err)
	}
	return decodeFailures(raw), nil
}

func decodeFailures(raw []string) []pipeline.FailedNotification {
	out := make([]pipeline.FailedNotification, 0, len(raw))
	for _, s := range raw {
		var rec pipeline.FailedNotification
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
