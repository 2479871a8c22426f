// Package broker moves session activity through Redis: monitor events over
// Pub/Sub and graded results onto the stats queue.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// StatsPayload is one graded session queued for the learner stats worker.
type StatsPayload struct {
	SessionID string    `json:"session_id"`
	LearnerID string    `json:"learner_id"`
	Answered  int       `json:"answered"`
	Correct   int       `json:"correct"`
	GradedAt  time.Time `json:"graded_at"`
}

// RedisBroker publishes session events and queues stats updates.
type RedisBroker struct {
	rdb *redis.Client
}

// NewRedisBroker creates a new RedisBroker.
func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

// PublishEvent sends ev on the paper's monitor channel.
func (b *RedisBroker) PublishEvent(ctx context.Context, ev model.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.rdb.Publish(ctx, config.CacheKey.PaperMonitorChannel(ev.PaperID.String()), data).Err()
}

// PublishResult queues the learner's answer counts for the stats worker.
// Only auto-graded questions the learner actually answered are counted.
func (b *RedisBroker) PublishResult(ctx context.Context, s *model.ExamSession, result *model.GradeResult) error {
	p := StatsPayload{
		SessionID: s.ID.String(),
		LearnerID: s.LearnerID,
		GradedAt:  result.GradedAt,
	}
	for _, rec := range result.Records {
		if len(rec.Answer) == 0 || rec.IsCorrect == nil {
			continue
		}
		p.Answered++
		if *rec.IsCorrect {
			p.Correct++
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode stats payload: %w", err)
	}
	return b.rdb.RPush(ctx, config.WorkerKey.PersistStatsQueue, data).Err()
}

// Subscribe opens a Pub/Sub subscription on the paper's monitor channel.
func (b *RedisBroker) Subscribe(ctx context.Context, paperID string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.PaperMonitorChannel(paperID))
}
