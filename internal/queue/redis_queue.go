// Package queue implements component C9/C10's hand-off: a persistent,
// priority-ordered work queue between the orchestrator and the snipe
// worker. Grounded on the teacher's EventPriorityQueue
// (backend/internal/service/event_queue.go) — lower Priority value pops
// first, same as here — adapted from an in-process, in-memory slice kept
// sorted on every Push to a redis sorted set so a worker restart never
// loses queued jobs.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
)

const (
	queueKey = "snipe:queue"
	seqKey   = "snipe:queue:seq"

	// priorityScale and sequenceModulus combine a job's priority and an
	// insertion sequence number into one ZSET score: priority dominates
	// (lower priority value sorts first, matching model.Priority's
	// "lower number = more urgent"), and the sequence component breaks
	// ties in FIFO order within the same priority (spec §5 "Jobs
	// enqueued for a given priority are dequeued in FIFO order").
	priorityScale   = 1e12
	sequenceModulus = 1e12

	dequeuePollInterval = 50 * time.Millisecond
)

// RedisQueue implements port.Queue over a redis sorted set.
type RedisQueue struct {
	client *redis.Client
	logger *zerolog.Logger
}

// NewRedisQueue wraps an existing redis client.
func NewRedisQueue(client *redis.Client, logger *zerolog.Logger) *RedisQueue {
	return &RedisQueue{client: client, logger: logger}
}

// Enqueue adds job to the queue, scored by priority then insertion order.
func (q *RedisQueue) Enqueue(ctx context.Context, job model.SnipeJob) error {
	seq, err := q.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return apperror.Transient("redis incr queue sequence", err)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return apperror.Transient("marshal snipe job", err)
	}

	score := float64(job.Priority)*priorityScale + float64(seq%sequenceModulus)
	if err := q.client.ZAdd(ctx, queueKey, redis.Z{Score: score, Member: data}).Err(); err != nil {
		return apperror.Transient("redis zadd snipe job", err)
	}
	return nil
}

// Dequeue blocks until a job is available, ctx is canceled, or a redis
// error occurs, polling at dequeuePollInterval between empty checks.
func (q *RedisQueue) Dequeue(ctx context.Context) (*model.SnipeJob, error) {
	ticker := time.NewTicker(dequeuePollInterval)
	defer ticker.Stop()

	for {
		result, err := q.client.ZPopMin(ctx, queueKey, 1).Result()
		if err != nil {
			return nil, apperror.Transient("redis zpopmin snipe queue", err)
		}
		if len(result) > 0 {
			member, ok := result[0].Member.(string)
			if !ok {
				return nil, apperror.Transient("unexpected snipe queue member type", nil)
			}
			var job model.SnipeJob
			if err := json.Unmarshal([]byte(member), &job); err != nil {
				return nil, apperror.Transient("unmarshal snipe job", err)
			}
			return &job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Len reports the number of jobs currently queued.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, apperror.Transient("redis zcard snipe queue", err)
	}
	return int(n), nil
}
