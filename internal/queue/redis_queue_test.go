package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
)

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := zerolog.Nop()
	return NewRedisQueue(client, &logger)
}

func TestEnqueueThenDequeueRoundTrips(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := model.SnipeJob{ID: "s1-mintA-1", SniperID: "s1", Mint: "mintA", Priority: 50}
	require.NoError(t, q.Enqueue(ctx, job))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID, dequeued.ID)
	assert.Equal(t, job.Mint, dequeued.Mint)

	n, err = q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDequeueOrdersByPriorityThenFIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, model.SnipeJob{ID: "low-priority", Priority: 90}))
	require.NoError(t, q.Enqueue(ctx, model.SnipeJob{ID: "high-priority-first", Priority: 10}))
	require.NoError(t, q.Enqueue(ctx, model.SnipeJob{ID: "high-priority-second", Priority: 10}))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "high-priority-first", first.ID)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "high-priority-second", second.ID)

	third, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "low-priority", third.ID)
}

func TestDequeueBlocksUntilEnqueueThenReturns(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	result := make(chan *model.SnipeJob, 1)
	go func() {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		result <- job
	}()

	time.Sleep(75 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, model.SnipeJob{ID: "late-arrival", Priority: 50}))

	select {
	case job := <-result:
		assert.Equal(t, "late-arrival", job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue never returned after enqueue")
	}
}

func TestDequeueReturnsOnContextCancel(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("dequeue never returned after context cancel")
	}
}
