package port

import (
	"context"
	"time"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
)

// EventBus broadcasts domain events to in-process and cross-process
// listeners, mirroring the shape of the teacher's EventBus port but
// generalized from a single NewCoinEvent type to a topic string.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(topic string, handler func(payload []byte))
}

// Locker is a distributed mutex (component C6: wallet lock). Acquire
// blocks up to the caller's context deadline, polling at a fixed interval;
// Release is a no-op if the lock was never held or already expired.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, key, token string) error
	// TryAcquire makes a single, non-blocking set-if-absent attempt —
	// used by the orchestrator's per-(sniper,mint) exactly-once lock
	// (spec §4.2 step 4), which must not retry: a held key means
	// "duplicate blocked", not "wait and try again".
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
}

// Queue is the priority dispatch queue between the orchestrator (C9) and
// snipe workers (C10): lower Priority values are popped first.
type Queue interface {
	Enqueue(ctx context.Context, job model.SnipeJob) error
	Dequeue(ctx context.Context) (*model.SnipeJob, error)
	Len(ctx context.Context) (int, error)
}

// Notifier fans an admin alert out to whichever channels are configured
// (Telegram, Slack); a no-op implementation is used when neither is set.
type Notifier interface {
	Notify(ctx context.Context, level, message string) error
}
