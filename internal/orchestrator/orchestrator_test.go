package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

type fakeSniperRepo struct {
	mu       sync.Mutex
	snipers  []model.SniperConfig
	filtered map[string]int
}

func (r *fakeSniperRepo) GetActive(ctx context.Context) ([]model.SniperConfig, error) {
	return r.snipers, nil
}
func (r *fakeSniperRepo) GetByID(ctx context.Context, id string) (*model.SniperConfig, error) {
	for i := range r.snipers {
		if r.snipers[i].ID == id {
			return &r.snipers[i], nil
		}
	}
	return nil, nil
}
func (r *fakeSniperRepo) IncrementTokensFiltered(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filtered == nil {
		r.filtered = map[string]int{}
	}
	r.filtered[id]++
	return nil
}
func (r *fakeSniperRepo) Update(ctx context.Context, cfg *model.SniperConfig) error { return nil }
func (r *fakeSniperRepo) filteredCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filtered[id]
}

type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]bool
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}
func (l *fakeLocker) Release(ctx context.Context, key, token string) error { return nil }
func (l *fakeLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return "", false, nil
	}
	l.held[key] = true
	return "tok", true, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []model.SnipeJob
}

func (q *fakeQueue) Enqueue(ctx context.Context, job model.SnipeJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *fakeQueue) Dequeue(ctx context.Context) (*model.SnipeJob, error) { return nil, nil }
func (q *fakeQueue) Len(ctx context.Context) (int, error)                { return len(q.jobs), nil }
func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type fakeOrchBus struct {
	mu        sync.Mutex
	published []string
}

func (b *fakeOrchBus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, topic)
	return nil
}
func (b *fakeOrchBus) Subscribe(topic string, handler func(payload []byte)) {}
func (b *fakeOrchBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

type fakeEnrichment struct {
	info *port.EnrichedTokenInfo
	err  error
}

func (e *fakeEnrichment) GetTokenInfo(ctx context.Context, mint string) (*port.EnrichedTokenInfo, error) {
	return e.info, e.err
}

func minFloat(v float64) *float64 { return &v }

func freshMigration(mint string) model.Migration {
	return model.Migration{
		Mint:             mint,
		InitialLiquidity: 10,
		InitialMcap:      50000,
		SourceTimestamp:  time.Now(),
	}
}

func TestHandleMigrationEnqueuesMatchingSniper(t *testing.T) {
	repo := &fakeSniperRepo{snipers: []model.SniperConfig{{ID: "s1", PriorityFeeSOL: 0.001}}}
	locker := &fakeLocker{}
	queue := &fakeQueue{}
	bus := &fakeOrchBus{}
	o := &Orchestrator{Snipers: repo, Locker: locker, Queue: queue, Bus: bus, Logger: zerolog.Nop()}

	o.handleMigration(context.Background(), freshMigration("mintA"))

	require.Equal(t, 1, queue.count())
	assert.Equal(t, "s1", queue.jobs[0].SniperID)
	assert.Equal(t, 1, bus.count())
}

func TestHandleMigrationFilterRejectionIncrementsCounter(t *testing.T) {
	repo := &fakeSniperRepo{snipers: []model.SniperConfig{{
		ID:      "s1",
		Filters: model.SniperFilters{MinLiquidity: minFloat(100)},
	}}}
	locker := &fakeLocker{}
	queue := &fakeQueue{}
	bus := &fakeOrchBus{}
	o := &Orchestrator{Snipers: repo, Locker: locker, Queue: queue, Bus: bus, Logger: zerolog.Nop()}

	o.handleMigration(context.Background(), freshMigration("mintA"))

	assert.Equal(t, 0, queue.count())
	assert.Equal(t, 1, repo.filteredCount("s1"))
}

func TestHandleMigrationDuplicateLockBlocksSecondDispatch(t *testing.T) {
	repo := &fakeSniperRepo{snipers: []model.SniperConfig{{ID: "s1"}}}
	locker := &fakeLocker{}
	queue := &fakeQueue{}
	bus := &fakeOrchBus{}
	o := &Orchestrator{Snipers: repo, Locker: locker, Queue: queue, Bus: bus, Logger: zerolog.Nop()}

	o.handleMigration(context.Background(), freshMigration("mintA"))
	o.handleMigration(context.Background(), freshMigration("mintA"))

	assert.Equal(t, 1, queue.count())
}

func TestHandleMigrationDropsStaleMigration(t *testing.T) {
	repo := &fakeSniperRepo{snipers: []model.SniperConfig{{ID: "s1"}}}
	locker := &fakeLocker{}
	queue := &fakeQueue{}
	bus := &fakeOrchBus{}
	o := &Orchestrator{Snipers: repo, Locker: locker, Queue: queue, Bus: bus, Logger: zerolog.Nop()}

	stale := freshMigration("mintA")
	stale.SourceTimestamp = time.Now().Add(-time.Minute)
	o.handleMigration(context.Background(), stale)

	assert.Equal(t, 0, queue.count())
}

func TestHandleMigrationUsesEnrichmentWhenFilterRequiresIt(t *testing.T) {
	minHolders := 50
	repo := &fakeSniperRepo{snipers: []model.SniperConfig{{
		ID:      "s1",
		Filters: model.SniperFilters{MinHolders: &minHolders},
	}}}
	locker := &fakeLocker{}
	queue := &fakeQueue{}
	bus := &fakeOrchBus{}
	enrichment := &fakeEnrichment{info: &port.EnrichedTokenInfo{HolderCount: 100}}
	o := &Orchestrator{Snipers: repo, Locker: locker, Queue: queue, Bus: bus, Enrichment: enrichment, Logger: zerolog.Nop()}

	o.handleMigration(context.Background(), freshMigration("mintA"))

	assert.Equal(t, 1, queue.count())
}

func TestHandleMigrationEnrichmentFailureFailsClosed(t *testing.T) {
	minHolders := 50
	repo := &fakeSniperRepo{snipers: []model.SniperConfig{{
		ID:      "s1",
		Filters: model.SniperFilters{MinHolders: &minHolders},
	}}}
	locker := &fakeLocker{}
	queue := &fakeQueue{}
	bus := &fakeOrchBus{}
	enrichment := &fakeEnrichment{err: assertErr("enrichment down")}
	o := &Orchestrator{Snipers: repo, Locker: locker, Queue: queue, Bus: bus, Enrichment: enrichment, Logger: zerolog.Nop()}

	o.handleMigration(context.Background(), freshMigration("mintA"))

	assert.Equal(t, 0, queue.count())
	assert.Equal(t, 1, repo.filteredCount("s1"))
}

func assertErr(msg string) error { return &testError{msg} }

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
