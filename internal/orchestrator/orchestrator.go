// Package orchestrator implements component C9: the hand-off between a
// detected migration and the priority queue a snipe worker consumes from.
// Grounded on the teacher's handlePostTradeActions errgroup fan-out
// (backend/internal/domain/service/sniper_service.go) — adapted from
// placing two independent exit orders per trade to evaluating every
// active sniper's filter predicate against one migration concurrently.
package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// snipeLockTTL is the spec §4.2 step 4 exactly-once window: once a
// sniper has been dispatched against a mint, it cannot fire again on the
// same mint for 24h even across process restarts.
const snipeLockTTL = 24 * time.Hour

// migrationsTopic is the event bus topic the detector (C8) publishes
// fresh migrations on.
const migrationsTopic = "migrations"

// Orchestrator subscribes to migration events and fans each one out
// across every active sniper's filter predicate.
type Orchestrator struct {
	Snipers    port.SniperRepository
	Locker     port.Locker
	Queue      port.Queue
	Bus        port.EventBus
	Enrichment port.EnrichmentClient
	Logger     zerolog.Logger

	// EnrichmentLimiter throttles outbound calls to the enrichment
	// service, shared across every sniper evaluated for one migration —
	// a burst of N active snipers needing enrichment for the same mint
	// should still cost at most one limiter wait per token, not N.
	EnrichmentLimiter *rate.Limiter
}

// Run subscribes to the migration topic and blocks until ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.Bus.Subscribe(migrationsTopic, func(payload []byte) {
		var m model.Migration
		if err := json.Unmarshal(payload, &m); err != nil {
			o.Logger.Warn().Err(err).Msg("failed to decode migration event")
			return
		}
		o.handleMigration(ctx, m)
	})
	<-ctx.Done()
	return ctx.Err()
}

// handleMigration implements spec §4.2 steps 1-7.
func (o *Orchestrator) handleMigration(ctx context.Context, m model.Migration) {
	now := time.Now()
	if !m.Fresh(now, model.OrchestratorMaxMigrationAge) {
		o.Logger.Debug().Str("mint", m.Mint).Msg("migration stale at orchestrator, dropped")
		return
	}

	snipers, err := o.Snipers.GetActive(ctx)
	if err != nil {
		o.Logger.Error().Err(err).Msg("failed to load active snipers")
		return
	}

	var enriched *port.EnrichedTokenInfo
	if needsEnrichment(snipers) {
		enriched = o.fetchEnrichment(ctx, m.Mint)
	}

	var eg errgroup.Group
	for i := range snipers {
		sniper := snipers[i]
		eg.Go(func() error {
			o.evaluateSniper(ctx, sniper, m, now, enriched)
			return nil
		})
	}
	_ = eg.Wait()
}

func needsEnrichment(snipers []model.SniperConfig) bool {
	for _, s := range snipers {
		if s.Filters.NeedsEnrichment() {
			return true
		}
	}
	return false
}

func (o *Orchestrator) fetchEnrichment(ctx context.Context, mint string) *port.EnrichedTokenInfo {
	if o.Enrichment == nil {
		return nil
	}
	if o.EnrichmentLimiter != nil {
		if err := o.EnrichmentLimiter.Wait(ctx); err != nil {
			return nil
		}
	}
	info, err := o.Enrichment.GetTokenInfo(ctx, mint)
	if err != nil {
		o.Logger.Warn().Err(err).Str("mint", mint).Msg("enrichment lookup failed")
		return nil
	}
	return info
}

func (o *Orchestrator) evaluateSniper(ctx context.Context, sniper model.SniperConfig, m model.Migration, now time.Time, enriched *port.EnrichedTokenInfo) {
	if !evaluate(sniper.Filters, m, now, enriched) {
		if err := o.Snipers.IncrementTokensFiltered(ctx, sniper.ID); err != nil {
			o.Logger.Warn().Err(err).Str("sniperId", sniper.ID).Msg("failed to increment tokens_filtered")
		}
		return
	}

	lockKey := snipeLockKey(sniper.ID, m.Mint)
	_, acquired, err := o.Locker.TryAcquire(ctx, lockKey, snipeLockTTL)
	if err != nil {
		o.Logger.Error().Err(err).Str("sniperId", sniper.ID).Str("mint", m.Mint).Msg("snipe lock attempt failed")
		return
	}
	if !acquired {
		o.Logger.Debug().Str("sniperId", sniper.ID).Str("mint", m.Mint).Msg("duplicate blocked: snipe lock already held")
		return
	}

	job := model.SnipeJob{
		ID:                jobID(sniper.ID, m.Mint, now),
		SniperID:          sniper.ID,
		Mint:              m.Mint,
		MigrationSnapshot: m,
		CreatedAt:         now,
		Priority:          model.Priority(sniper.PriorityFeeSOL),
		Attempts:          1,
	}
	if err := o.Queue.Enqueue(ctx, job); err != nil {
		o.Logger.Error().Err(err).Str("sniperId", sniper.ID).Str("mint", m.Mint).Msg("failed to enqueue snipe job")
		return
	}

	if err := o.Bus.Publish(ctx, "migration:matched", job); err != nil {
		o.Logger.Warn().Err(err).Str("sniperId", sniper.ID).Msg("failed to publish migration:matched")
	}
}

func snipeLockKey(sniperID, mint string) string {
	return "snipe-lock:" + sniperID + ":" + mint
}

func jobID(sniperID, mint string, now time.Time) string {
	return sniperID + "-" + mint + "-" + now.UTC().Format("20060102T150405.000000000")
}
