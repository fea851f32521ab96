// Package cache implements component C2: a background-refreshed cache of
// the recent blockhash, plus an LRU cache of resolved address lookup
// tables that is filled on first use (a miss fetches the table over RPC).
// Structured the way the teacher's Cache[T] generic interface
// (internal/domain/port) separates "get a maybe-valid cached value" from
// "refresh it" — for the blockhash the refresh is a ticker-driven
// background goroutine instead of lazy get-or-set, because a stale
// blockhash must never be silently served.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// BlockhashEntry is one snapshot of the latest blockhash.
type BlockhashEntry struct {
	Blockhash            [32]byte
	LastValidBlockHeight uint64
	FetchedAt            time.Time
}

// BlockhashCache refreshes the recent blockhash on a fixed interval and
// serves the latest snapshot without blocking callers on RPC latency.
type BlockhashCache struct {
	rpc      port.RPCClient
	interval time.Duration
	maxAge   time.Duration
	log      zerolog.Logger

	mu      sync.RWMutex
	current *BlockhashEntry
}

// NewBlockhashCache constructs a cache that refreshes every interval and
// treats an entry older than maxAge as unusable (spec §4.5: "never submit
// against a blockhash the cache itself considers expired").
func NewBlockhashCache(rpc port.RPCClient, interval, maxAge time.Duration, log zerolog.Logger) *BlockhashCache {
	return &BlockhashCache{rpc: rpc, interval: interval, maxAge: maxAge, log: log.With().Str("component", "blockhash_cache").Logger()}
}

// Run blocks, refreshing on every tick until ctx is cancelled. cmd/sniperd
// starts it as one long-lived goroutine.
func (c *BlockhashCache) Run(ctx context.Context) {
	c.refresh(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *BlockhashCache) refresh(ctx context.Context) {
	blockhash, lastValid, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("blockhash refresh failed, serving stale value until next tick")
		return
	}
	c.mu.Lock()
	c.current = &BlockhashEntry{Blockhash: blockhash, LastValidBlockHeight: lastValid, FetchedAt: time.Now()}
	c.mu.Unlock()
}

// ForceRefresh synchronously fetches a new blockhash and installs it,
// bypassing the ticker interval. The submission engine calls this before
// every retry past the first attempt (spec §4.5 step 1: "force-invalidate
// the blockhash cache and rebuild the transaction with the new tip") so a
// retried transaction never reuses a blockhash the first attempt already
// raced against.
func (c *BlockhashCache) ForceRefresh(ctx context.Context) (BlockhashEntry, error) {
	blockhash, lastValid, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return BlockhashEntry{}, err
	}
	entry := BlockhashEntry{Blockhash: blockhash, LastValidBlockHeight: lastValid, FetchedAt: time.Now()}
	c.mu.Lock()
	c.current = &entry
	c.mu.Unlock()
	return entry, nil
}

// Current returns the latest cached blockhash. ok is false if no entry has
// ever been fetched, or the cached entry has exceeded maxAge; in either
// case the submission engine fetches a fresh entry with ForceRefresh
// before building the attempt.
func (c *BlockhashCache) Current() (entry BlockhashEntry, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return BlockhashEntry{}, false
	}
	if time.Since(c.current.FetchedAt) > c.maxAge {
		return BlockhashEntry{}, false
	}
	return *c.current, true
}
