package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// ALTCache resolves and caches address lookup tables. Entries never
// expire on a timer: once an ALT is fetched its writable/readonly lists
// are treated as immutable for the lifetime of the process, the same
// assumption the transaction builder relies on when compiling against a
// cached table (spec §4.5). An LRU bound keeps memory flat if the process
// sees an unbounded number of distinct router ALTs over its lifetime,
// grounded on the bounded-cache pattern used throughout the pack's L1
// clients (e.g. golang-lru for block/header caches).
type ALTCache struct {
	rpc   port.RPCClient
	log   zerolog.Logger
	cache *lru.Cache[wire.Pubkey, *wire.AddressLookupTableAccount]
}

// NewALTCache builds a cache holding up to capacity resolved tables.
func NewALTCache(rpc port.RPCClient, capacity int, log zerolog.Logger) (*ALTCache, error) {
	c, err := lru.New[wire.Pubkey, *wire.AddressLookupTableAccount](capacity)
	if err != nil {
		return nil, fmt.Errorf("alt cache: %w", err)
	}
	return &ALTCache{rpc: rpc, log: log.With().Str("component", "alt_cache").Logger(), cache: c}, nil
}

// Get returns the resolved lookup table for addr, fetching and caching it
// on first use.
func (c *ALTCache) Get(ctx context.Context, addr wire.Pubkey) (*wire.AddressLookupTableAccount, error) {
	if t, ok := c.cache.Get(addr); ok {
		return t, nil
	}
	t, err := c.rpc.GetAddressLookupTable(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve lookup table %s: %w", addr, err)
	}
	c.cache.Add(addr, t)
	return t, nil
}

// Invalidate drops a cached table, used if the builder ever detects a
// lookup index mismatch against the live account (table extended after
// caching).
func (c *ALTCache) Invalidate(addr wire.Pubkey) {
	c.cache.Remove(addr)
}
