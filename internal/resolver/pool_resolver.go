// Package resolver implements component C3: discovering an AMM pool for a
// migrated mint, parsing its vault addresses straight out of account
// bytes, and resolving the mint's immutable "coin creator" from
// transaction history. Grounded on the teacher's retry-with-backoff style
// in internal/adapter/trade/rate_limited_executor.go, generalized from
// "retry a trade" to "retry an indexer-lag-prone getProgramAccounts call."
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

const (
	poolAccountDataSize = 301
	baseMintOffset      = 43
	quoteMintOffset     = 75
	baseVaultOffset     = 139
	quoteVaultOffset    = 171
	vaultLen            = 32

	poolCacheTTL = 5 * time.Second

	poolDiscoveryMaxRetries = 3
)

// poolDiscoveryInterval is a var (not const) so tests can shrink it to
// avoid real sleeps.
var poolDiscoveryInterval = 500 * time.Millisecond

var wrappedSolMint = wire.MustPubkeyFromBase58("So11111111111111111111111111111111111111112")

// PoolInfo is the resolved pool for a mint: its address plus the vault
// addresses read directly out of account bytes.
type PoolInfo struct {
	Pool        wire.Pubkey
	BaseVault   wire.Pubkey
	QuoteVault  wire.Pubkey
	resolvedAt  time.Time
}

type poolCacheEntry struct {
	info PoolInfo
}

// PoolResolver discovers and caches AMM pools for mints.
type PoolResolver struct {
	rpc     port.RPCClient
	ammProg wire.Pubkey
	log     zerolog.Logger

	mu    sync.Mutex
	cache map[string]poolCacheEntry // mint -> entry, TTL-bounded
}

// NewPoolResolver constructs a resolver against the given AMM program id.
func NewPoolResolver(rpc port.RPCClient, ammProgram wire.Pubkey, log zerolog.Logger) *PoolResolver {
	return &PoolResolver{
		rpc:     rpc,
		ammProg: ammProgram,
		log:     log.With().Str("component", "pool_resolver").Logger(),
		cache:   make(map[string]poolCacheEntry),
	}
}

// Resolve finds the AMM pool for mint, retrying up to 3 times with
// exponential backoff since a freshly migrated pool may not be indexed
// immediately (spec §4.6).
func (r *PoolResolver) Resolve(ctx context.Context, mint wire.Pubkey) (*PoolInfo, error) {
	if cached, ok := r.lookupCache(mint.String()); ok {
		return &cached, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = poolDiscoveryInterval
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, poolDiscoveryMaxRetries), ctx)

	attempt := 0
	var info *PoolInfo
	err := backoff.Retry(func() error {
		attempt++
		fetched, err := r.fetchOnce(ctx, mint)
		if err != nil {
			r.log.Debug().Err(err).Int("attempt", attempt).Str("mint", mint.String()).Msg("pool not yet indexed, retrying")
			return err
		}
		info = fetched
		return nil
	}, bo)
	if err != nil {
		return nil, fmt.Errorf("pool discovery for %s exhausted retries: %w", mint, err)
	}
	r.storeCache(mint.String(), *info)
	return info, nil
}

func (r *PoolResolver) fetchOnce(ctx context.Context, mint wire.Pubkey) (*PoolInfo, error) {
	accounts, err := r.rpc.GetProgramAccounts(ctx, r.ammProg, []port.ProgramAccountsFilter{
		{Offset: baseMintOffset, Bytes: mint[:]},
		{Offset: quoteMintOffset, Bytes: wrappedSolMint[:]},
	})
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts: %w", err)
	}
	for _, acc := range accounts {
		if len(acc.Account.Data) != poolAccountDataSize {
			continue
		}
		return parsePoolAccount(acc.Pubkey, acc.Account.Data)
	}
	return nil, fmt.Errorf("no pool found for mint %s", mint)
}

// parsePoolAccount reads vault addresses directly out of pool account
// bytes — these are non-derivable, real on-chain addresses, never
// computed ATAs (spec §4.6 "Vault parsing").
func parsePoolAccount(pool wire.Pubkey, data []byte) (*PoolInfo, error) {
	if len(data) != poolAccountDataSize {
		return nil, fmt.Errorf("pool account is %d bytes, want %d", len(data), poolAccountDataSize)
	}
	var base, quote wire.Pubkey
	copy(base[:], data[baseVaultOffset:baseVaultOffset+vaultLen])
	copy(quote[:], data[quoteVaultOffset:quoteVaultOffset+vaultLen])
	return &PoolInfo{Pool: pool, BaseVault: base, QuoteVault: quote, resolvedAt: time.Now()}, nil
}

func (r *PoolResolver) lookupCache(mint string) (PoolInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[mint]
	if !ok || time.Since(e.info.resolvedAt) > poolCacheTTL {
		return PoolInfo{}, false
	}
	return e.info, true
}

func (r *PoolResolver) storeCache(mint string, info PoolInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[mint] = poolCacheEntry{info: info}
}
