package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

const (
	creatorAccountIndex    = 18
	poolAccountIndexInSwap = 0
	creatorHistoryLimit    = 20
)

// CreatorResolver resolves and permanently caches a mint's coin creator.
// The creator cache never evicts (spec §4.6/§4.2: "cached indefinitely
// once determined... cannot be inferred from pool data alone").
type CreatorResolver struct {
	rpc     port.RPCClient
	ammProg wire.Pubkey
	log     zerolog.Logger

	mu    sync.RWMutex
	cache map[string]wire.Pubkey // mint -> creator
}

// NewCreatorResolver constructs a resolver against the given AMM program.
func NewCreatorResolver(rpc port.RPCClient, ammProgram wire.Pubkey, log zerolog.Logger) *CreatorResolver {
	return &CreatorResolver{
		rpc:     rpc,
		ammProg: ammProgram,
		log:     log.With().Str("component", "creator_resolver").Logger(),
		cache:   make(map[string]wire.Pubkey),
	}
}

// Resolve returns mint's coin creator. providedCreator, if non-zero, is
// trusted as-is (it came from the migration event itself). Otherwise the
// permanent cache is checked, then transaction history is scanned; a
// resolver that finds nothing returns apperror.ErrNoLiquidity-class
// failure rather than falling back to the known-wrong pool-data offset
// 235 (spec §4.6(d), §9 hard rule).
func (r *CreatorResolver) Resolve(ctx context.Context, mint string, pool wire.Pubkey, providedCreator wire.Pubkey) (wire.Pubkey, error) {
	if !providedCreator.IsZero() {
		r.store(mint, providedCreator)
		return providedCreator, nil
	}
	if creator, ok := r.lookup(mint); ok {
		return creator, nil
	}

	sigs, err := r.rpc.GetSignaturesForAddress(ctx, pool, creatorHistoryLimit)
	if err != nil {
		return wire.Pubkey{}, fmt.Errorf("fetch signatures for pool %s: %w", pool, err)
	}

	for _, sig := range sigs {
		tx, err := r.rpc.GetTransaction(ctx, sig)
		if err != nil {
			r.log.Debug().Err(err).Str("signature", sig).Msg("skipping unparseable historical transaction")
			continue
		}
		if creator, found := findCreatorInTransaction(tx, r.ammProg, pool); found {
			r.store(mint, creator)
			return creator, nil
		}
	}

	return wire.Pubkey{}, apperror.LogicalReject(
		fmt.Sprintf("no coin_creator found in transaction history for mint %s", mint), nil)
}

// findCreatorInTransaction walks both top-level and inner instructions
// looking for an AMM instruction whose account[0] is the target pool,
// taking its account[18] as the creator. An AMM instruction whose
// account[0] is NOT the target pool (a multi-hop routing artifact) must
// never contribute a creator (spec invariant, §9).
func findCreatorInTransaction(tx *port.DecodedTransaction, ammProgram, pool wire.Pubkey) (wire.Pubkey, bool) {
	all := make([]port.DecodedInstruction, 0, len(tx.Instructions)+len(tx.InnerInstructions))
	all = append(all, tx.Instructions...)
	all = append(all, tx.InnerInstructions...)

	for _, ix := range all {
		if ix.ProgramID != ammProgram {
			continue
		}
		if len(ix.Accounts) <= creatorAccountIndex {
			continue
		}
		if ix.Accounts[poolAccountIndexInSwap] != pool {
			continue
		}
		return ix.Accounts[creatorAccountIndex], true
	}
	return wire.Pubkey{}, false
}

func (r *CreatorResolver) lookup(mint string) (wire.Pubkey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[mint]
	return c, ok
}

func (r *CreatorResolver) store(mint string, creator wire.Pubkey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[mint] = creator
}
