// Package worker implements component C10: the single-consumer loop that
// drains the snipe queue and turns a matched migration into a confirmed
// position. Grounded on the teacher's sniper_service.go execute-then-persist
// pattern (backend/internal/domain/service/sniper_service.go), generalized
// from "place an order via exchange client" to "assemble, sign, and submit
// a Solana swap, then reconcile the actual fill from chain state."
package worker

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/cache"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/metrics"
	"github.com/BrowningVC/Migratorrr-sub000/internal/quote"
	"github.com/BrowningVC/Migratorrr-sub000/internal/resolver"
	"github.com/BrowningVC/Migratorrr-sub000/internal/submission"
	"github.com/BrowningVC/Migratorrr-sub000/internal/txbuilder"
	"github.com/BrowningVC/Migratorrr-sub000/internal/walletcrypto"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// walletLockKeyPrefix namespaces wallet-lock keys so they can never
// collide with the orchestrator's per-(sniper,mint) snipe-lock keyspace.
const walletLockKeyPrefix = "wallet-lock:"

// Worker drains the priority queue and executes one buy at a time per
// dequeued job. Multiple Worker instances (or goroutines) may run
// concurrently against the same Queue; per-wallet serialization is
// enforced by Locker, not by this type.
type Worker struct {
	Queue     port.Queue
	Snipers   port.SniperRepository
	Wallets   port.WalletRepository
	KeyReg    *walletcrypto.KeyRegistry
	Locker    port.Locker
	Positions port.PositionRepository
	Ledger    port.LedgerRepository
	Bus       port.EventBus
	RPC       port.RPCClient

	PoolResolver    *resolver.PoolResolver
	CreatorResolver *resolver.CreatorResolver
	Blockhash       *cache.BlockhashCache
	Submission      *submission.Engine

	AMM              txbuilder.AMMParams
	PlatformFeeAddr  wire.Pubkey
	PlatformFeeBps   int
	WalletLockTTL    time.Duration
	SolPriceUSD      float64
	TotalSupply      float64

	// Metrics is optional; a nil Metrics disables instrumentation
	// entirely (e.g. in tests that don't care about it).
	Metrics *metrics.Metrics

	Logger zerolog.Logger
}

// Run dequeues jobs until ctx is canceled, handling each on its own
// goroutine so a wallet-lock wait on one job never stalls an independent
// snipe queued behind it for a different wallet.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Logger.Error().Err(err).Msg("dequeue failed")
			continue
		}
		go w.handleJob(ctx, job)
	}
}

func (w *Worker) handleJob(ctx context.Context, job *model.SnipeJob) {
	log := w.Logger.With().Str("job_id", job.ID).Str("mint", job.Mint).Str("sniper_id", job.SniperID).Logger()
	start := time.Now()
	if w.Metrics != nil {
		w.Metrics.SnipesAttempted.Inc()
	}

	cfg, err := w.Snipers.GetByID(ctx, job.SniperID)
	if err != nil {
		log.Error().Err(err).Msg("sniper config lookup failed, dropping job")
		w.failSnipe("sniper_lookup_failed")
		return
	}
	wallet, err := w.Wallets.GetByID(ctx, cfg.WalletID)
	if err != nil {
		log.Error().Err(err).Msg("wallet lookup failed, dropping job")
		w.failSnipe("wallet_lookup_failed")
		return
	}

	lockKey := walletLockKeyPrefix + wallet.ID
	token, err := w.Locker.Acquire(ctx, lockKey, w.WalletLockTTL)
	if err != nil {
		log.Warn().Err(err).Msg("wallet busy, failing job without retry")
		_ = w.Bus.Publish(ctx, "snipe:failed", map[string]any{
			"job_id": job.ID, "sniper_id": job.SniperID, "mint": job.Mint, "reason": "wallet_busy",
		})
		w.failSnipe("wallet_busy")
		return
	}
	defer func() {
		if err := w.Locker.Release(ctx, lockKey, token); err != nil {
			log.Error().Err(err).Msg("failed to release wallet lock")
		}
	}()

	result, inputs, err := w.executeBuy(ctx, *cfg, *wallet, *job)
	if err != nil {
		log.Error().Err(err).Msg("buy execution failed")
		_ = w.Bus.Publish(ctx, "snipe:failed", map[string]any{
			"job_id": job.ID, "sniper_id": job.SniperID, "mint": job.Mint, "reason": err.Error(),
		})
		w.failSnipe("execution_failed")
		return
	}

	pos, err := w.persistOpenedPosition(ctx, *cfg, *wallet, *job, result, inputs)
	if err != nil {
		log.Error().Err(err).Msg("failed to persist opened position")
		w.failSnipe("persist_failed")
		return
	}

	_ = w.Bus.Publish(ctx, "position:opened", map[string]any{
		"position_id": pos.ID,
		"mint":        pos.Mint,
		"sniper_id":   pos.SniperID,
		"entry_sol":   pos.EntrySol,
		"entry_mcap":  pos.EntryMcap,
	})
	if w.Metrics != nil {
		w.Metrics.SnipesSucceeded.Inc()
		w.Metrics.PositionsOpened.Inc()
		metrics.ObserveDuration(w.Metrics.BuyLatencySeconds, start)
	}
	log.Info().Str("position_id", pos.ID).Str("signature", result.Signature).Msg("snipe buy confirmed")
}

func (w *Worker) failSnipe(reason string) {
	if w.Metrics != nil {
		w.Metrics.SnipesFailed.WithLabelValues(reason).Inc()
	}
}

// entryInputs carries the pieces executeBuy resolved that persistOpenedPosition
// needs but that don't belong on model.ExecutionResult.
type entryInputs struct {
	payer            wire.Pubkey
	userBaseATA      wire.Pubkey
	baseTokenProgram wire.Pubkey
	snipeAmountSOL   float64
	platformFeeSOL   float64
	tipLamports      uint64
}

func (w *Worker) executeBuy(ctx context.Context, cfg model.SniperConfig, wallet port.WalletRecord, job model.SnipeJob) (*model.ExecutionResult, entryInputs, error) {
	payer, err := wire.PubkeyFromBase58(wallet.PublicKey)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("parse wallet public key: %w", err)
	}
	priv, err := walletcrypto.DecryptAndVerify(string(wallet.EncryptedPrivKey), strconv.Itoa(wallet.KeyVersion), w.KeyReg, payer)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("decrypt wallet key: %w", err)
	}
	defer walletcrypto.Zeroize(priv)

	mint, err := wire.PubkeyFromBase58(job.Mint)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("parse mint: %w", err)
	}

	poolInfo, err := w.PoolResolver.Resolve(ctx, mint)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("resolve pool: %w", err)
	}

	var providedCreator wire.Pubkey
	if job.MigrationSnapshot.CoinCreator != "" {
		if pk, err := wire.PubkeyFromBase58(job.MigrationSnapshot.CoinCreator); err == nil {
			providedCreator = pk
		}
	}
	creator, err := w.CreatorResolver.Resolve(ctx, job.Mint, poolInfo.Pool, providedCreator)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("resolve coin creator: %w", err)
	}

	baseTokenProgram := txbuilder.TokenProgramStandardID
	if job.MigrationSnapshot.TokenProgram == model.TokenProgramExtended {
		baseTokenProgram = txbuilder.TokenProgramExtendedID
	}

	baseReserve, _, err := w.RPC.GetTokenAccountBalance(ctx, poolInfo.BaseVault)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("read base vault reserve: %w", err)
	}
	quoteReserve, _, err := w.RPC.GetTokenAccountBalance(ctx, poolInfo.QuoteVault)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("read quote vault reserve: %w", err)
	}

	solInLamports := uint64(cfg.SnipeAmountSOL * float64(txbuilder.LamportsPerSol))
	buyQuote, err := quote.Buy(job.Mint, quote.PoolState{
		Pool:         poolInfo.Pool.String(),
		BaseVault:    poolInfo.BaseVault.String(),
		QuoteVault:   poolInfo.QuoteVault.String(),
		CoinCreator:  creator.String(),
		TokenProgram: job.MigrationSnapshot.TokenProgram,
		BaseReserve:  new(big.Int).SetUint64(baseReserve),
		QuoteReserve: new(big.Int).SetUint64(quoteReserve),
	}, new(big.Int).SetUint64(solInLamports))
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("compute buy quote: %w", err)
	}

	userBaseATA, err := wire.DeriveAssociatedTokenAddress(payer, mint, baseTokenProgram, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("derive user base ata: %w", err)
	}
	userQuoteATA, err := wire.DeriveAssociatedTokenAddress(payer, txbuilder.WrappedSolMint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("derive user quote ata: %w", err)
	}
	feeReceiverQuoteATA, err := wire.DeriveAssociatedTokenAddress(w.AMM.FeeReceiver, txbuilder.WrappedSolMint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("derive fee receiver quote ata: %w", err)
	}
	coinCreatorQuoteATA, err := wire.DeriveAssociatedTokenAddress(creator, txbuilder.WrappedSolMint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return nil, entryInputs{}, fmt.Errorf("derive coin creator quote ata: %w", err)
	}

	platformFeeLamports := solInLamports * uint64(w.PlatformFeeBps) / 10000
	accounts := txbuilder.SwapAccountSet{
		Pool:                poolInfo.Pool,
		Payer:               payer,
		BaseMint:            mint,
		UserBaseATA:         userBaseATA,
		UserQuoteATA:        userQuoteATA,
		PoolBaseVault:       poolInfo.BaseVault,
		PoolQuoteVault:      poolInfo.QuoteVault,
		FeeReceiverQuoteATA: feeReceiverQuoteATA,
		CoinCreator:         creator,
		CoinCreatorQuoteATA: coinCreatorQuoteATA,
		BaseTokenProgram:    baseTokenProgram,
		AMM:                 w.AMM,
	}

	build := func(ctx context.Context, blockhash [32]byte, tipLamports uint64) (*wire.Transaction, error) {
		tx, err := txbuilder.Build(txbuilder.BuildParams{
			IsBuy:               true,
			Payer:               payer,
			RecentBlockhash:     blockhash,
			PlatformFeeAddr:     w.PlatformFeeAddr,
			PlatformFeeLamports: platformFeeLamports,
			TipLamports:         tipLamports,
			Accounts:            accounts,
			MinOut:              buyQuote.MinTokensOut.Uint64(),
			MaxIn:               buyQuote.MaxSolSpend.Uint64(),
			WrapLamports:        solInLamports,
		})
		if err != nil {
			return nil, err
		}
		if err := tx.Sign(priv); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		return tx, nil
	}

	baseTipLamports := uint64(cfg.PriorityFeeSOL * float64(txbuilder.LamportsPerSol))
	result, err := w.Submission.Execute(ctx, job.Mint, submission.ExecuteParams{
		IsSell:          false,
		MEVProtected:    cfg.MEVProtected,
		BaseTipLamports: baseTipLamports,
		Build:           build,
		Blockhash:       w.Blockhash,
	})
	if err != nil {
		return nil, entryInputs{}, err
	}

	return result, entryInputs{
		payer:            payer,
		userBaseATA:      userBaseATA,
		baseTokenProgram: baseTokenProgram,
		snipeAmountSOL:   cfg.SnipeAmountSOL,
		platformFeeSOL:   float64(platformFeeLamports) / float64(txbuilder.LamportsPerSol),
		tipLamports:      baseTipLamports,
	}, nil
}

// persistOpenedPosition reconciles the actual on-chain fill and writes the
// Position and the fee ledger entry (spec §4.8 step 4); handleJob
// publishes the opened event after it returns. entry_market_cap is computed from the actual execution
// price whenever the post-confirmation balance read succeeds, falling
// back to the migration's own estimate only when it doesn't (spec: "falling
// back to the migration's estimate only if execution data is missing").
func (w *Worker) persistOpenedPosition(ctx context.Context, cfg model.SniperConfig, wallet port.WalletRecord, job model.SnipeJob, result *model.ExecutionResult, inputs entryInputs) (*model.Position, error) {
	tokensReceived, entryPrice, entryMcap := w.reconcileEntry(ctx, inputs, job.MigrationSnapshot)

	pos := &model.Position{
		ID:            uuid.NewString(),
		User:          cfg.User,
		Wallet:        wallet.ID,
		SniperID:      cfg.ID,
		Mint:          job.Mint,
		Status:        model.PositionStatusOpen,
		EntrySol:      inputs.snipeAmountSOL,
		EntryTokens:   tokensReceived,
		EntryPrice:    entryPrice,
		EntryMcap:     entryMcap,
		CurrentTokens: tokensReceived,
		OpenedAt:      time.Now(),
	}
	if err := w.Positions.Create(ctx, pos); err != nil {
		return nil, fmt.Errorf("persist position: %w", err)
	}

	rec := &port.ExecutionRecord{
		ID:          uuid.NewString(),
		PositionID:  pos.ID,
		Signature:   result.Signature,
		Kind:        "buy",
		SolAmount:   inputs.snipeAmountSOL,
		PlatformFee: inputs.platformFeeSOL,
		TipLamports: inputs.tipLamports,
		Success:     true,
		CreatedAt:   time.Now(),
	}
	if err := w.Ledger.Append(ctx, rec); err != nil {
		w.Logger.Error().Err(err).Str("position_id", pos.ID).Msg("failed to append fee ledger entry")
	}

	return pos, nil
}

func (w *Worker) reconcileEntry(ctx context.Context, inputs entryInputs, snapshot model.Migration) (tokensReceived, entryPrice, entryMcap float64) {
	amount, decimals, err := w.RPC.GetTokenAccountBalance(ctx, inputs.userBaseATA)
	if err != nil || amount == 0 {
		w.Logger.Warn().Err(err).Msg("post-trade balance read failed, falling back to migration mcap estimate")
		return 0, 0, snapshot.InitialMcap
	}

	tokensReceived = float64(amount) / pow10(decimals)
	if tokensReceived <= 0 {
		return 0, 0, snapshot.InitialMcap
	}
	entryPrice = inputs.snipeAmountSOL / tokensReceived
	entryMcap = entryPrice * w.TotalSupply * w.SolPriceUSD
	return tokensReceived, entryPrice, entryMcap
}

func pow10(n uint8) float64 {
	v := 1.0
	for i := uint8(0); i < n; i++ {
		v *= 10
	}
	return v
}
