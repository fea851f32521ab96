// Package position implements component C11: the position-monitor entry
// point. Spec §4.8 describes it as "symmetric" to the snipe worker (C10)
// but specified only at interface level — it is a parallel producer into
// C5+C7, not a queue consumer, since exit-trigger evaluation (take-profit,
// stop-loss, trailing-stop) lives upstream and out of scope here.
//
// Grounded on the teacher's handlePostTradeActions
// (backend/internal/domain/service/sniper_service.go), which fans out
// take-profit/stop-loss order placement over an errgroup once an order
// fills; generalized here to fan out the pre-sell SOL + both-token-program
// balance check the spec requires before a sell is allowed to proceed.
package position

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
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

const walletLockKeyPrefix = "wallet-lock:"

// minSOLLamports is the spec §4.8 floor below which a sell is refused
// outright — there isn't enough SOL left in the wallet to pay network and
// priority fees for the sell transaction itself.
const minSOLLamports = uint64(0.005 * 1_000_000_000)

// dustTokenFraction below which a remaining balance after a partial sell
// is treated as fully closed rather than leaving a dust position open.
const dustTokenFraction = 0.0001

// SellRequest is what upstream exit-trigger evaluation submits to C11.
// TokenAmount is optional — nil means "sell the entire on-chain balance",
// which spec §4.8 requires be read live rather than trusted from the
// position's cached CurrentTokens.
type SellRequest struct {
	PositionID  string
	TokenAmount *float64
	Reason      model.SellReason
}

// Monitor is component C11: the sell entry point, symmetric to Worker
// (C10) but invoked per-request instead of draining a queue.
type Monitor struct {
	Positions port.PositionRepository
	Snipers   port.SniperRepository
	Wallets   port.WalletRepository
	KeyReg    *walletcrypto.KeyRegistry
	Locker    port.Locker
	Ledger    port.LedgerRepository
	Bus       port.EventBus
	RPC       port.RPCClient

	PoolResolver    *resolver.PoolResolver
	CreatorResolver *resolver.CreatorResolver
	Blockhash       *cache.BlockhashCache
	Submission      *submission.Engine

	AMM             txbuilder.AMMParams
	PlatformFeeAddr wire.Pubkey
	PlatformFeeBps  int
	WalletLockTTL   time.Duration
	SolPriceUSD     float64
	TotalSupply     float64

	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Metrics

	Logger zerolog.Logger
}

// walletBalances is the outcome of the parallel pre-sell check spec §4.8
// requires: both token programs' ATA balance for the mint, and the
// payer's native SOL balance.
type walletBalances struct {
	standardTokens uint64
	extendedTokens uint64
	solLamports    uint64
}

// Sell runs component C11 end to end: acquire the wallet lock, verify the
// wallet has enough SOL and a non-zero token balance using live on-chain
// reads, quote and submit a sell through C7, and persist the outcome.
func (m *Monitor) Sell(ctx context.Context, req SellRequest) error {
	log := m.Logger.With().Str("position_id", req.PositionID).Str("reason", string(req.Reason)).Logger()
	start := time.Now()

	pos, err := m.Positions.GetByID(ctx, req.PositionID)
	if err != nil {
		return fmt.Errorf("load position: %w", err)
	}
	if pos.Status != model.PositionStatusOpen {
		return apperror.LogicalReject(fmt.Sprintf("position is %s, not open", pos.Status), nil)
	}

	cfg, err := m.Snipers.GetByID(ctx, pos.SniperID)
	if err != nil {
		return fmt.Errorf("sniper config lookup: %w", err)
	}
	wallet, err := m.Wallets.GetByID(ctx, pos.Wallet)
	if err != nil {
		return fmt.Errorf("wallet lookup: %w", err)
	}

	pos.Status = model.PositionStatusSelling
	if err := m.Positions.Update(ctx, pos); err != nil {
		return fmt.Errorf("mark position selling: %w", err)
	}

	lockKey := walletLockKeyPrefix + wallet.ID
	token, err := m.Locker.Acquire(ctx, lockKey, m.WalletLockTTL)
	if err != nil {
		m.revertToOpen(ctx, pos, log, "wallet busy")
		return apperror.ErrWalletBusy
	}
	defer func() {
		if err := m.Locker.Release(ctx, lockKey, token); err != nil {
			log.Error().Err(err).Msg("failed to release wallet lock")
		}
	}()

	if err := m.executeSell(ctx, *cfg, *wallet, pos, req); err != nil {
		log.Error().Err(err).Msg("sell execution failed")
		m.revertToOpen(ctx, pos, log, err.Error())
		return err
	}
	if m.Metrics != nil {
		m.Metrics.PositionsClosed.WithLabelValues(string(req.Reason)).Inc()
		metrics.ObserveDuration(m.Metrics.SellLatencySeconds, start)
	}
	return nil
}

func (m *Monitor) revertToOpen(ctx context.Context, pos *model.Position, log zerolog.Logger, reason string) {
	pos.Status = model.PositionStatusOpen
	if err := m.Positions.Update(ctx, pos); err != nil {
		log.Error().Err(err).Msg("failed to revert position to open after aborted sell")
	}
	_ = m.Bus.Publish(ctx, "snipe:sell_failed", map[string]any{
		"position_id": pos.ID, "mint": pos.Mint, "reason": reason,
	})
}

func (m *Monitor) executeSell(ctx context.Context, cfg model.SniperConfig, wallet port.WalletRecord, pos *model.Position, req SellRequest) error {
	payer, err := wire.PubkeyFromBase58(wallet.PublicKey)
	if err != nil {
		return fmt.Errorf("parse wallet public key: %w", err)
	}
	priv, err := walletcrypto.DecryptAndVerify(string(wallet.EncryptedPrivKey), strconv.Itoa(wallet.KeyVersion), m.KeyReg, payer)
	if err != nil {
		return fmt.Errorf("decrypt wallet key: %w", err)
	}
	defer walletcrypto.Zeroize(priv)

	mint, err := wire.PubkeyFromBase58(pos.Mint)
	if err != nil {
		return fmt.Errorf("parse mint: %w", err)
	}

	standardATA, err := wire.DeriveAssociatedTokenAddress(payer, mint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return fmt.Errorf("derive standard-program ata: %w", err)
	}
	extendedATA, err := wire.DeriveAssociatedTokenAddress(payer, mint, txbuilder.TokenProgramExtendedID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return fmt.Errorf("derive extended-program ata: %w", err)
	}

	balances, err := m.checkBalances(ctx, payer, standardATA, extendedATA)
	if err != nil {
		return err
	}

	baseTokenProgram := txbuilder.TokenProgramStandardID
	userBaseATA := standardATA
	actualTokens := balances.standardTokens
	if balances.extendedTokens > actualTokens {
		baseTokenProgram = txbuilder.TokenProgramExtendedID
		userBaseATA = extendedATA
		actualTokens = balances.extendedTokens
	}

	if balances.solLamports < minSOLLamports {
		return apperror.ErrInsufficientSOL
	}
	if actualTokens == 0 {
		return apperror.ErrZeroTokenBalance
	}

	tokensToSell := actualTokens
	isPartial := false
	if req.TokenAmount != nil {
		requested := uint64(*req.TokenAmount)
		if requested > 0 && requested < actualTokens {
			tokensToSell = requested
			isPartial = true
		}
	}

	poolInfo, err := m.PoolResolver.Resolve(ctx, mint)
	if err != nil {
		return fmt.Errorf("resolve pool: %w", err)
	}
	var providedCreator wire.Pubkey
	creator, err := m.CreatorResolver.Resolve(ctx, pos.Mint, poolInfo.Pool, providedCreator)
	if err != nil {
		return fmt.Errorf("resolve coin creator: %w", err)
	}

	baseReserve, _, err := m.RPC.GetTokenAccountBalance(ctx, poolInfo.BaseVault)
	if err != nil {
		return fmt.Errorf("read base vault reserve: %w", err)
	}
	quoteReserve, _, err := m.RPC.GetTokenAccountBalance(ctx, poolInfo.QuoteVault)
	if err != nil {
		return fmt.Errorf("read quote vault reserve: %w", err)
	}

	tokenProgramKind := model.TokenProgramStandard
	if baseTokenProgram == txbuilder.TokenProgramExtendedID {
		tokenProgramKind = model.TokenProgramExtended
	}
	sellQuote, err := quote.Sell(pos.Mint, quote.PoolState{
		Pool:         poolInfo.Pool.String(),
		BaseVault:    poolInfo.BaseVault.String(),
		QuoteVault:   poolInfo.QuoteVault.String(),
		CoinCreator:  creator.String(),
		TokenProgram: tokenProgramKind,
		BaseReserve:  new(big.Int).SetUint64(baseReserve),
		QuoteReserve: new(big.Int).SetUint64(quoteReserve),
	}, new(big.Int).SetUint64(tokensToSell), cfg.SlippageBps)
	if err != nil {
		return fmt.Errorf("compute sell quote: %w", err)
	}

	userQuoteATA, err := wire.DeriveAssociatedTokenAddress(payer, txbuilder.WrappedSolMint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return fmt.Errorf("derive user quote ata: %w", err)
	}
	feeReceiverQuoteATA, err := wire.DeriveAssociatedTokenAddress(m.AMM.FeeReceiver, txbuilder.WrappedSolMint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return fmt.Errorf("derive fee receiver quote ata: %w", err)
	}
	coinCreatorQuoteATA, err := wire.DeriveAssociatedTokenAddress(creator, txbuilder.WrappedSolMint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	if err != nil {
		return fmt.Errorf("derive coin creator quote ata: %w", err)
	}

	platformFeeLamports := sellQuote.MinSolOut.Uint64() * uint64(m.PlatformFeeBps) / 10000
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
		AMM:                 m.AMM,
	}

	build := func(ctx context.Context, blockhash [32]byte, tipLamports uint64) (*wire.Transaction, error) {
		tx, err := txbuilder.Build(txbuilder.BuildParams{
			IsBuy:               false,
			Payer:               payer,
			RecentBlockhash:     blockhash,
			PlatformFeeAddr:     m.PlatformFeeAddr,
			PlatformFeeLamports: platformFeeLamports,
			TipLamports:         tipLamports,
			Accounts:            accounts,
			MinOut:              sellQuote.MinSolOut.Uint64(),
			MaxIn:               tokensToSell,
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
	result, err := m.Submission.Execute(ctx, pos.Mint, submission.ExecuteParams{
		IsSell:          true,
		MEVProtected:    cfg.MEVProtected,
		BaseTipLamports: baseTipLamports,
		Build:           build,
		Blockhash:       m.Blockhash,
		SilentSuccess:   &submission.SilentSuccessParams{Owner: payer, Mint: mint},
	})
	if err != nil {
		return err
	}

	return m.persistSell(ctx, pos, req, sellQuote, result, tokensToSell, actualTokens, isPartial, platformFeeLamports, baseTipLamports)
}

// checkBalances fans out the spec §4.8 pre-sell balance check: both token
// programs' ATA and the payer's native SOL balance, all read concurrently.
func (m *Monitor) checkBalances(ctx context.Context, payer, standardATA, extendedATA wire.Pubkey) (walletBalances, error) {
	var b walletBalances
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		amount, _, err := m.RPC.GetTokenAccountBalance(ctx, standardATA)
		if err != nil {
			amount = 0
		}
		b.standardTokens = amount
		return nil
	})
	eg.Go(func() error {
		amount, _, err := m.RPC.GetTokenAccountBalance(ctx, extendedATA)
		if err != nil {
			amount = 0
		}
		b.extendedTokens = amount
		return nil
	})
	eg.Go(func() error {
		lamports, err := m.RPC.GetBalance(ctx, payer)
		if err != nil {
			return fmt.Errorf("read SOL balance: %w", err)
		}
		b.solLamports = lamports
		return nil
	})

	if err := eg.Wait(); err != nil {
		return walletBalances{}, err
	}
	return b, nil
}

func (m *Monitor) persistSell(ctx context.Context, pos *model.Position, req SellRequest, q *model.SellQuote, result *model.ExecutionResult, tokensSold, actualTokens uint64, isPartial bool, platformFeeLamports, tipLamports uint64) error {
	exitSol := float64(q.ExpectedSol.Uint64()) / float64(txbuilder.LamportsPerSol)
	tokensSoldFloat := float64(tokensSold)
	var exitPrice float64
	if tokensSoldFloat > 0 {
		exitPrice = exitSol / tokensSoldFloat
	}

	remaining := actualTokens - tokensSold
	fullyClosed := !isPartial || float64(remaining) <= float64(actualTokens)*dustTokenFraction

	now := time.Now()
	if fullyClosed {
		pos.Status = model.PositionStatusClosed
		pos.CurrentTokens = 0
		pos.ClosedAt = &now
	} else {
		pos.Status = model.PositionStatusOpen
		pos.CurrentTokens = float64(remaining)
	}
	pos.ExitSol = &exitSol
	pos.ExitPrice = &exitPrice
	if err := m.Positions.Update(ctx, pos); err != nil {
		return fmt.Errorf("persist sold position: %w", err)
	}

	rec := &port.ExecutionRecord{
		ID:          uuid.NewString(),
		PositionID:  pos.ID,
		Signature:   result.Signature,
		Kind:        "sell",
		SolAmount:   exitSol,
		PlatformFee: float64(platformFeeLamports) / float64(txbuilder.LamportsPerSol),
		TipLamports: tipLamports,
		Success:     true,
		CreatedAt:   now,
	}
	if err := m.Ledger.Append(ctx, rec); err != nil {
		m.Logger.Error().Err(err).Str("position_id", pos.ID).Msg("failed to append fee ledger entry")
	}

	topic := "position:closed"
	if !fullyClosed {
		topic = "position:reduced"
	}
	_ = m.Bus.Publish(ctx, topic, map[string]any{
		"position_id": pos.ID,
		"mint":        pos.Mint,
		"reason":      req.Reason,
		"exit_sol":    exitSol,
		"signature":   result.Signature,
	})
	return nil
}
