package submission

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/cache"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// interAttemptGap is the fixed pause between a failed attempt and the
// next one (spec §4.5 step 5).
const interAttemptGap = 25 * time.Millisecond

// stakedRPCMaxRetries and directRPCMaxRetries are the sendRawTransaction
// maxRetries values spec §4.5 fixes per path.
const (
	stakedRPCMaxRetries = 2
	directRPCMaxRetries = 3
)

// BuildAndSign assembles and signs one attempt's transaction against the
// given blockhash and tip. Kept separate from internal/txbuilder so the
// engine never needs to see a decrypted private key directly.
type BuildAndSign func(ctx context.Context, recentBlockhash [32]byte, tipLamports uint64) (*wire.Transaction, error)

// ExecuteParams describes one buy or sell execution request.
type ExecuteParams struct {
	IsSell          bool
	MEVProtected    bool
	BaseTipLamports uint64
	Build           BuildAndSign
	Blockhash       *cache.BlockhashCache
	// SilentSuccess is only consulted for sells, after every attempt in
	// the schedule has failed.
	SilentSuccess *SilentSuccessParams
}

// Engine drives component C7's attempt schedule. StakedRPC backs
// staked-rpc; BackupRPC, if non-nil, is preferred for direct-rpc, with
// PrimaryRPC as the direct-rpc fallback (spec §4.5: "backup endpoint if
// present else primary"). PrimaryRPC also backs the silent-success check.
type Engine struct {
	PrimaryRPC port.RPCClient
	BackupRPC  port.RPCClient
	StakedRPC  port.RPCClient
	Bundles    []port.BundleClient
	Bus        port.EventBus
	Logger     *zerolog.Logger
}

// Execute runs the attempt schedule for one buy or sell until a path
// confirms, the silent-success check lands a sell, or every attempt is
// exhausted.
func (e *Engine) Execute(ctx context.Context, mint string, p ExecuteParams) (*model.ExecutionResult, error) {
	schedule := scheduleFor(p.IsSell, p.MEVProtected)

	var lastErr error
	for i, attempt := range schedule {
		blockhash, ok := p.Blockhash.Current()
		if i > 0 || !ok {
			var err error
			blockhash, err = p.Blockhash.ForceRefresh(ctx)
			if err != nil {
				lastErr = apperror.Transient("refresh blockhash before attempt", err)
				time.Sleep(interAttemptGap)
				continue
			}
		}

		tipLamports := uint64(float64(p.BaseTipLamports) * attempt.TipMultiplier)

		tx, err := p.Build(ctx, blockhash.Blockhash, tipLamports)
		if err != nil {
			lastErr = apperror.Transient("build transaction for attempt", err)
			time.Sleep(interAttemptGap)
			continue
		}

		_ = e.Bus.Publish(ctx, "snipe:submitting", map[string]any{
			"mint":    mint,
			"path":    attempt.Path,
			"attempt": i + 1,
		})

		start := time.Now()
		signature, err := e.submitOnce(ctx, attempt.Path, tx, tipLamports)
		latency := time.Since(start)
		e.Logger.Debug().
			Str("path", attempt.Path).
			Int("attempt", i+1).
			Dur("latency", latency).
			Err(err).
			Msg("submission attempt")

		if err != nil {
			lastErr = err
			time.Sleep(interAttemptGap)
			continue
		}

		confirmed := attempt.Path == PathMEVParallel || pollConfirmation(ctx, e.rpcFor(attempt.Path), signature)
		if confirmed {
			return &model.ExecutionResult{Success: true, Signature: signature}, nil
		}

		lastErr = apperror.Transient("confirmation timed out", nil)
		time.Sleep(interAttemptGap)
	}

	if p.IsSell && p.SilentSuccess != nil {
		if signature, landed := e.checkSilentSuccess(ctx, *p.SilentSuccess); landed {
			e.Logger.Info().Str("mint", mint).Str("signature", signature).Msg("silent-success recovery: sell landed after all attempts timed out")
			return &model.ExecutionResult{Success: true, Signature: signature}, nil
		}
	}

	if lastErr == nil {
		lastErr = apperror.Transient("submission exhausted all attempts", nil)
	}
	return &model.ExecutionResult{Success: false, Err: lastErr}, lastErr
}

func (e *Engine) submitOnce(ctx context.Context, path string, tx *wire.Transaction, tipLamports uint64) (string, error) {
	switch path {
	case PathMEVParallel:
		return e.submitMEVParallel(ctx, tx, tipLamports)
	case PathStakedRPC:
		return e.StakedRPC.SendTransaction(ctx, tx, true, stakedRPCMaxRetries)
	case PathDirectRPC:
		return e.directRPC().SendTransaction(ctx, tx, true, directRPCMaxRetries)
	default:
		return "", apperror.FatalConfig("unknown submission path: "+path, nil)
	}
}

func (e *Engine) directRPC() port.RPCClient {
	if e.BackupRPC != nil {
		return e.BackupRPC
	}
	return e.PrimaryRPC
}

func (e *Engine) rpcFor(path string) port.RPCClient {
	if path == PathDirectRPC {
		return e.directRPC()
	}
	return e.StakedRPC
}
