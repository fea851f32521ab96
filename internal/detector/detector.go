package detector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

const (
	migrateLogLine = "Program log: Instruction: Migrate"

	keepAliveInterval = 30 * time.Second
	staleAfter        = 60 * time.Second
	staleCheckEvery   = 5 * time.Second

	reconnectInitialBackoff = 1 * time.Second
	reconnectMaxBackoff     = 30 * time.Second
	maxReconnectAttempts    = 10

	catchUpWindow = 60 * time.Second
)

// Detector drives component C8's single long-lived subscription to the
// launchpad program's log notifications.
type Detector struct {
	Sub              port.LogSubscriptionClient
	RPC              port.RPCClient
	Migrations       port.MigrationRepository
	Bus              port.EventBus
	LaunchpadProgram wire.Pubkey
	AMMProgram       wire.Pubkey
	SolPriceUSD      float64
	FDVMultiplier    float64
	Logger           zerolog.Logger

	mu            sync.Mutex
	state         ConnState
	lastMessageAt time.Time

	dedup *signatureDedup
	mints *mintDedup
	queue *fetchQueue
}

// Run drives the connect/serve/reconnect loop until ctx is canceled or
// reconnection is exhausted (spec §4.1 "Reconnect policy").
func (d *Detector) Run(ctx context.Context) error {
	d.dedup = newSignatureDedup()
	d.mints = newMintDedup()
	d.queue = newFetchQueue(d.handleSignature)
	go d.queue.Run(ctx)

	attempts := 0
	backoff := reconnectInitialBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		d.setState(StateConnecting)
		connected, err := d.connectAndServe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if connected {
			attempts = 0
			backoff = reconnectInitialBackoff
		} else {
			attempts++
		}

		d.Logger.Warn().Err(err).Int("attempt", attempts).Msg("migration detector connection ended, reconnecting")
		d.setState(StateDisconnected)

		if attempts >= maxReconnectAttempts {
			return apperror.FatalConfig("migration detector exhausted reconnect attempts", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMaxBackoff {
			backoff = reconnectMaxBackoff
		}
	}
}

// connectAndServe connects, subscribes, runs the catch-up scan, and then
// blocks reading messages until the connection goes stale, errors, or ctx
// is canceled. The returned bool reports whether subscribing succeeded,
// which is what resets the caller's reconnect backoff.
func (d *Detector) connectAndServe(ctx context.Context) (bool, error) {
	if err := d.Sub.Connect(ctx); err != nil {
		return false, err
	}
	d.setState(StateOpenUnsubscribed)

	if err := d.Sub.Subscribe(ctx, d.LaunchpadProgram); err != nil {
		_ = d.Sub.Close()
		return false, err
	}
	d.setState(StateOpenSubscribed)
	d.setLastMessageAt(time.Now())

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go d.keepAlive(connCtx)
	go d.watchStale(connCtx, cancel)

	d.catchUpScan(ctx)

	for {
		msg, err := d.Sub.ReadMessage(connCtx)
		if err != nil {
			_ = d.Sub.Close()
			return true, err
		}
		d.setLastMessageAt(time.Now())
		d.handleMessage(ctx, msg)
	}
}

func (d *Detector) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Sub.Ping(ctx); err != nil {
				d.Logger.Warn().Err(err).Msg("migration detector keep-alive ping failed")
			}
		}
	}
}

// watchStale forces the connection closed and cancels connCtx once no
// message has arrived for staleAfter (spec §4.1 "Open -> Stale").
func (d *Detector) watchStale(connCtx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(staleCheckEvery)
	defer ticker.Stop()
	for {
		select {
		case <-connCtx.Done():
			return
		case <-ticker.C:
			if time.Since(d.getLastMessageAt()) > staleAfter {
				d.setState(StateStale)
				_ = d.Sub.Close()
				cancel()
				return
			}
		}
	}
}

func (d *Detector) handleMessage(ctx context.Context, msg *port.LogMessage) {
	if msg.SubscriptionAck {
		d.setState(StateOpenSubscribed)
		return
	}
	if msg.Signature == "" || !containsMigrateLog(msg.Logs) {
		return
	}
	if d.dedup.Seen(msg.Signature) {
		return
	}
	d.queue.Enqueue(ctx, msg.Signature, time.Now())
}

func containsMigrateLog(logs []string) bool {
	for _, line := range logs {
		if line == migrateLogLine {
			return true
		}
	}
	return false
}

// handleSignature implements spec §4.1 steps 6-9. Any failure here is
// logged and swallowed — the socket stays up (spec "Failure semantics").
// receivedAt is when the log notification first arrived, which becomes the
// migration's SourceTimestamp so Fresh() measures true end-to-end latency
// rather than however long the fetch queue took to get to it.
func (d *Detector) handleSignature(ctx context.Context, signature string, receivedAt time.Time) {
	tx, err := d.RPC.GetTransaction(ctx, signature)
	if err != nil {
		d.Logger.Debug().Err(err).Str("signature", signature).Msg("failed to fetch migration transaction")
		return
	}

	accounts, err := extractAccounts(tx, d.LaunchpadProgram, d.AMMProgram)
	if err != nil {
		d.Logger.Debug().Err(err).Str("signature", signature).Msg("failed to extract migration accounts")
		return
	}

	if !isEligible(accounts.Mint, accounts.TokenProgram) {
		return
	}

	liquiditySol := float64(largestNativeTransferLamports(tx)) / 1e9
	mcap := estimateMcap(tx, d.SolPriceUSD, d.FDVMultiplier)

	now := time.Now()
	migration := model.Migration{
		Mint:             accounts.Mint.String(),
		Pool:             accounts.Pool.String(),
		CoinCreator:      pubkeyOrEmpty(accounts.CoinCreator),
		InitialLiquidity: liquiditySol,
		InitialMcap:      mcap,
		TokenProgram:     accounts.TokenProgram,
		SourceTimestamp:  receivedAt,
		DetectedAt:       now,
		DetectionLatency: now.Sub(receivedAt),
	}
	d.emit(ctx, migration)
}

// emit applies the freshness rule and the 5-minute per-mint dedup window
// before persisting and publishing (spec §4.1 step 9).
func (d *Detector) emit(ctx context.Context, m model.Migration) {
	now := time.Now()
	if !m.Fresh(now, model.MaxMigrationAge) {
		return
	}
	if d.mints.SeenRecently(m.Mint, now) {
		return
	}
	if err := d.Migrations.Create(ctx, &m); err != nil {
		d.Logger.Warn().Err(err).Str("mint", m.Mint).Msg("failed to persist migration")
	}
	if err := d.Bus.Publish(ctx, "migrations", m); err != nil {
		d.Logger.Warn().Err(err).Str("mint", m.Mint).Msg("failed to publish migration")
	}
}

// catchUpScan re-injects migrations stored in the last catchUpWindow
// through the same emit path after every successful (re)connection (spec
// §4.1 "catch-up scan"); the freshness rule drops most of them.
func (d *Detector) catchUpScan(ctx context.Context) {
	migrations, err := d.Migrations.ListSince(ctx, time.Now().Add(-catchUpWindow))
	if err != nil {
		d.Logger.Warn().Err(err).Msg("catch-up scan failed")
		return
	}
	for _, m := range migrations {
		d.emit(ctx, m)
	}
}

func pubkeyOrEmpty(pk wire.Pubkey) string {
	if pk.IsZero() {
		return ""
	}
	return pk.String()
}

func (d *Detector) setState(s ConnState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// State returns the detector's current connection state, for health
// reporting.
func (d *Detector) State() ConnState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Detector) setLastMessageAt(t time.Time) {
	d.mu.Lock()
	d.lastMessageAt = t
	d.mu.Unlock()
}

func (d *Detector) getLastMessageAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastMessageAt
}
