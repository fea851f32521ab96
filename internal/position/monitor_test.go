package position

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/cache"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/resolver"
	"github.com/BrowningVC/Migratorrr-sub000/internal/submission"
	"github.com/BrowningVC/Migratorrr-sub000/internal/txbuilder"
	"github.com/BrowningVC/Migratorrr-sub000/internal/walletcrypto"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

const (
	poolAccountDataSize = 301
	baseMintOffset      = 43
	quoteMintOffset     = 75
	baseVaultOffset     = 139
	quoteVaultOffset    = 171
)

var wrappedSolMint = wire.MustPubkeyFromBase58("So11111111111111111111111111111111111111112")

func buildPoolAccountData(mint, baseVault, quoteVault wire.Pubkey) []byte {
	data := make([]byte, poolAccountDataSize)
	copy(data[baseMintOffset:], mint[:])
	copy(data[quoteMintOffset:], wrappedSolMint[:])
	copy(data[baseVaultOffset:], baseVault[:])
	copy(data[quoteVaultOffset:], quoteVault[:])
	return data
}

type balance struct {
	amount   uint64
	decimals uint8
}

type fakeRPC struct {
	port.RPCClient

	pool      wire.Pubkey
	poolData  []byte
	signature string
	sendErr   error
	confirmed bool
	solBalErr error

	mu          sync.Mutex
	balances    map[wire.Pubkey]balance
	solBalances map[wire.Pubkey]uint64
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context) ([32]byte, uint64, error) {
	var bh [32]byte
	bh[0] = 7
	return bh, 100, nil
}

func (f *fakeRPC) GetProgramAccounts(ctx context.Context, program wire.Pubkey, filters []port.ProgramAccountsFilter) ([]port.ProgramAccount, error) {
	return []port.ProgramAccount{{Pubkey: f.pool, Account: port.AccountInfo{Data: f.poolData}}}, nil
}

func (f *fakeRPC) GetTokenAccountBalance(ctx context.Context, tokenAccount wire.Pubkey) (uint64, uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[tokenAccount]
	if !ok {
		return 0, 0, nil
	}
	return b.amount, b.decimals, nil
}

func (f *fakeRPC) GetBalance(ctx context.Context, addr wire.Pubkey) (uint64, error) {
	if f.solBalErr != nil {
		return 0, f.solBalErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.solBalances[addr], nil
}

func (f *fakeRPC) setBalance(acc wire.Pubkey, amount uint64, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[acc] = balance{amount: amount, decimals: decimals}
}

func (f *fakeRPC) setSOLBalance(acc wire.Pubkey, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solBalances[acc] = lamports
}

func (f *fakeRPC) SendTransaction(ctx context.Context, tx *wire.Transaction, preflight bool, maxRetries int) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.signature, nil
}

func (f *fakeRPC) GetSignatureStatus(ctx context.Context, signature string) (bool, error) {
	return f.confirmed, nil
}

func (f *fakeRPC) GetSignaturesForAddress(ctx context.Context, addr wire.Pubkey, limit int) ([]string, error) {
	return nil, nil
}

type fakeSniperRepo struct{ cfg model.SniperConfig }

func (r *fakeSniperRepo) GetActive(ctx context.Context) ([]model.SniperConfig, error) { return nil, nil }
func (r *fakeSniperRepo) GetByID(ctx context.Context, id string) (*model.SniperConfig, error) {
	if id != r.cfg.ID {
		return nil, assertErr("sniper not found")
	}
	cfg := r.cfg
	return &cfg, nil
}
func (r *fakeSniperRepo) IncrementTokensFiltered(ctx context.Context, id string) error { return nil }
func (r *fakeSniperRepo) Update(ctx context.Context, cfg *model.SniperConfig) error    { return nil }

type fakeWalletRepo struct{ wallet port.WalletRecord }

func (r *fakeWalletRepo) GetByID(ctx context.Context, id string) (*port.WalletRecord, error) {
	if id != r.wallet.ID {
		return nil, assertErr("wallet not found")
	}
	w := r.wallet
	return &w, nil
}

type fakeLocker struct {
	mu          sync.Mutex
	denyAcquire bool
	releases    int
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.denyAcquire {
		return "", assertErr("wallet busy")
	}
	return "lock-token", nil
}
func (l *fakeLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases++
	return nil
}
func (l *fakeLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	return "", false, nil
}

type fakePositionRepo struct {
	mu       sync.Mutex
	pos      *model.Position
	updates  []model.Position
}

func (p *fakePositionRepo) Create(ctx context.Context, pos *model.Position) error { return nil }
func (p *fakePositionRepo) GetByID(ctx context.Context, id string) (*model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos == nil || p.pos.ID != id {
		return nil, assertErr("position not found")
	}
	cp := *p.pos
	return &cp, nil
}
func (p *fakePositionRepo) GetOpenByMint(ctx context.Context, user, mint string) (*model.Position, error) {
	return nil, nil
}
func (p *fakePositionRepo) ListOpen(ctx context.Context) ([]model.Position, error) { return nil, nil }
func (p *fakePositionRepo) Update(ctx context.Context, pos *model.Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *pos
	p.pos = &cp
	p.updates = append(p.updates, cp)
	return nil
}
func (p *fakePositionRepo) ResetStuckSelling(ctx context.Context) (int64, error) { return 0, nil }
func (p *fakePositionRepo) latest() model.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.pos
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []port.ExecutionRecord
}

func (l *fakeLedger) Append(ctx context.Context, rec *port.ExecutionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *rec)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *fakeBus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	return nil
}
func (b *fakeBus) Subscribe(topic string, handler func(payload []byte)) {}
func (b *fakeBus) has(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.topics {
		if t == topic {
			return true
		}
	}
	return false
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func assertErr(msg string) error { return &testError{msg} }

type testHarness struct {
	monitor   *Monitor
	rpc       *fakeRPC
	locker    *fakeLocker
	positions *fakePositionRepo
	ledger    *fakeLedger
	bus       *fakeBus
	payer     wire.Pubkey
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	payer, err := wire.PubkeyFromPublicKey(pub)
	require.NoError(t, err)

	registry := walletcrypto.NewKeyRegistry()
	require.NoError(t, registry.AddKey("1", walletcrypto.DeriveMasterKey("test-master-secret"), true))
	ciphertext, _, err := walletcrypto.EncryptPrivateKey(priv, registry)
	require.NoError(t, err)

	mint := wire.Pubkey{10}
	pool := wire.Pubkey{20}
	baseVault := wire.Pubkey{30}
	quoteVault := wire.Pubkey{31}
	creator := wire.Pubkey{40}

	rpc := &fakeRPC{
		pool:        pool,
		poolData:    buildPoolAccountData(mint, baseVault, quoteVault),
		signature:   "sig-sell-1",
		confirmed:   true,
		balances:    make(map[wire.Pubkey]balance),
		solBalances: make(map[wire.Pubkey]uint64),
	}
	rpc.setBalance(baseVault, 50_000_000, 6)
	rpc.setBalance(quoteVault, 10_000_000_000, 9)
	rpc.setSOLBalance(payer, 100_000_000) // 0.1 SOL, well above the 0.005 floor

	standardATA, err := wire.DeriveAssociatedTokenAddress(payer, mint, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	require.NoError(t, err)
	rpc.setBalance(standardATA, 495_050, 6)

	cfg := model.SniperConfig{
		ID:             "sniper-1",
		User:           "user-1",
		WalletID:       "wallet-1",
		Active:         true,
		SnipeAmountSOL: 0.1,
		SlippageBps:    500,
		PriorityFeeSOL: 0.001,
		MEVProtected:   false,
	}
	wallet := port.WalletRecord{
		ID:               "wallet-1",
		User:             "user-1",
		PublicKey:        payer.String(),
		EncryptedPrivKey: []byte(ciphertext),
		KeyVersion:       1,
	}

	pos := &model.Position{
		ID:            "pos-1",
		User:          "user-1",
		Wallet:        wallet.ID,
		SniperID:      cfg.ID,
		Mint:          mint.String(),
		Status:        model.PositionStatusOpen,
		EntrySol:      0.1,
		EntryTokens:   495_050,
		CurrentTokens: 495_050,
		OpenedAt:      time.Now(),
	}

	locker := &fakeLocker{}
	positions := &fakePositionRepo{pos: pos}
	ledger := &fakeLedger{}
	bus := &fakeBus{}
	logger := zerolog.Nop()

	blockhashCache := cache.NewBlockhashCache(rpc, time.Minute, time.Minute, logger)

	m := &Monitor{
		Positions: positions,
		Snipers:   &fakeSniperRepo{cfg: cfg},
		Wallets:   &fakeWalletRepo{wallet: wallet},
		KeyReg:    registry,
		Locker:    locker,
		Ledger:    ledger,
		Bus:       bus,
		RPC:       rpc,

		PoolResolver:    resolver.NewPoolResolver(rpc, wire.Pubkey{99}, logger),
		CreatorResolver: resolver.NewCreatorResolver(rpc, wire.Pubkey{99}, logger),
		Blockhash:       blockhashCache,
		Submission: &submission.Engine{
			PrimaryRPC: rpc,
			StakedRPC:  rpc,
			Bus:        bus,
			Logger:     &logger,
		},
		AMM: txbuilder.AMMParams{
			AMMProgram:     wire.Pubkey{99},
			GlobalConfig:   wire.Pubkey{91},
			FeeConfig:      wire.Pubkey{92},
			EventAuthority: wire.Pubkey{93},
			VolumeAccum1:   wire.Pubkey{94},
			VolumeAccum2:   wire.Pubkey{95},
			FeeReceiver:    wire.Pubkey{96},
		},
		PlatformFeeAddr: wire.Pubkey{97},
		PlatformFeeBps:  100,
		WalletLockTTL:   time.Minute,
		SolPriceUSD:     100,
		TotalSupply:     1_000_000_000,
		Logger:          logger,
	}

	_ = creator
	return &testHarness{monitor: m, rpc: rpc, locker: locker, positions: positions, ledger: ledger, bus: bus, payer: payer}
}

func TestSellClosesPositionOnFullSellOfActualBalance(t *testing.T) {
	h := newTestHarness(t)

	err := h.monitor.Sell(context.Background(), SellRequest{PositionID: "pos-1", Reason: model.SellReasonTakeProfit})
	require.NoError(t, err)

	final := h.positions.latest()
	assert.Equal(t, model.PositionStatusClosed, final.Status)
	assert.Equal(t, 0.0, final.CurrentTokens)
	require.NotNil(t, final.ExitSol)
	assert.Greater(t, *final.ExitSol, 0.0)
	require.NotNil(t, final.ClosedAt)

	require.Len(t, h.ledger.entries, 1)
	assert.Equal(t, "sell", h.ledger.entries[0].Kind)
	assert.True(t, h.bus.has("position:closed"))
	assert.Equal(t, 1, h.locker.releases)
}

func TestSellFailsClosedWhenWalletLockDenied(t *testing.T) {
	h := newTestHarness(t)
	h.locker.denyAcquire = true

	err := h.monitor.Sell(context.Background(), SellRequest{PositionID: "pos-1", Reason: model.SellReasonManual})
	require.Error(t, err)

	final := h.positions.latest()
	assert.Equal(t, model.PositionStatusOpen, final.Status)
	assert.True(t, h.bus.has("snipe:sell_failed"))
	assert.Equal(t, 0, h.locker.releases)
}

func TestSellAbortsWhenSOLBelowFloor(t *testing.T) {
	h := newTestHarness(t)
	h.rpc.setSOLBalance(h.payer, 1_000_000) // 0.001 SOL, below the 0.005 floor

	err := h.monitor.Sell(context.Background(), SellRequest{PositionID: "pos-1", Reason: model.SellReasonStopLoss})
	require.Error(t, err)

	final := h.positions.latest()
	assert.Equal(t, model.PositionStatusOpen, final.Status)
	assert.Empty(t, h.ledger.entries)
}

func TestSellAbortsWhenTokenBalanceIsZero(t *testing.T) {
	h := newTestHarness(t)
	standardATA, err := wire.DeriveAssociatedTokenAddress(h.payer, wire.Pubkey{10}, txbuilder.TokenProgramStandardID, txbuilder.AssociatedTokenProgramID)
	require.NoError(t, err)
	h.rpc.setBalance(standardATA, 0, 6)

	err = h.monitor.Sell(context.Background(), SellRequest{PositionID: "pos-1", Reason: model.SellReasonManual})
	require.Error(t, err)

	final := h.positions.latest()
	assert.Equal(t, model.PositionStatusOpen, final.Status)
}

func TestSellPartialAmountLeavesPositionOpenWithReducedBalance(t *testing.T) {
	h := newTestHarness(t)
	partial := 100_000.0

	err := h.monitor.Sell(context.Background(), SellRequest{PositionID: "pos-1", TokenAmount: &partial, Reason: model.SellReasonManual})
	require.NoError(t, err)

	final := h.positions.latest()
	assert.Equal(t, model.PositionStatusOpen, final.Status)
	assert.InDelta(t, 395_050, final.CurrentTokens, 1)
	assert.True(t, h.bus.has("position:reduced"))
}
