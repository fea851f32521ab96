package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

type fakeRPC struct {
	port.RPCClient
	accounts       []port.ProgramAccount
	accountsErr    error
	gpaCalls       int
	failFirstNCalls int

	sigs    []string
	sigsErr error
	txs     map[string]*port.DecodedTransaction
}

func (f *fakeRPC) GetProgramAccounts(ctx context.Context, program wire.Pubkey, filters []port.ProgramAccountsFilter) ([]port.ProgramAccount, error) {
	f.gpaCalls++
	if f.gpaCalls <= f.failFirstNCalls {
		return nil, nil
	}
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return f.accounts, nil
}

func (f *fakeRPC) GetSignaturesForAddress(ctx context.Context, addr wire.Pubkey, limit int) ([]string, error) {
	return f.sigs, f.sigsErr
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (*port.DecodedTransaction, error) {
	tx, ok := f.txs[signature]
	if !ok {
		return nil, errors.New("not found")
	}
	return tx, nil
}

func buildPoolAccountData(mint, quoteMint, baseVault, quoteVault wire.Pubkey) []byte {
	data := make([]byte, poolAccountDataSize)
	copy(data[baseMintOffset:], mint[:])
	copy(data[quoteMintOffset:], quoteMint[:])
	copy(data[baseVaultOffset:], baseVault[:])
	copy(data[quoteVaultOffset:], quoteVault[:])
	return data
}

func TestPoolResolver_ParsesVaultsFromAccountBytes(t *testing.T) {
	mint := wire.Pubkey{1}
	pool := wire.Pubkey{2}
	baseVault := wire.Pubkey{3}
	quoteVault := wire.Pubkey{4}

	f := &fakeRPC{accounts: []port.ProgramAccount{
		{Pubkey: pool, Account: port.AccountInfo{Data: buildPoolAccountData(mint, wrappedSolMint, baseVault, quoteVault)}},
	}}

	r := NewPoolResolver(f, wire.Pubkey{99}, zerolog.Nop())
	info, err := r.Resolve(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, pool, info.Pool)
	assert.Equal(t, baseVault, info.BaseVault)
	assert.Equal(t, quoteVault, info.QuoteVault)
}

func TestPoolResolver_CachesWithinTTL(t *testing.T) {
	mint := wire.Pubkey{1}
	pool := wire.Pubkey{2}
	f := &fakeRPC{accounts: []port.ProgramAccount{
		{Pubkey: pool, Account: port.AccountInfo{Data: buildPoolAccountData(mint, wrappedSolMint, wire.Pubkey{3}, wire.Pubkey{4})}},
	}}
	r := NewPoolResolver(f, wire.Pubkey{99}, zerolog.Nop())

	_, err := r.Resolve(context.Background(), mint)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), mint)
	require.NoError(t, err)

	assert.Equal(t, 1, f.gpaCalls)
}

func TestPoolResolver_RetriesBeforeSucceeding(t *testing.T) {
	mint := wire.Pubkey{1}
	pool := wire.Pubkey{2}
	f := &fakeRPC{
		failFirstNCalls: 2,
		accounts: []port.ProgramAccount{
			{Pubkey: pool, Account: port.AccountInfo{Data: buildPoolAccountData(mint, wrappedSolMint, wire.Pubkey{3}, wire.Pubkey{4})}},
		},
	}
	orig := poolDiscoveryInterval
	poolDiscoveryInterval = time.Millisecond
	defer func() { poolDiscoveryInterval = orig }()
	r := NewPoolResolver(f, wire.Pubkey{99}, zerolog.Nop())
	info, err := r.Resolve(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, pool, info.Pool)
	assert.Equal(t, 3, f.gpaCalls)
}

func TestCreatorResolver_UsesProvidedCreatorDirectly(t *testing.T) {
	f := &fakeRPC{}
	r := NewCreatorResolver(f, wire.Pubkey{9}, zerolog.Nop())
	provided := wire.Pubkey{42}

	got, err := r.Resolve(context.Background(), "mint1", wire.Pubkey{2}, provided)
	require.NoError(t, err)
	assert.Equal(t, provided, got)
	assert.Equal(t, 0, len(f.sigs))
}

func TestCreatorResolver_FindsCreatorInTopLevelInstruction(t *testing.T) {
	pool := wire.Pubkey{2}
	ammProgram := wire.Pubkey{9}
	creator := wire.Pubkey{77}

	accounts := make([]wire.Pubkey, 19)
	accounts[0] = pool
	accounts[18] = creator

	f := &fakeRPC{
		sigs: []string{"sig1"},
		txs: map[string]*port.DecodedTransaction{
			"sig1": {
				Signature:    "sig1",
				Instructions: []port.DecodedInstruction{{ProgramID: ammProgram, Accounts: accounts}},
			},
		},
	}
	r := NewCreatorResolver(f, ammProgram, zerolog.Nop())
	got, err := r.Resolve(context.Background(), "mint1", pool, wire.Pubkey{})
	require.NoError(t, err)
	assert.Equal(t, creator, got)
}

func TestCreatorResolver_RejectsMultiHopArtifact(t *testing.T) {
	pool := wire.Pubkey{2}
	otherPool := wire.Pubkey{3}
	ammProgram := wire.Pubkey{9}

	accounts := make([]wire.Pubkey, 19)
	accounts[0] = otherPool // not the target pool
	accounts[18] = wire.Pubkey{77}

	f := &fakeRPC{
		sigs: []string{"sig1"},
		txs: map[string]*port.DecodedTransaction{
			"sig1": {Instructions: []port.DecodedInstruction{{ProgramID: ammProgram, Accounts: accounts}}},
		},
	}
	r := NewCreatorResolver(f, ammProgram, zerolog.Nop())
	_, err := r.Resolve(context.Background(), "mint1", pool, wire.Pubkey{})
	assert.Error(t, err)
}

func TestCreatorResolver_CachesAcrossCalls(t *testing.T) {
	pool := wire.Pubkey{2}
	ammProgram := wire.Pubkey{9}
	creator := wire.Pubkey{77}
	accounts := make([]wire.Pubkey, 19)
	accounts[0] = pool
	accounts[18] = creator

	f := &fakeRPC{
		sigs: []string{"sig1"},
		txs: map[string]*port.DecodedTransaction{
			"sig1": {Instructions: []port.DecodedInstruction{{ProgramID: ammProgram, Accounts: accounts}}},
		},
	}
	r := NewCreatorResolver(f, ammProgram, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "mint1", pool, wire.Pubkey{})
	require.NoError(t, err)

	f.sigs = nil // cache hit must not need signatures again
	got, err := r.Resolve(context.Background(), "mint1", pool, wire.Pubkey{})
	require.NoError(t, err)
	assert.Equal(t, creator, got)
}
