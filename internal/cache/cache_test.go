package cache

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
	blockhash  [32]byte
	lastValid  uint64
	err        error
	calls      int
	altByAddr  map[wire.Pubkey]*wire.AddressLookupTableAccount
	altErr     error
	altCalls   int
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context) ([32]byte, uint64, error) {
	f.calls++
	return f.blockhash, f.lastValid, f.err
}

func (f *fakeRPC) GetAddressLookupTable(ctx context.Context, addr wire.Pubkey) (*wire.AddressLookupTableAccount, error) {
	f.altCalls++
	if f.altErr != nil {
		return nil, f.altErr
	}
	return f.altByAddr[addr], nil
}

func TestBlockhashCache_CurrentUnusableBeforeFirstFetch(t *testing.T) {
	f := &fakeRPC{}
	c := NewBlockhashCache(f, time.Hour, time.Minute, zerolog.Nop())
	_, ok := c.Current()
	assert.False(t, ok)
}

func TestBlockhashCache_RefreshPopulatesCurrent(t *testing.T) {
	f := &fakeRPC{blockhash: [32]byte{1, 2, 3}, lastValid: 100}
	c := NewBlockhashCache(f, time.Hour, time.Minute, zerolog.Nop())
	c.refresh(context.Background())

	entry, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, [32]byte{1, 2, 3}, entry.Blockhash)
	assert.Equal(t, uint64(100), entry.LastValidBlockHeight)
}

func TestBlockhashCache_StaleEntryIsUnusable(t *testing.T) {
	f := &fakeRPC{blockhash: [32]byte{1}}
	c := NewBlockhashCache(f, time.Hour, time.Millisecond, zerolog.Nop())
	c.refresh(context.Background())
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Current()
	assert.False(t, ok)
}

func TestBlockhashCache_RefreshFailureKeepsPriorValue(t *testing.T) {
	f := &fakeRPC{blockhash: [32]byte{7}}
	c := NewBlockhashCache(f, time.Hour, time.Minute, zerolog.Nop())
	c.refresh(context.Background())

	f.err = errors.New("rpc down")
	c.refresh(context.Background())

	entry, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, [32]byte{7}, entry.Blockhash)
}

func TestALTCache_FetchesOnceAndCaches(t *testing.T) {
	addr := wire.Pubkey{9}
	table := &wire.AddressLookupTableAccount{Key: addr, Writable: []wire.Pubkey{{1}}}
	f := &fakeRPC{altByAddr: map[wire.Pubkey]*wire.AddressLookupTableAccount{addr: table}}

	c, err := NewALTCache(f, 10, zerolog.Nop())
	require.NoError(t, err)

	got1, err := c.Get(context.Background(), addr)
	require.NoError(t, err)
	got2, err := c.Get(context.Background(), addr)
	require.NoError(t, err)

	assert.Same(t, got1, got2)
	assert.Equal(t, 1, f.altCalls)
}

func TestALTCache_InvalidateForcesRefetch(t *testing.T) {
	addr := wire.Pubkey{5}
	table := &wire.AddressLookupTableAccount{Key: addr}
	f := &fakeRPC{altByAddr: map[wire.Pubkey]*wire.AddressLookupTableAccount{addr: table}}

	c, err := NewALTCache(f, 10, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.Get(context.Background(), addr)
	require.NoError(t, err)
	c.Invalidate(addr)
	_, err = c.Get(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, 2, f.altCalls)
}
