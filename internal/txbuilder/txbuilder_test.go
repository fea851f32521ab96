package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

func pk(seed byte) wire.Pubkey {
	var p wire.Pubkey
	for i := range p {
		p[i] = seed
	}
	return p
}

func testAMM() AMMParams {
	return AMMParams{
		AMMProgram:     pk(1),
		GlobalConfig:   pk(2),
		FeeConfig:      pk(3),
		EventAuthority: pk(4),
		VolumeAccum1:   pk(5),
		VolumeAccum2:   pk(6),
		FeeReceiver:    pk(7),
	}
}

func testAccounts() SwapAccountSet {
	return SwapAccountSet{
		Pool:                pk(10),
		Payer:               pk(11),
		BaseMint:            pk(12),
		UserBaseATA:         pk(13),
		UserQuoteATA:        pk(14),
		PoolBaseVault:       pk(15),
		PoolQuoteVault:      pk(16),
		FeeReceiverQuoteATA: pk(17),
		CoinCreator:         pk(18),
		CoinCreatorQuoteATA: pk(19),
		BaseTokenProgram:    TokenProgramStandardID,
		AMM:                 testAMM(),
	}
}

func TestBuildSwapAccountsBuyLayout(t *testing.T) {
	s := testAccounts()
	accounts := BuildSwapAccounts(true, s)
	require.Len(t, accounts, BuyAccountCount)
	assert.Equal(t, s.Pool, accounts[0].PubKey, "account[0] must be the pool")
	assert.Equal(t, s.CoinCreator, accounts[18].PubKey, "account[18] must be the coin creator")
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, s.AMM.VolumeAccum1, accounts[21].PubKey)
	assert.Equal(t, s.AMM.VolumeAccum2, accounts[22].PubKey)
}

func TestBuildSwapAccountsSellLayout(t *testing.T) {
	s := testAccounts()
	accounts := BuildSwapAccounts(false, s)
	require.Len(t, accounts, SellAccountCount)
	assert.Equal(t, s.Pool, accounts[0].PubKey, "account[0] must be the pool")
	assert.Equal(t, s.CoinCreator, accounts[18].PubKey, "account[18] must be the coin creator")
}

func TestValidateAccountCount(t *testing.T) {
	s := testAccounts()
	assert.NoError(t, validateAccountCount(true, s))
	assert.NoError(t, validateAccountCount(false, s))
}

func TestComputeUnitPrice(t *testing.T) {
	// tip of 0.0004 SOL (400_000 lamports) over the fixed 400_000 unit
	// limit yields a price of 1 micro-lamport per unit.
	assert.Equal(t, uint64(1), computeUnitPrice(400_000))
	assert.Equal(t, uint64(0), computeUnitPrice(0))
	assert.Equal(t, uint64(25), computeUnitPrice(10_000_000))
}

func TestRandomTipAccountIsAlwaysFromTheList(t *testing.T) {
	seen := map[wire.Pubkey]bool{}
	for i := 0; i < 50; i++ {
		seen[randomTipAccount()] = true
	}
	for got := range seen {
		found := false
		for _, want := range TipAccounts {
			if got == want {
				found = true
				break
			}
		}
		assert.True(t, found, "tip account %s not in TipAccounts", got)
	}
}

func TestBuildBuyProducesFullySignableMessage(t *testing.T) {
	s := testAccounts()
	params := BuildParams{
		IsBuy:           true,
		Payer:           s.Payer,
		RecentBlockhash: [32]byte{1, 2, 3},
		PlatformFeeAddr: pk(20),
		TipLamports:     400_000,
		Accounts:        s,
		MinOut:          1000,
		MaxIn:           2_000_000,
		WrapLamports:    2_000_000,
	}
	tx, err := Build(params)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.NotNil(t, tx.Message)
	assert.False(t, tx.FullySigned())

	serialized, err := tx.Message.Serialize()
	require.NoError(t, err)
	assert.NotEmpty(t, serialized)
}

func TestBuildSellOmitsWrapButClosesWsolAccount(t *testing.T) {
	s := testAccounts()
	params := BuildParams{
		IsBuy:           false,
		Payer:           s.Payer,
		RecentBlockhash: [32]byte{4, 5, 6},
		PlatformFeeAddr: pk(20),
		TipLamports:     400_000,
		Accounts:        s,
		MinOut:          900,
		MaxIn:           1000,
	}
	tx, err := Build(params)
	require.NoError(t, err)
	require.NotNil(t, tx)

	var sawCloseAccount, sawSyncNative bool
	for _, ix := range tx.Message.Instructions {
		if ix.ProgramIDIndex < uint8(len(tx.Message.AccountKeys)) &&
			tx.Message.AccountKeys[ix.ProgramIDIndex] == TokenProgramStandardID &&
			len(ix.Data) == 1 && ix.Data[0] == splTokenCloseAccountTag {
			sawCloseAccount = true
		}
		if ix.ProgramIDIndex < uint8(len(tx.Message.AccountKeys)) &&
			tx.Message.AccountKeys[ix.ProgramIDIndex] == TokenProgramStandardID &&
			len(ix.Data) == 1 && ix.Data[0] == splTokenSyncNativeTag {
			sawSyncNative = true
		}
	}
	assert.True(t, sawCloseAccount, "expected a close-wsol-account instruction")
	assert.False(t, sawSyncNative, "a sell must not wrap SOL")
}

func TestValidateAccountCountIgnoresAccountValues(t *testing.T) {
	s := testAccounts()
	s.AMM.VolumeAccum1 = wire.Pubkey{} // still fine; count invariant is structural, not value-based
	err := validateAccountCount(true, s)
	assert.NoError(t, err)
}

func TestSimulateTransactionPassesOnNoError(t *testing.T) {
	err := SimulateTransaction(&port.SimulateResult{}, nil)
	assert.NoError(t, err)
}

func TestSimulateTransactionPropagatesRPCError(t *testing.T) {
	err := SimulateTransaction(nil, assert.AnError)
	require.Error(t, err)
}

func TestSimulateTransactionTranslatesKnownAnchorCode(t *testing.T) {
	err := SimulateTransaction(&port.SimulateResult{Err: "custom program error: 0xbbd"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account-not-enough-keys")
	assert.Contains(t, err.Error(), "3005")
}

func TestSimulateTransactionPassesThroughUnknownError(t *testing.T) {
	err := SimulateTransaction(&port.SimulateResult{Err: "some other failure"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "some other failure")
}

func TestParseAnchorErrorCodeHex(t *testing.T) {
	code, ok := parseAnchorErrorCode("custom program error: 0xbbc")
	require.True(t, ok)
	assert.Equal(t, 3004, code)
}

func TestParseAnchorErrorCodeUnparseable(t *testing.T) {
	_, ok := parseAnchorErrorCode("insufficient funds")
	assert.False(t, ok)
}
