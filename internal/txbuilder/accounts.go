package txbuilder

import "github.com/BrowningVC/Migratorrr-sub000/internal/wire"

// SwapAccountSet carries every resolved account a buy or sell swap
// instruction needs. Vault and mint addresses must come from the pool
// resolver (C3) and quote engine (C4) — never derived — per spec §4.4.
type SwapAccountSet struct {
	Pool                 wire.Pubkey
	Payer                wire.Pubkey
	BaseMint             wire.Pubkey
	UserBaseATA          wire.Pubkey
	UserQuoteATA         wire.Pubkey
	PoolBaseVault        wire.Pubkey
	PoolQuoteVault       wire.Pubkey
	FeeReceiverQuoteATA  wire.Pubkey
	CoinCreator          wire.Pubkey
	CoinCreatorQuoteATA  wire.Pubkey
	BaseTokenProgram     wire.Pubkey
	AMM                  AMMParams
}

// BuildSwapAccounts returns the fixed-order account list for the AMM swap
// instruction: account[0] is always the pool (required by the coin-creator
// resolver's account[0]==pool guard) and account[18] is always the coin
// creator (required by the same resolver's account[18] extraction rule,
// spec §4.1/§4.6/§9). Buys append the two volume-accumulator PDAs that
// sells omit, giving exactly BuyAccountCount / SellAccountCount entries.
func BuildSwapAccounts(isBuy bool, s SwapAccountSet) []wire.AccountMeta {
	base := []wire.AccountMeta{
		{PubKey: s.Pool, IsWritable: true},                      // 0: pool
		{PubKey: s.Payer, IsSigner: true, IsWritable: true},     // 1: user
		{PubKey: s.AMM.GlobalConfig},                            // 2
		{PubKey: s.BaseMint},                                    // 3
		{PubKey: WrappedSolMint},                                // 4
		{PubKey: s.UserBaseATA, IsWritable: true},               // 5
		{PubKey: s.UserQuoteATA, IsWritable: true},               // 6
		{PubKey: s.PoolBaseVault, IsWritable: true},              // 7
		{PubKey: s.PoolQuoteVault, IsWritable: true},             // 8
		{PubKey: s.AMM.FeeConfig},                                // 9
		{PubKey: s.AMM.FeeReceiver},                               // 10
		{PubKey: s.FeeReceiverQuoteATA, IsWritable: true},         // 11
		{PubKey: s.BaseTokenProgram},                             // 12
		{PubKey: TokenProgramStandardID},                          // 13: quote (wSOL) always uses the standard program
		{PubKey: systemProgramID},                                 // 14
		{PubKey: AssociatedTokenProgramID},                        // 15
		{PubKey: s.AMM.EventAuthority},                            // 16
		{PubKey: s.AMM.AMMProgram},                                // 17
		{PubKey: s.CoinCreator},                                   // 18
		{PubKey: s.CoinCreatorQuoteATA, IsWritable: true},          // 19
		{PubKey: s.AMM.AMMProgram},                                // 20: amm authority placeholder
	}
	if !isBuy {
		return base
	}
	return append(base,
		wire.AccountMeta{PubKey: s.AMM.VolumeAccum1, IsWritable: true}, // 21
		wire.AccountMeta{PubKey: s.AMM.VolumeAccum2, IsWritable: true}, // 22
	)
}
