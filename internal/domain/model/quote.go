package model

import "math/big"

// ExecutionTolerance is the fixed buy-side tolerance for this AMM family
// (spec §3/§9): min_tokens_out = expected_tokens * (1 - tolerance). The AMM
// treats the buy instruction as "exact-output-ish": it only spends as much
// input as needed to produce min_tokens_out, so widening the tolerance
// reduces spend rather than increasing it. If the target AMM family ever
// moves to true exact-input semantics this constant (and BuyQuote, below)
// must be revisited together.
const ExecutionTolerance = 0.05

// BuyQuote bundles constant-product buy pricing with every account the
// transaction builder (C5) needs to assemble the swap instruction.
type BuyQuote struct {
	Mint          string
	Pool          string
	BaseVault     string
	QuoteVault    string
	CoinCreator   string
	TokenProgram  TokenProgram
	TokenReserve  *big.Int
	SolReserve    *big.Int
	ExpectedTokens *big.Int
	MinTokensOut  *big.Int
	MaxSolSpend   *big.Int // always == input SOL, exactly (see ExecutionTolerance doc)
	PriceImpactPct float64
}

// SellQuote uses traditional slippage semantics: min_sol_out is a floor on
// proceeds, not a spend cap.
type SellQuote struct {
	Mint         string
	Pool         string
	BaseVault    string
	QuoteVault   string
	CoinCreator  string
	TokenProgram TokenProgram
	TokenAmount  *big.Int
	ExpectedSol  *big.Int
	MinSolOut    *big.Int
	SlippageBps  int
	PriceImpactPct float64
}
