// Package quote implements component C4: constant-product AMM pricing.
// Every calculation runs on math/big — spec §4.7's "no floats in the
// critical path" rule — grounded on the teacher's use of plain stdlib
// arithmetic in internal/domain/service/sniper_service.go for position
// sizing, generalized here to the exact big-integer invariant the AMM
// itself enforces.
package quote

import (
	"fmt"
	"math/big"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
)

// executionToleranceNum/Den express the fixed 5% execution tolerance from
// spec §4.7/§9 as an exact rational rather than a float constant.
const (
	executionToleranceNum = 95
	executionToleranceDen = 100
	bpsDen                = 10000
)

// PoolState is the reserve snapshot a quote is computed against.
type PoolState struct {
	Pool         string
	BaseVault    string
	QuoteVault   string
	CoinCreator  string
	TokenProgram model.TokenProgram
	BaseReserve  *big.Int // token units
	QuoteReserve *big.Int // lamports
}

// Buy computes a buy quote for spending solInLamports against state,
// following the constant-product invariant base*quote = k exactly:
// new_quote = quote + sol_in; new_base = k / new_quote; tokens_out = base -
// new_base. min_tokens_out is tokens_out scaled down by the fixed 5%
// execution tolerance; max_sol_spend is the exact input, never inflated,
// because this AMM's swap instruction is exact-output-ish (spec §9: raising
// slippage tolerance reduces spend, it never increases it).
func Buy(mint string, state PoolState, solInLamports *big.Int) (*model.BuyQuote, error) {
	if state.QuoteReserve.Sign() <= 0 || state.BaseReserve.Sign() <= 0 {
		return nil, apperror.ErrNoLiquidity
	}
	if solInLamports.Sign() <= 0 {
		return nil, fmt.Errorf("sol_in must be positive")
	}

	k := new(big.Int).Mul(state.BaseReserve, state.QuoteReserve)
	newQuote := new(big.Int).Add(state.QuoteReserve, solInLamports)
	newBase := new(big.Int).Div(k, newQuote)
	tokensOut := new(big.Int).Sub(state.BaseReserve, newBase)
	if tokensOut.Sign() <= 0 {
		return nil, apperror.ErrNoLiquidity
	}

	minTokensOut := new(big.Int).Mul(tokensOut, big.NewInt(executionToleranceNum))
	minTokensOut.Div(minTokensOut, big.NewInt(executionToleranceDen))

	priceImpact := new(big.Float).Quo(new(big.Float).SetInt(solInLamports), new(big.Float).SetInt(state.QuoteReserve))
	priceImpact.Mul(priceImpact, big.NewFloat(100))
	impact, _ := priceImpact.Float64()

	return &model.BuyQuote{
		Mint:           mint,
		Pool:           state.Pool,
		BaseVault:      state.BaseVault,
		QuoteVault:     state.QuoteVault,
		CoinCreator:    state.CoinCreator,
		TokenProgram:   state.TokenProgram,
		TokenReserve:   new(big.Int).Set(state.BaseReserve),
		SolReserve:     new(big.Int).Set(state.QuoteReserve),
		ExpectedTokens: tokensOut,
		MinTokensOut:   minTokensOut,
		MaxSolSpend:    new(big.Int).Set(solInLamports),
		PriceImpactPct: impact,
	}, nil
}

// Sell computes a sell quote for tokensIn against state using traditional
// slippage semantics (spec §4.7 "symmetric"): new_base = base + tokens_in;
// new_quote = k / new_base; sol_out = quote - new_quote; min_sol_out =
// sol_out scaled down by slippageBps/10000.
func Sell(mint string, state PoolState, tokensIn *big.Int, slippageBps int) (*model.SellQuote, error) {
	if state.QuoteReserve.Sign() <= 0 || state.BaseReserve.Sign() <= 0 {
		return nil, apperror.ErrNoLiquidity
	}
	if tokensIn.Sign() <= 0 {
		return nil, apperror.ErrZeroTokenBalance
	}
	if slippageBps < 0 || slippageBps > bpsDen {
		return nil, fmt.Errorf("slippage_bps %d out of range", slippageBps)
	}

	k := new(big.Int).Mul(state.BaseReserve, state.QuoteReserve)
	newBase := new(big.Int).Add(state.BaseReserve, tokensIn)
	newQuote := new(big.Int).Div(k, newBase)
	solOut := new(big.Int).Sub(state.QuoteReserve, newQuote)
	if solOut.Sign() <= 0 {
		return nil, apperror.ErrNoLiquidity
	}

	minSolOut := new(big.Int).Mul(solOut, big.NewInt(int64(bpsDen-slippageBps)))
	minSolOut.Div(minSolOut, big.NewInt(bpsDen))

	priceImpact := new(big.Float).Quo(new(big.Float).SetInt(tokensIn), new(big.Float).SetInt(state.BaseReserve))
	priceImpact.Mul(priceImpact, big.NewFloat(100))
	impact, _ := priceImpact.Float64()

	return &model.SellQuote{
		Mint:           mint,
		Pool:           state.Pool,
		BaseVault:      state.BaseVault,
		QuoteVault:     state.QuoteVault,
		CoinCreator:    state.CoinCreator,
		TokenProgram:   state.TokenProgram,
		TokenAmount:    new(big.Int).Set(tokensIn),
		ExpectedSol:    solOut,
		MinSolOut:      minSolOut,
		SlippageBps:    slippageBps,
		PriceImpactPct: impact,
	}, nil
}
