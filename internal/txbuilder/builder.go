package txbuilder

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// BuildParams collects everything the AMM-direct path needs to assemble
// one swap transaction (spec §4.4).
type BuildParams struct {
	IsBuy           bool
	Payer           wire.Pubkey
	RecentBlockhash [32]byte
	PlatformFeeAddr wire.Pubkey
	PlatformFeeLamports uint64
	TipLamports     uint64
	TipMultiplier   float64 // informational; caller has already applied it to TipLamports
	Accounts        SwapAccountSet
	MinOut          uint64
	MaxIn           uint64
	// WrapLamports is the exact amount wrapped into the user's wSOL ATA
	// before a buy; ignored for sells (spec §4.4 step 5: "wrapping exactly
	// max_sol_spend").
	WrapLamports uint64
}

// Build assembles the AMM-direct instruction sequence from spec §4.4
// steps 1-9 and compiles it into an unsigned v0 message. Signing happens
// separately once the caller has the decrypted wallet key (component
// boundary with internal/walletcrypto).
func Build(p BuildParams) (*wire.Transaction, error) {
	if err := validateAccountCount(p.IsBuy, p.Accounts); err != nil {
		return nil, err
	}

	var ixs []wire.Instruction

	ixs = append(ixs, wire.ComputeBudgetSetUnitLimit(ComputeUnitLimit))
	ixs = append(ixs, wire.ComputeBudgetSetUnitPrice(computeUnitPrice(p.TipLamports)))

	if p.IsBuy && p.PlatformFeeLamports > 0 {
		ixs = append(ixs, wire.SystemTransfer(p.Payer, p.PlatformFeeAddr, p.PlatformFeeLamports))
	}

	ixs = append(ixs, CreateAssociatedTokenAccountIdempotent(
		p.Payer, p.Accounts.UserBaseATA, p.Payer, p.Accounts.BaseMint, p.Accounts.BaseTokenProgram))
	ixs = append(ixs, CreateAssociatedTokenAccountIdempotent(
		p.Payer, p.Accounts.UserQuoteATA, p.Payer, WrappedSolMint, TokenProgramStandardID))

	if p.IsBuy {
		ixs = append(ixs, WrapSol(p.Payer, p.Accounts.UserQuoteATA, p.WrapLamports, TokenProgramStandardID)...)
	}

	discriminator := wire.BuyDiscriminator
	if !p.IsBuy {
		discriminator = wire.SellDiscriminator
	}
	ixs = append(ixs, wire.Instruction{
		ProgramID: p.Accounts.AMM.AMMProgram,
		Accounts:  BuildSwapAccounts(p.IsBuy, p.Accounts),
		Data:      wire.BuildSwapInstructionData(discriminator, p.MinOut, p.MaxIn),
	})

	if !p.IsBuy && p.PlatformFeeLamports > 0 {
		ixs = append(ixs, wire.SystemTransfer(p.Payer, p.PlatformFeeAddr, p.PlatformFeeLamports))
	}

	ixs = append(ixs, wire.SystemTransfer(p.Payer, randomTipAccount(), p.TipLamports))
	ixs = append(ixs, CloseWrappedSolAccount(p.Accounts.UserQuoteATA, p.Payer, TokenProgramStandardID))

	msg, err := wire.CompileMessage(p.Payer, ixs, p.RecentBlockhash, nil)
	if err != nil {
		return nil, fmt.Errorf("compile message: %w", err)
	}
	return wire.NewTransaction(msg), nil
}

// BuildRouterMediated wraps a router-fetched swap (spec §4.4
// "router-mediated"): strips the router's own compute-budget
// instructions (we set our own), resolves any address-lookup-table
// accounts the router message references through the C2 cache, and adds
// our platform-fee, tip, and close-account instructions the same as the
// AMM-direct path.
func BuildRouterMediated(ctx context.Context, router port.RouterClient, altResolve func(context.Context, wire.Pubkey) (*wire.AddressLookupTableAccount, error), p BuildParams, req port.RouterQuoteRequest) (*wire.Transaction, error) {
	routerTx, err := router.BuildSwap(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("router BuildSwap: %w", err)
	}

	var ixs []wire.Instruction
	ixs = append(ixs, wire.ComputeBudgetSetUnitLimit(ComputeUnitLimit))
	ixs = append(ixs, wire.ComputeBudgetSetUnitPrice(computeUnitPrice(p.TipLamports)))

	if p.IsBuy && p.PlatformFeeLamports > 0 {
		ixs = append(ixs, wire.SystemTransfer(p.Payer, p.PlatformFeeAddr, p.PlatformFeeLamports))
	}

	for _, ix := range routerTx.Instructions {
		if ix.ProgramID == wire.ComputeBudgetProgramID {
			continue
		}
		ixs = append(ixs, ix)
	}

	if !p.IsBuy && p.PlatformFeeLamports > 0 {
		ixs = append(ixs, wire.SystemTransfer(p.Payer, p.PlatformFeeAddr, p.PlatformFeeLamports))
	}
	ixs = append(ixs, wire.SystemTransfer(p.Payer, randomTipAccount(), p.TipLamports))
	ixs = append(ixs, CloseWrappedSolAccount(p.Accounts.UserQuoteATA, p.Payer, TokenProgramStandardID))

	lookupTables := make([]wire.AddressLookupTableAccount, 0, len(routerTx.AddressTableLookups))
	for _, lk := range routerTx.AddressTableLookups {
		resolved, err := altResolve(ctx, lk.Key)
		if err != nil {
			return nil, fmt.Errorf("resolve router lookup table %s: %w", lk.Key, err)
		}
		lookupTables = append(lookupTables, *resolved)
	}

	msg, err := wire.CompileMessage(p.Payer, ixs, p.RecentBlockhash, lookupTables)
	if err != nil {
		return nil, fmt.Errorf("compile router message: %w", err)
	}
	return wire.NewTransaction(msg), nil
}

func validateAccountCount(isBuy bool, s SwapAccountSet) error {
	accounts := BuildSwapAccounts(isBuy, s)
	want := SellAccountCount
	if isBuy {
		want = BuyAccountCount
	}
	if len(accounts) != want {
		return fmt.Errorf("swap account list has %d entries, want %d", len(accounts), want)
	}
	return nil
}

func randomTipAccount() wire.Pubkey {
	return TipAccounts[rand.Intn(len(TipAccounts))]
}

// computeUnitPrice implements spec §4.4 step 2: price = floor(tip_sol *
// LAMPORTS_PER_SOL / compute_unit_limit). Since tipLamports is already
// tip_sol * LAMPORTS_PER_SOL, this is exactly tipLamports / ComputeUnitLimit.
func computeUnitPrice(tipLamports uint64) uint64 {
	return tipLamports / uint64(ComputeUnitLimit)
}
