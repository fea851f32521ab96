// Package port defines the seams between the pipeline's core logic and
// everything external to it — RPC, bundle submission, persistence, locking,
// eventing — the way the teacher's internal/domain/port package isolates
// MarketCache and EventBus behind interfaces rather than concrete clients.
package port

import (
	"context"
	"time"

	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// AccountInfo is the decoded result of a getAccountInfo RPC call.
type AccountInfo struct {
	Owner    wire.Pubkey
	Lamports uint64
	Data     []byte
}

// ProgramAccount pairs an account's address with its decoded info, as
// returned from getProgramAccounts.
type ProgramAccount struct {
	Pubkey  wire.Pubkey
	Account AccountInfo
}

// ProgramAccountsFilter narrows a getProgramAccounts call to the bytes the
// resolver actually needs (spec §4.2/§4.3: vault and coin-creator lookups
// rely on exact byte-offset memcmp filters, never the documented-unstable
// full layout).
type ProgramAccountsFilter struct {
	Offset int
	Bytes  []byte
}

// SimulateResult is the outcome of simulateTransaction.
type SimulateResult struct {
	Err          string
	Logs         []string
	UnitsConsumed uint64
}

// DecodedInstruction is one parsed instruction from a historical
// transaction — used by the creator resolver to walk both top-level and
// inner instructions looking for the AMM swap (spec §4.6).
type DecodedInstruction struct {
	ProgramID wire.Pubkey
	Accounts  []wire.Pubkey
	Data      []byte
}

// DecodedTransaction is a fully parsed historical transaction.
type DecodedTransaction struct {
	Signature         string
	Instructions      []DecodedInstruction
	InnerInstructions []DecodedInstruction
}

// RPCClient is the external-service adapter's RPC surface (component C1).
// Every method is expected to be wrapped with retry/backoff and a circuit
// breaker by the concrete implementation in internal/adapter/rpc.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context) (blockhash [32]byte, lastValidBlockHeight uint64, err error)
	GetAccountInfo(ctx context.Context, addr wire.Pubkey) (*AccountInfo, error)
	GetProgramAccounts(ctx context.Context, program wire.Pubkey, filters []ProgramAccountsFilter) ([]ProgramAccount, error)
	GetTokenAccountBalance(ctx context.Context, tokenAccount wire.Pubkey) (amount uint64, decimals uint8, err error)
	GetBalance(ctx context.Context, addr wire.Pubkey) (lamports uint64, err error)
	SimulateTransaction(ctx context.Context, tx *wire.Transaction) (*SimulateResult, error)
	SendTransaction(ctx context.Context, tx *wire.Transaction, preflight bool, maxRetries int) (signature string, err error)
	GetSignatureStatus(ctx context.Context, signature string) (confirmed bool, err error)
	GetAddressLookupTable(ctx context.Context, addr wire.Pubkey) (*wire.AddressLookupTableAccount, error)
	GetSignaturesForAddress(ctx context.Context, addr wire.Pubkey, limit int) ([]string, error)
	GetTransaction(ctx context.Context, signature string) (*DecodedTransaction, error)
}

// BundleResult is the outcome of submitting a bundle to an MEV relay.
type BundleResult struct {
	BundleID string
	Accepted bool
}

// BundleStatus is the outcome of one getBundleStatuses poll (spec §4.5
// "mev-parallel"): ConfirmationStatus is one of "", "confirmed",
// "finalized", or "failed"; Err is non-empty on an on-chain failure.
// Signature is the first entry of the status's transactions[] list.
type BundleStatus struct {
	ConfirmationStatus string
	Err                string
	Signature          string
}

// BundleClient submits pre-signed, base58-encoded transaction bundles to
// an MEV relay (component C1/C7).
type BundleClient interface {
	Endpoint() string
	SubmitBundle(ctx context.Context, txs []*wire.Transaction, tipLamports uint64) (*BundleResult, error)
	GetBundleStatus(ctx context.Context, bundleID string) (*BundleStatus, error)
}

// EnrichedTokenInfo is the subset of an enhanced-tx/quote API response the
// filter engine needs to evaluate sniper filters beyond raw on-chain data
// (spec §4.6: holder count, socials, creator score).
type EnrichedTokenInfo struct {
	Mint              string
	HolderCount       int
	DevHoldingPct     float64
	Top10HoldingPct   float64
	VolumeUSD         float64
	HasTwitter        bool
	HasTelegram       bool
	HasWebsite        bool
	TwitterFollowers  int
	CreatorScore      float64
	LPLocked          bool
	DexPaid           bool
	FetchedAt         time.Time
}

// EnrichmentClient fetches off-chain-derived token metadata used by
// filters that require more than what's on the migration event itself.
type EnrichmentClient interface {
	GetTokenInfo(ctx context.Context, mint string) (*EnrichedTokenInfo, error)
}

// RouterQuoteRequest describes the swap the router-mediated path (C5) is
// asking an external router API to build.
type RouterQuoteRequest struct {
	Mint         string
	IsBuy        bool
	AmountIn     uint64
	MinAmountOut uint64
	UserPubkey   wire.Pubkey
}

// RouterTransaction is a router-built transaction before our own
// compute-budget/fee/tip instructions are wrapped around it.
type RouterTransaction struct {
	Instructions        []wire.Instruction
	AddressTableLookups []wire.AddressLookupTableAccount
}

// RouterClient fetches a pre-built swap transaction from the legacy AMM
// family's router API, used by the router-mediated transaction-builder
// path (spec §4.4) for pools still on the older AMM.
type RouterClient interface {
	BuildSwap(ctx context.Context, req RouterQuoteRequest) (*RouterTransaction, error)
}
