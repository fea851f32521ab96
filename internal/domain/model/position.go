package model

import "time"

// PositionStatus tracks a sniped position through its lifecycle.
type PositionStatus string

const (
	PositionStatusOpening PositionStatus = "opening"
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusSelling PositionStatus = "selling"
	PositionStatusClosed  PositionStatus = "closed"
)

// SellReason identifies what triggered a sell, mirrored from spec §4.8 C11.
type SellReason string

const (
	SellReasonManual       SellReason = "manual"
	SellReasonTakeProfit   SellReason = "take_profit"
	SellReasonStopLoss     SellReason = "stop_loss"
	SellReasonTrailingStop SellReason = "trailing_stop"
)

// Position is owned by a user, references the SniperConfig and Wallet that
// created it, and is the source of truth for exit-trigger evaluation
// upstream of C11.
type Position struct {
	ID            string
	User          string
	Wallet        string
	SniperID      string
	Mint          string
	Status        PositionStatus
	EntrySol      float64
	EntryTokens   float64
	EntryPrice    float64 // EntrySol / EntryTokens
	EntryMcap     float64
	CurrentTokens float64
	ExitSol       *float64
	ExitPrice     *float64
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

// ExecutionFees breaks out the three fee components attached to every
// ExecutionResult.
type ExecutionFees struct {
	Platform float64
	Tip      float64
	Network  float64
}

// ExecutionResult is the outcome of running C7 (the submission engine) for
// either a buy (from C10) or a sell (from C11).
type ExecutionResult struct {
	Success    bool
	Signature  string
	Tokens     float64
	SolSpent   float64
	SolReceived float64
	Fees       ExecutionFees
	Err        error
}
