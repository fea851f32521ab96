package model

import "time"

// TokenProgram distinguishes the standard SPL token program from the
// extended ("Token-2022") program. Detected from the migrate instruction's
// account list (index 19); it governs which ATAs get created downstream.
type TokenProgram string

const (
	TokenProgramStandard TokenProgram = "spl-token"
	TokenProgramExtended TokenProgram = "spl-token-2022"
)

// MaxMigrationAge is the freshness cap enforced at detection time (spec §3).
const MaxMigrationAge = 60 * time.Second

// OrchestratorMaxMigrationAge is the tighter freshness cap re-checked by the
// orchestrator (spec §4.2) to compensate for detector-side latency.
const OrchestratorMaxMigrationAge = 30 * time.Second

// Migration is the immutable event produced once a bonding-curve token
// graduates to a constant-product AMM pool.
type Migration struct {
	Mint             string
	Pool             string
	CoinCreator      string // may be empty; resolved lazily by C3 if so
	Name             string
	Symbol           string
	InitialLiquidity float64 // SOL
	InitialMcap      float64 // USD, may be zero if unknown
	TokenProgram     TokenProgram
	SourceTimestamp  time.Time
	DetectedAt       time.Time
	DetectionLatency time.Duration
}

// Fresh reports whether the migration is still within maxAge of its source
// timestamp, measured against now. Used both at detection (60s) and
// orchestration (30s) per spec invariant 4.
func (m Migration) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(m.SourceTimestamp) <= maxAge
}

// EligibleSuffix is the launchpad mint-address suffix that marks a token as
// belonging to the bonding-curve family this pipeline watches.
const EligibleSuffix = "pump"
