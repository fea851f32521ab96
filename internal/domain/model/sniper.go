package model

import "time"

// SniperFilters is the enumerated set of predicates a SniperConfig may
// apply against a Migration (and its on-demand enrichment data).
type SniperFilters struct {
	MinLiquidity           *float64 `json:"minLiquidity,omitempty"`
	MaxMcap                *float64 `json:"maxMcap,omitempty"`
	MinVolumeUSD           *float64 `json:"minVolumeUsd,omitempty"`
	MaxMigrationAgeMinutes *int     `json:"maxMigrationAgeMinutes,omitempty"`
	MinHolders             *int     `json:"minHolders,omitempty"`
	MaxDevPct              *float64 `json:"maxDevPct,omitempty"`
	MaxTop10Pct            *float64 `json:"maxTop10Pct,omitempty"`
	RequireTwitter         bool     `json:"requireTwitter,omitempty"`
	RequireTelegram        bool     `json:"requireTelegram,omitempty"`
	RequireWebsite         bool     `json:"requireWebsite,omitempty"`
	MinTwitterFollowers    *int     `json:"minTwitterFollowers,omitempty"`
	MinCreatorScore        *float64 `json:"minCreatorScore,omitempty"`
	RequireLPLock          bool     `json:"requireLpLock,omitempty"`
	RequireDexPaid         bool     `json:"requireDexPaid,omitempty"`
	NamePatterns           []string `json:"namePatterns,omitempty"`
	ExcludedPatterns       []string `json:"excludedPatterns,omitempty"`
}

// NeedsEnrichment reports whether evaluating these filters requires calling
// out to the enrichment service (holders/top10/socials/volume), as opposed
// to predicates that are pure functions of the Migration event alone.
func (f SniperFilters) NeedsEnrichment() bool {
	return f.MinHolders != nil ||
		f.MaxDevPct != nil ||
		f.MaxTop10Pct != nil ||
		f.RequireTwitter ||
		f.RequireTelegram ||
		f.RequireWebsite ||
		f.MinTwitterFollowers != nil ||
		f.MinCreatorScore != nil ||
		f.RequireLPLock ||
		f.RequireDexPaid ||
		f.MinVolumeUSD != nil
}

// SniperConfig is a user-owned predicate + trade-parameter set that
// dispatches an automated buy when a matching Migration occurs.
type SniperConfig struct {
	ID                string
	User              string
	WalletID          string
	Name              string
	Active            bool
	SnipeAmountSOL    float64
	SlippageBps       int
	PriorityFeeSOL    float64
	TakeProfitPct     *float64
	StopLossPct       *float64
	TrailingStopPct   *float64
	CoverInitials     bool
	MEVProtected      bool
	Filters           SniperFilters
	TokensFilteredCnt int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Priority computes the SnipeJob dispatch priority from the configured
// priority fee. Higher tip => lower numeric priority => dequeued first.
// Range is clamped to [1, 99] per spec §3.
func Priority(priorityFeeSOL float64) int {
	p := 100 - int(priorityFeeSOL*10000)
	if p < 1 {
		return 1
	}
	if p > 99 {
		return 99
	}
	return p
}

// SnipeJob is the unit of work enqueued by the orchestrator (C9) for the
// worker (C10) to execute.
type SnipeJob struct {
	ID               string
	SniperID         string
	Mint             string
	MigrationSnapshot Migration
	CreatedAt        time.Time
	Priority         int
	Attempts         int
}
