package orchestrator

import (
	"strings"
	"time"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// evaluate reports whether m satisfies f, given now for age-based checks
// and enriched, which is nil when f.NeedsEnrichment() is false and the
// orchestrator skipped the enrichment call entirely (spec §4.2 step 3).
func evaluate(f model.SniperFilters, m model.Migration, now time.Time, enriched *port.EnrichedTokenInfo) bool {
	if f.MinLiquidity != nil && m.InitialLiquidity < *f.MinLiquidity {
		return false
	}
	if f.MaxMcap != nil && m.InitialMcap > *f.MaxMcap {
		return false
	}
	if f.MaxMigrationAgeMinutes != nil {
		maxAge := time.Duration(*f.MaxMigrationAgeMinutes) * time.Minute
		if now.Sub(m.SourceTimestamp) > maxAge {
			return false
		}
	}
	if len(f.NamePatterns) > 0 && !matchesAny(f.NamePatterns, m.Name, m.Symbol) {
		return false
	}
	if len(f.ExcludedPatterns) > 0 && matchesAny(f.ExcludedPatterns, m.Name, m.Symbol) {
		return false
	}

	if !f.NeedsEnrichment() {
		return true
	}
	if enriched == nil {
		// Enrichment was required but unavailable (the fetch failed); fail
		// closed rather than snipe on incomplete data.
		return false
	}

	if f.MinVolumeUSD != nil && enriched.VolumeUSD < *f.MinVolumeUSD {
		return false
	}
	if f.MinHolders != nil && enriched.HolderCount < *f.MinHolders {
		return false
	}
	if f.MaxDevPct != nil && enriched.DevHoldingPct > *f.MaxDevPct {
		return false
	}
	if f.MaxTop10Pct != nil && enriched.Top10HoldingPct > *f.MaxTop10Pct {
		return false
	}
	if f.RequireTwitter && !enriched.HasTwitter {
		return false
	}
	if f.RequireTelegram && !enriched.HasTelegram {
		return false
	}
	if f.RequireWebsite && !enriched.HasWebsite {
		return false
	}
	if f.MinTwitterFollowers != nil && enriched.TwitterFollowers < *f.MinTwitterFollowers {
		return false
	}
	if f.MinCreatorScore != nil && enriched.CreatorScore < *f.MinCreatorScore {
		return false
	}
	if f.RequireLPLock && !enriched.LPLocked {
		return false
	}
	if f.RequireDexPaid && !enriched.DexPaid {
		return false
	}
	return true
}

func matchesAny(patterns []string, fields ...string) bool {
	for _, p := range patterns {
		needle := strings.ToLower(p)
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
	}
	return false
}
