package submission

import (
	"context"
	"time"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// confirmInitialInterval, confirmMaxInterval, confirmGrowth, and
// confirmTimeout implement spec §4.5 "Confirmation polling (non-bundle
// paths)": 400ms initial interval growing by x1.3 up to 1500ms, 12s total.
const (
	confirmInitialInterval = 400 * time.Millisecond
	confirmMaxInterval     = 1500 * time.Millisecond
	confirmGrowth          = 1.3
	confirmTimeout         = 12 * time.Second
)

// pollConfirmation polls GetSignatureStatus with a growing interval until
// the signature confirms, an error is reported, or confirmTimeout elapses.
func pollConfirmation(ctx context.Context, rpc port.RPCClient, signature string) bool {
	deadline := time.Now().Add(confirmTimeout)
	interval := confirmInitialInterval

	for {
		confirmed, err := rpc.GetSignatureStatus(ctx, signature)
		if err == nil && confirmed {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * confirmGrowth)
		if interval > confirmMaxInterval {
			interval = confirmMaxInterval
		}
	}
}

// bundleStatusPollInterval and bundleStatusTimeout implement spec §4.5
// "mev-parallel": poll getBundleStatuses at 250ms for up to 3s.
const (
	bundleStatusPollInterval = 250 * time.Millisecond
	bundleStatusTimeout      = 3 * time.Second
)

// pollBundleStatus returns the landed signature once the bundle's
// confirmation status reaches confirmed/finalized, or ok=false on an
// explicit failure/error or on timeout.
func pollBundleStatus(ctx context.Context, client port.BundleClient, bundleID string) (signature string, ok bool) {
	deadline := time.Now().Add(bundleStatusTimeout)
	ticker := time.NewTicker(bundleStatusPollInterval)
	defer ticker.Stop()

	for {
		status, err := client.GetBundleStatus(ctx, bundleID)
		if err == nil && status != nil {
			if status.Err != "" || status.ConfirmationStatus == "failed" {
				return "", false
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return status.Signature, true
			}
		}

		if time.Now().After(deadline) {
			return "", false
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-ticker.C:
		}
	}
}
