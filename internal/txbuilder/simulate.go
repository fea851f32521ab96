package txbuilder

import (
	"fmt"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// Known Anchor error codes this AMM family returns during simulation
// (spec §4.4 "Simulation gate").
const (
	errAccountNotEnoughKeys     = 3005
	errAccountDidNotDeserialize = 3004
	errAccountNotInitialized    = 3012
)

var simulationErrorMessages = map[int]string{
	errAccountNotEnoughKeys:     "account-not-enough-keys",
	errAccountDidNotDeserialize: "account-did-not-deserialize",
	errAccountNotInitialized:    "account-not-initialized",
}

// SimulateTransaction translates the result of an already-issued
// simulateTransaction RPC call (with signature verification on) into an
// error the attempt sequence (C7) must treat as a pre-gate rejection, not
// a submission attempt to retry (spec §4.4 "Simulation gate"). A known
// Anchor error code is translated to a readable reason; an unknown one is
// passed through as-is.
func SimulateTransaction(result *port.SimulateResult, simErr error) error {
	if simErr != nil {
		return fmt.Errorf("simulate transaction: %w", simErr)
	}
	if result == nil || result.Err == "" {
		return nil
	}
	code, ok := parseAnchorErrorCode(result.Err)
	if ok {
		if msg, known := simulationErrorMessages[code]; known {
			return apperror.FatalRequest(fmt.Sprintf("simulation rejected: %s (code %d)", msg, code), nil)
		}
	}
	return apperror.FatalRequest(fmt.Sprintf("simulation rejected: %s", result.Err), nil)
}

// parseAnchorErrorCode extracts a numeric Anchor custom-program-error code
// from a simulation error string such as "custom program error: 0xbbd"
// (0xbbd == 3005); returns ok=false if no numeric code is present.
func parseAnchorErrorCode(errStr string) (int, bool) {
	var code int
	if _, err := fmt.Sscanf(errStr, "custom program error: 0x%x", &code); err == nil {
		return code, true
	}
	if _, err := fmt.Sscanf(errStr, "%d", &code); err == nil {
		return code, true
	}
	return 0, false
}
