package submission

import (
	"context"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

type bundleAttempt struct {
	client port.BundleClient
	result *port.BundleResult
	err    error
}

// submitMEVParallel fires SubmitBundle at every configured endpoint
// concurrently and proceeds as soon as the first one accepts (spec §4.5:
// "the first fulfilled success wins"), while a background goroutine keeps
// draining the remaining responses to report how many of N endpoints
// accepted without holding up the hot path.
func (e *Engine) submitMEVParallel(ctx context.Context, tx *wire.Transaction, tipLamports uint64) (string, error) {
	if len(e.Bundles) == 0 {
		return "", apperror.FatalConfig("no bundle endpoints configured", nil)
	}

	results := make(chan bundleAttempt, len(e.Bundles))
	for _, b := range e.Bundles {
		b := b
		go func() {
			res, err := b.SubmitBundle(ctx, []*wire.Transaction{tx}, tipLamports)
			results <- bundleAttempt{client: b, result: res, err: err}
		}()
	}

	var winner *bundleAttempt
	accepted := 0
	pending := len(e.Bundles)

	for pending > 0 {
		att := <-results
		pending--
		if att.err == nil && att.result != nil && att.result.Accepted {
			accepted++
			if winner == nil {
				w := att
				winner = &w
				break
			}
		}
	}

	if winner == nil {
		return "", apperror.Transient("no bundle endpoint accepted the transaction", nil)
	}

	if pending > 0 {
		go func(remaining int) {
			for i := 0; i < remaining; i++ {
				att := <-results
				if att.err == nil && att.result != nil && att.result.Accepted {
					accepted++
				}
			}
			e.Logger.Debug().
				Int("accepted", accepted).
				Int("endpoints", len(e.Bundles)).
				Msg("mev bundle fan-out settled")
		}(pending)
	} else {
		e.Logger.Debug().
			Int("accepted", accepted).
			Int("endpoints", len(e.Bundles)).
			Msg("mev bundle fan-out settled")
	}

	signature, ok := pollBundleStatus(ctx, winner.client, winner.result.BundleID)
	if !ok {
		return "", apperror.Transient("bundle did not confirm within the polling window", nil)
	}
	return signature, nil
}
