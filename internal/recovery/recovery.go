// Package recovery runs the startup recovery pass spec §9 requires:
// "On boot, atomically set every position with status selling back to
// open, because selling is a transient state and any that remained
// across a crash are stuck." It is a one-shot boot routine, not a
// background loop — grounded on the teacher's boot-time repair step in
// cmd/server's dependency wiring, which runs once before the HTTP
// server starts accepting traffic.
package recovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// Runner performs the boot-time repair pass over persisted state.
type Runner struct {
	Positions port.PositionRepository
	Logger    zerolog.Logger
}

// Run reverts every stuck-selling position to open. It must complete
// before the worker or position monitor start processing jobs, so a
// crash-recovered position isn't immediately re-evaluated while still
// (incorrectly) marked selling.
func (r *Runner) Run(ctx context.Context) error {
	n, err := r.Positions.ResetStuckSelling(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck-selling positions: %w", err)
	}
	if n > 0 {
		r.Logger.Warn().Int64("count", n).Msg("reverted positions stuck in selling back to open on startup")
	} else {
		r.Logger.Info().Msg("no stuck-selling positions found on startup")
	}
	return nil
}
