package port

import (
	"context"

	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// LogMessage is one decoded frame from the log-notification subscription
// the detector (C8) holds open against the launchpad program.
type LogMessage struct {
	SubscriptionAck bool
	Signature       string
	Logs            []string
}

// LogSubscriptionClient abstracts the websocket connection the detector
// drives through its Disconnected/Connecting/Open/Stale state machine
// (spec §4.1), the same way RPCClient/BundleClient isolate the rest of
// the pipeline's I/O behind a seam the core logic can be tested against.
type LogSubscriptionClient interface {
	Connect(ctx context.Context) error
	Close() error
	Subscribe(ctx context.Context, program wire.Pubkey) error
	Ping(ctx context.Context) error
	// ReadMessage blocks until the next frame arrives, ctx is canceled, or
	// the underlying connection errors.
	ReadMessage(ctx context.Context) (*LogMessage, error)
}
