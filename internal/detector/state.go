// Package detector implements component C8: a long-lived subscription to
// program-log notifications on the launchpad's bonding-curve program,
// extracting migration events and pushing them into the rest of the
// pipeline. Grounded on the teacher's MEXC websocket client
// (backend/internal/platform/mexc/websocket/client.go) — connect/
// handleMessages/keepAlive/handleDisconnect goroutine shape — adapted
// from a ticker/kline/orderbook feed to a single log-notification stream
// with an explicit connection state machine and a catch-up scan.
package detector

// ConnState is one state of the connection state machine (spec §4.1):
// Disconnected -> Connecting -> Open(Unsubscribed) -> Open(Subscribed) ->
// {Stale|Closed} -> Disconnected.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateOpenUnsubscribed
	StateOpenSubscribed
	StateStale
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpenUnsubscribed:
		return "open_unsubscribed"
	case StateOpenSubscribed:
		return "open_subscribed"
	case StateStale:
		return "stale"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
