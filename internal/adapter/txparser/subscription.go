// Package txparser implements component C8's port.LogSubscriptionClient
// against Solana's
// logsSubscribe websocket notification stream. Grounded on the teacher's
// pkg/platform/mexc/websocket/client.go: a gorilla/websocket connection
// guarded by a mutex, a dedicated keep-alive ping, and a subscribe
// request sent immediately after dial — generalized from MEXC's
// channel-string subscription model to Solana's JSON-RPC 2.0
// logsSubscribe/logsNotification envelope.
package txparser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// LogSubscription is a single-connection, single-subscription websocket
// client for one program's logsSubscribe stream. The detector (C8) holds
// exactly one of these at a time and drives it through Connect/Subscribe/
// Ping/ReadMessage/Close per its own state machine — this type has no
// reconnect logic of its own, matching the division of responsibility the
// internal/detector's Detector.connectAndServe spells out for its retry loop.
type LogSubscription struct {
	url string

	writeMu sync.Mutex
	connMu  sync.Mutex
	conn    *websocket.Conn
}

// New constructs a subscription client against a Solana websocket RPC
// endpoint (wss://...).
func New(url string) *LogSubscription {
	return &LogSubscription{url: url}
}

// Connect implements port.LogSubscriptionClient.
func (s *LogSubscription) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// Close implements port.LogSubscriptionClient.
func (s *LogSubscription) Close() error {
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Subscribe implements port.LogSubscriptionClient. It opens a
// logsSubscribe stream mentioning program, the same filter shape the
// detector needs to see every transaction that touches the launchpad
// program (spec §4.1).
func (s *LogSubscription) Subscribe(ctx context.Context, program wire.Pubkey) error {
	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{program.String()}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
	return s.writeJSON(req)
}

// Ping implements port.LogSubscriptionClient, sending a websocket-level
// ping control frame rather than an application-level message — Solana's
// RPC websocket has no ping/pong JSON-RPC method, only the protocol frame.
func (s *LogSubscription) Ping(ctx context.Context) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("ping: not connected")
	}
	deadline := time.Now().Add(5 * time.Second)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (s *LogSubscription) writeJSON(v interface{}) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("write: not connected")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

type subscribeAck struct {
	ID     *int `json:"id"`
	Result *int `json:"result"`
}

type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string   `json:"signature"`
				Err       interface{} `json:"err"`
				Logs      []string `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// ReadMessage implements port.LogSubscriptionClient, decoding both the
// one-time subscription acknowledgment and every subsequent
// logsNotification frame into the same port.LogMessage shape the
// detector's state machine expects.
func (s *LogSubscription) ReadMessage(ctx context.Context) (*port.LogMessage, error) {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("read: not connected")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read websocket frame: %w", err)
	}

	var ack subscribeAck
	if err := json.Unmarshal(raw, &ack); err == nil && ack.Result != nil {
		return &port.LogMessage{SubscriptionAck: true}, nil
	}

	var note logsNotification
	if err := json.Unmarshal(raw, &note); err != nil {
		return nil, fmt.Errorf("decode logsNotification: %w", err)
	}
	if note.Method != "logsNotification" {
		return nil, fmt.Errorf("unexpected websocket frame method %q", note.Method)
	}
	return &port.LogMessage{
		Signature: note.Params.Result.Value.Signature,
		Logs:      note.Params.Result.Value.Logs,
	}, nil
}

var _ port.LogSubscriptionClient = (*LogSubscription)(nil)
