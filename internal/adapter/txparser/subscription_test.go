package txparser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// newMockLogsServer mirrors the teacher's MockWsServer (tests/unit/mock_ws_server.go):
// upgrade the connection, read the subscribe request, ack it, then push one
// synthetic logsNotification frame.
func newMockLogsServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "logsSubscribe", req["method"])

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": 12345}))

		notification := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"result": map[string]interface{}{
					"context": map[string]int{"slot": 1},
					"value": map[string]interface{}{
						"signature": "5sig",
						"err":       nil,
						"logs":      []string{"Program log: migrate"},
					},
				},
			},
		}
		require.NoError(t, conn.WriteJSON(notification))

		// Keep the connection open long enough for the client's Close()
		// (deferred in the test) to tear it down cleanly rather than
		// racing an immediate server-side close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func testPubkey(seed byte) wire.Pubkey {
	var p wire.Pubkey
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}

func TestLogSubscriptionConnectSubscribeReadMessage(t *testing.T) {
	srv := newMockLogsServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	sub := New(wsURL)
	require.NoError(t, sub.Connect(context.Background()))
	defer sub.Close()

	require.NoError(t, sub.Subscribe(context.Background(), testPubkey(7)))

	ackMsg, err := sub.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.True(t, ackMsg.SubscriptionAck)

	notifyMsg, err := sub.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5sig", notifyMsg.Signature)
	assert.Equal(t, []string{"Program log: migrate"}, notifyMsg.Logs)
	assert.False(t, notifyMsg.SubscriptionAck)
}

func TestLogSubscriptionPingSendsControlFrame(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	pinged := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.SetPingHandler(func(string) error {
			pinged <- struct{}{}
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	sub := New(wsURL)
	require.NoError(t, sub.Connect(context.Background()))
	defer sub.Close()

	require.NoError(t, sub.Ping(context.Background()))
	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("ping not received")
	}
}

func TestPingReturnsErrorWhenNotConnected(t *testing.T) {
	sub := New("ws://unused")
	err := sub.Ping(context.Background())
	require.Error(t, err)
}

func TestCloseIsIdempotentWhenNeverConnected(t *testing.T) {
	sub := New("ws://unused")
	require.NoError(t, sub.Close())
}
