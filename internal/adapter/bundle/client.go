// Package bundle implements component C1/C7's port.BundleClient against an
// MEV relay's Jito-style bundle RPC (sendBundle / getBundleStatuses over
// JSON-RPC 2.0). Grounded on the same teacher pattern as internal/adapter/rpc
// (pkg/platform/mexc/rest's http.Client-plus-backoff shape), kept as its
// own small client rather than sharing rpc.Client because a bundle relay
// speaks a much narrower, base58-only dialect of the protocol.
package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// Client submits and polls bundles against a single relay endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
	maxElapsed time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxElapsed bounds how long a single call may spend across retries.
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// New constructs a Client against one relay endpoint. The submission
// engine (C7) holds one Client per configured relay in its []port.BundleClient
// slice and races SubmitBundle across all of them (spec §4.5 mev-parallel).
func New(endpoint string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "bundle_client").Str("endpoint", endpoint).Logger(),
		maxElapsed: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint implements port.BundleClient.
func (c *Client) Endpoint() string { return c.endpoint }

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = c.maxElapsed
	bo := backoff.WithContext(eb, ctx)

	return backoff.Retry(func() error {
		err := c.doOnce(ctx, method, params, out)
		if pe, ok := err.(permanentErr); ok {
			return backoff.Permanent(pe.error)
		}
		return err
	}, bo)
}

type permanentErr struct{ error }

func (c *Client) doOnce(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return permanentErr{fmt.Errorf("marshal bundle request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return permanentErr{fmt.Errorf("build bundle request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Transient("bundle relay request failed: "+method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return apperror.Transient(fmt.Sprintf("bundle relay %s returned status %d", method, resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return permanentErr{apperror.LogicalReject(fmt.Sprintf("bundle relay %s returned status %d", method, resp.StatusCode), nil)}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return apperror.Transient("decode bundle relay response: "+method, err)
	}
	if rpcResp.Error != nil {
		return permanentErr{apperror.LogicalReject(fmt.Sprintf("bundle relay %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code), nil)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return permanentErr{apperror.LogicalReject("decode bundle relay result: "+method, err)}
	}
	return nil
}

// SubmitBundle implements port.BundleClient.
func (c *Client) SubmitBundle(ctx context.Context, txs []*wire.Transaction, tipLamports uint64) (*port.BundleResult, error) {
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		raw, err := tx.Serialize()
		if err != nil {
			return nil, fmt.Errorf("serialize bundle transaction: %w", err)
		}
		encoded = append(encoded, base58.Encode(raw))
	}

	var bundleID string
	if err := c.call(ctx, "sendBundle", []interface{}{encoded}, &bundleID); err != nil {
		return nil, err
	}
	return &port.BundleResult{BundleID: bundleID, Accepted: bundleID != ""}, nil
}

// GetBundleStatus implements port.BundleClient.
func (c *Client) GetBundleStatus(ctx context.Context, bundleID string) (*port.BundleStatus, error) {
	var raw struct {
		Value []struct {
			ConfirmationStatus string `json:"confirmation_status"`
			Err                interface{} `json:"err"`
			Transactions       []string    `json:"transactions"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getBundleStatuses", []interface{}{[]string{bundleID}}, &raw); err != nil {
		return nil, err
	}
	if len(raw.Value) == 0 {
		return &port.BundleStatus{}, nil
	}
	v := raw.Value[0]
	status := &port.BundleStatus{ConfirmationStatus: v.ConfirmationStatus}
	if v.Err != nil {
		b, _ := json.Marshal(v.Err)
		status.Err = string(b)
	}
	if len(v.Transactions) > 0 {
		status.Signature = v.Transactions[0]
	}
	return status, nil
}

var _ port.BundleClient = (*Client)(nil)
