// Package rpc implements component C1's concrete port.RPCClient against a
// Solana JSON-RPC 2.0 endpoint. Grounded on the teacher's MEXC REST client
// (pkg/platform/mexc/rest): a bare *http.Client plus a cenkalti/backoff/v4
// strategy per call, the retry package the teacher's own pkg/retry.go
// explicitly says it was replaced by ("This package has been replaced by
// github.com/cenkalti/backoff/v4. Use backoff.Retry and related types for
// all retry logic"). The circuit breaker wraps every call the same way the
// teacher's api/middleware/circuit_breaker.go wraps an HTTP handler, just
// generalized from a handler to an arbitrary RPC closure.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
	defaultMaxElapsed       = 5 * time.Second
)

// Client is a retrying, circuit-broken Solana JSON-RPC client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
	breaker    *circuitBreaker
	maxElapsed time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client (e.g. for custom
// transports or test doubles).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCircuitBreaker overrides the default failure threshold / reset
// timeout for the breaker guarding every call.
func WithCircuitBreaker(failureThreshold int, resetTimeout time.Duration) Option {
	return func(c *Client) { c.breaker = newCircuitBreaker(failureThreshold, resetTimeout) }
}

// WithMaxElapsed bounds how long a single call may spend across retries
// before giving up and returning the last error.
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// WithCircuitBreakerLogger routes the breaker's trip/reset events to a
// real zap logger instead of the default no-op. Apply after
// WithCircuitBreaker, since that option replaces the breaker instance.
func WithCircuitBreakerLogger(l *zap.Logger) Option {
	return func(c *Client) { c.breaker.logger = l }
}

// New constructs a client against a single JSON-RPC endpoint (primary,
// backup, or staked — the submission engine (C7) decides which URL backs
// which port.RPCClient field; this type itself has no opinion on that).
func New(endpoint string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "rpc_client").Str("endpoint", endpoint).Logger(),
		breaker:    newCircuitBreaker(defaultFailureThreshold, defaultResetTimeout),
		maxElapsed: defaultMaxElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

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
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call performs one JSON-RPC request, retrying transient failures with
// exponential backoff inside the circuit breaker's gate. A non-nil
// *rpcError in the response body is treated as permanent: the node
// answered, it just rejected the request, so retrying won't help.
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if !c.breaker.allow() {
		return apperror.Transient("rpc circuit breaker open for "+method, errCircuitOpen)
	}

	eb := backoff.NewExponentialBackOff()
	if c.maxElapsed > 0 {
		eb.MaxElapsedTime = c.maxElapsed
	}
	bo := backoff.WithContext(eb, ctx)

	op := func() error {
		err := c.doOnce(ctx, method, params, out)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, bo)
	if err != nil {
		c.breaker.recordFailure()
		return err
	}
	c.breaker.recordSuccess()
	return nil
}

func (c *Client) doOnce(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal rpc request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build rpc request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Transient("rpc request failed: "+method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return apperror.Transient(fmt.Sprintf("rpc %s returned status %d", method, resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return permanentErr{apperror.LogicalReject(fmt.Sprintf("rpc %s returned status %d", method, resp.StatusCode), nil)}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return apperror.Transient("decode rpc response: "+method, err)
	}
	if rpcResp.Error != nil {
		return permanentErr{apperror.LogicalReject(fmt.Sprintf("rpc %s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code), nil)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return permanentErr{apperror.LogicalReject("decode rpc result: "+method, err)}
	}
	return nil
}

// permanentErr marks an error as non-retryable without losing its
// apperror classification, so callers upstream still see a LogicalReject
// rather than a bare backoff.PermanentError wrapper.
type permanentErr struct{ error }

func isPermanent(err error) bool {
	_, ok := err.(permanentErr)
	return ok
}

type valueEnvelope struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value json.RawMessage `json:"value"`
}

// GetLatestBlockhash implements port.RPCClient.
func (c *Client) GetLatestBlockhash(ctx context.Context) ([32]byte, uint64, error) {
	var env valueEnvelope
	if err := c.call(ctx, "getLatestBlockhash", []interface{}{map[string]string{"commitment": "confirmed"}}, &env); err != nil {
		return [32]byte{}, 0, err
	}
	var v struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	}
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return [32]byte{}, 0, fmt.Errorf("decode getLatestBlockhash value: %w", err)
	}
	decoded, err := base58.Decode(v.Blockhash)
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, 0, fmt.Errorf("decode blockhash %q: %w", v.Blockhash, err)
	}
	var bh [32]byte
	copy(bh[:], decoded)
	return bh, v.LastValidBlockHeight, nil
}

// GetAccountInfo implements port.RPCClient. It returns (nil, nil) when the
// account does not exist, matching getAccountInfo's value:null response.
func (c *Client) GetAccountInfo(ctx context.Context, addr wire.Pubkey) (*port.AccountInfo, error) {
	var env valueEnvelope
	params := []interface{}{addr.String(), map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &env); err != nil {
		return nil, err
	}
	if string(env.Value) == "null" || len(env.Value) == 0 {
		return nil, nil
	}
	var v struct {
		Owner    string   `json:"owner"`
		Lamports uint64   `json:"lamports"`
		Data     []string `json:"data"`
	}
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return nil, fmt.Errorf("decode getAccountInfo value: %w", err)
	}
	owner, err := wire.PubkeyFromBase58(v.Owner)
	if err != nil {
		return nil, fmt.Errorf("decode account owner: %w", err)
	}
	var data []byte
	if len(v.Data) > 0 {
		data, err = base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			return nil, fmt.Errorf("decode account data: %w", err)
		}
	}
	return &port.AccountInfo{Owner: owner, Lamports: v.Lamports, Data: data}, nil
}

// GetProgramAccounts implements port.RPCClient.
func (c *Client) GetProgramAccounts(ctx context.Context, program wire.Pubkey, filters []port.ProgramAccountsFilter) ([]port.ProgramAccount, error) {
	memcmp := make([]map[string]interface{}, 0, len(filters))
	for _, f := range filters {
		memcmp = append(memcmp, map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Offset,
				"bytes":  base58.Encode(f.Bytes),
			},
		})
	}
	opts := map[string]interface{}{"encoding": "base64"}
	if len(memcmp) > 0 {
		opts["filters"] = memcmp
	}
	var raw []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Owner    string   `json:"owner"`
			Lamports uint64   `json:"lamports"`
			Data     []string `json:"data"`
		} `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", []interface{}{program.String(), opts}, &raw); err != nil {
		return nil, err
	}
	out := make([]port.ProgramAccount, 0, len(raw))
	for _, r := range raw {
		pk, err := wire.PubkeyFromBase58(r.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("decode program account pubkey: %w", err)
		}
		owner, err := wire.PubkeyFromBase58(r.Account.Owner)
		if err != nil {
			return nil, fmt.Errorf("decode program account owner: %w", err)
		}
		var data []byte
		if len(r.Account.Data) > 0 {
			data, err = base64.StdEncoding.DecodeString(r.Account.Data[0])
			if err != nil {
				return nil, fmt.Errorf("decode program account data: %w", err)
			}
		}
		out = append(out, port.ProgramAccount{Pubkey: pk, Account: port.AccountInfo{Owner: owner, Lamports: r.Account.Lamports, Data: data}})
	}
	return out, nil
}

// GetTokenAccountBalance implements port.RPCClient.
func (c *Client) GetTokenAccountBalance(ctx context.Context, tokenAccount wire.Pubkey) (uint64, uint8, error) {
	var env valueEnvelope
	if err := c.call(ctx, "getTokenAccountBalance", []interface{}{tokenAccount.String()}, &env); err != nil {
		return 0, 0, err
	}
	var v struct {
		Amount   string `json:"amount"`
		Decimals uint8  `json:"decimals"`
	}
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return 0, 0, fmt.Errorf("decode getTokenAccountBalance value: %w", err)
	}
	var amount uint64
	if _, err := fmt.Sscan(v.Amount, &amount); err != nil {
		return 0, 0, fmt.Errorf("parse token amount %q: %w", v.Amount, err)
	}
	return amount, v.Decimals, nil
}

// GetBalance implements port.RPCClient.
func (c *Client) GetBalance(ctx context.Context, addr wire.Pubkey) (uint64, error) {
	var env valueEnvelope
	if err := c.call(ctx, "getBalance", []interface{}{addr.String()}, &env); err != nil {
		return 0, err
	}
	var lamports uint64
	if err := json.Unmarshal(env.Value, &lamports); err != nil {
		return 0, fmt.Errorf("decode getBalance value: %w", err)
	}
	return lamports, nil
}

// SimulateTransaction implements port.RPCClient.
func (c *Client) SimulateTransaction(ctx context.Context, tx *wire.Transaction) (*port.SimulateResult, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction for simulation: %w", err)
	}
	opts := map[string]interface{}{"encoding": "base64", "sigVerify": false, "replaceRecentBlockhash": true}
	var env valueEnvelope
	params := []interface{}{base64.StdEncoding.EncodeToString(raw), opts}
	if err := c.call(ctx, "simulateTransaction", params, &env); err != nil {
		return nil, err
	}
	var v struct {
		Err           interface{} `json:"err"`
		Logs          []string    `json:"logs"`
		UnitsConsumed uint64      `json:"unitsConsumed"`
	}
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return nil, fmt.Errorf("decode simulateTransaction value: %w", err)
	}
	result := &port.SimulateResult{Logs: v.Logs, UnitsConsumed: v.UnitsConsumed}
	if v.Err != nil {
		b, _ := json.Marshal(v.Err)
		result.Err = string(b)
	}
	return result, nil
}

// SendTransaction implements port.RPCClient.
func (c *Client) SendTransaction(ctx context.Context, tx *wire.Transaction, preflight bool, maxRetries int) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	opts := map[string]interface{}{
		"encoding":            "base64",
		"skipPreflight":       !preflight,
		"maxRetries":          maxRetries,
		"preflightCommitment": "confirmed",
	}
	var sig string
	params := []interface{}{base64.StdEncoding.EncodeToString(raw), opts}
	if err := c.call(ctx, "sendTransaction", params, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// GetSignatureStatus implements port.RPCClient.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (bool, error) {
	var env valueEnvelope
	params := []interface{}{[]string{signature}, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &env); err != nil {
		return false, err
	}
	var statuses []*struct {
		ConfirmationStatus string      `json:"confirmationStatus"`
		Err                interface{} `json:"err"`
	}
	if err := json.Unmarshal(env.Value, &statuses); err != nil {
		return false, fmt.Errorf("decode getSignatureStatuses value: %w", err)
	}
	if len(statuses) == 0 || statuses[0] == nil {
		return false, nil
	}
	if statuses[0].Err != nil {
		return false, nil
	}
	status := statuses[0].ConfirmationStatus
	return status == "confirmed" || status == "finalized", nil
}

// GetAddressLookupTable implements port.RPCClient.
func (c *Client) GetAddressLookupTable(ctx context.Context, addr wire.Pubkey) (*wire.AddressLookupTableAccount, error) {
	info, err := c.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, apperror.LogicalReject("address lookup table not found: "+addr.String(), nil)
	}
	addresses, err := decodeALTAddresses(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode ALT %s: %w", addr.String(), err)
	}
	return &wire.AddressLookupTableAccount{Key: addr, Writable: addresses, Readonly: nil}, nil
}

// decodeALTAddresses reads the trailing list of 32-byte pubkeys from a
// serialized AddressLookupTable account (a fixed 56-byte header followed
// by a flat array of addresses, per the on-chain account-compression
// program's layout).
func decodeALTAddresses(data []byte) ([]wire.Pubkey, error) {
	const headerLen = 56
	if len(data) < headerLen {
		return nil, fmt.Errorf("ALT account data too short: %d bytes", len(data))
	}
	body := data[headerLen:]
	if len(body)%32 != 0 {
		return nil, fmt.Errorf("ALT address table not a multiple of 32 bytes: %d", len(body))
	}
	out := make([]wire.Pubkey, 0, len(body)/32)
	for i := 0; i < len(body); i += 32 {
		var pk wire.Pubkey
		copy(pk[:], body[i:i+32])
		out = append(out, pk)
	}
	return out, nil
}

// GetSignaturesForAddress implements port.RPCClient.
func (c *Client) GetSignaturesForAddress(ctx context.Context, addr wire.Pubkey, limit int) ([]string, error) {
	var raw []struct {
		Signature string `json:"signature"`
	}
	params := []interface{}{addr.String(), map[string]interface{}{"limit": limit}}
	if err := c.call(ctx, "getSignaturesForAddress", params, &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.Signature)
	}
	return out, nil
}

// GetTransaction implements port.RPCClient.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*port.DecodedTransaction, error) {
	opts := map[string]interface{}{"encoding": "jsonParsed", "maxSupportedTransactionVersion": 0}
	var v struct {
		Transaction struct {
			Message struct {
				Instructions []rawInstruction `json:"instructions"`
			} `json:"message"`
		} `json:"transaction"`
		Meta struct {
			InnerInstructions []struct {
				Instructions []rawInstruction `json:"instructions"`
			} `json:"innerInstructions"`
		} `json:"meta"`
	}
	if err := c.call(ctx, "getTransaction", []interface{}{signature, opts}, &v); err != nil {
		return nil, err
	}
	top, err := decodeInstructions(v.Transaction.Message.Instructions)
	if err != nil {
		return nil, fmt.Errorf("decode top-level instructions: %w", err)
	}
	var inner []port.DecodedInstruction
	for _, group := range v.Meta.InnerInstructions {
		decoded, err := decodeInstructions(group.Instructions)
		if err != nil {
			return nil, fmt.Errorf("decode inner instructions: %w", err)
		}
		inner = append(inner, decoded...)
	}
	return &port.DecodedTransaction{Signature: signature, Instructions: top, InnerInstructions: inner}, nil
}

type rawInstruction struct {
	ProgramID string   `json:"programId"`
	Accounts  []string `json:"accounts"`
	Data      string   `json:"data"`
}

func decodeInstructions(raw []rawInstruction) ([]port.DecodedInstruction, error) {
	out := make([]port.DecodedInstruction, 0, len(raw))
	for _, ri := range raw {
		programID, err := wire.PubkeyFromBase58(ri.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("decode instruction programId: %w", err)
		}
		accounts := make([]wire.Pubkey, 0, len(ri.Accounts))
		for _, a := range ri.Accounts {
			pk, err := wire.PubkeyFromBase58(a)
			if err != nil {
				return nil, fmt.Errorf("decode instruction account: %w", err)
			}
			accounts = append(accounts, pk)
		}
		data, err := base58.Decode(ri.Data)
		if err != nil {
			return nil, fmt.Errorf("decode instruction data: %w", err)
		}
		out = append(out, port.DecodedInstruction{ProgramID: programID, Accounts: accounts, Data: data})
	}
	return out, nil
}

var _ port.RPCClient = (*Client)(nil)
