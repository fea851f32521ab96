// Package router implements the router-mediated transaction-builder
// path's port.RouterClient (spec §4.4) against a legacy-AMM-family swap
// router's HTTP quote/build API. Grounded on the same teacher REST-client
// shape as internal/adapter/rpc and internal/adapter/enrichment.
package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// Client fetches a pre-built swap transaction from a router's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	maxElapsed time.Duration
}

// New constructs a Client against baseURL (the router's swap-build
// endpoint, e.g. https://router.example/v1/swap-instructions).
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "router_client").Logger(),
		maxElapsed: 3 * time.Second,
	}
}

type swapRequest struct {
	Mint         string `json:"mint"`
	IsBuy        bool   `json:"isBuy"`
	AmountIn     uint64 `json:"amountIn"`
	MinAmountOut uint64 `json:"minAmountOut"`
	UserPubkey   string `json:"userPubkey"`
}

type instructionDTO struct {
	ProgramID string `json:"programId"`
	Accounts  []struct {
		Pubkey     string `json:"pubkey"`
		IsSigner   bool   `json:"isSigner"`
		IsWritable bool   `json:"isWritable"`
	} `json:"accounts"`
	Data string `json:"data"`
}

type lookupTableDTO struct {
	Key      string   `json:"key"`
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type swapResponse struct {
	Instructions        []instructionDTO `json:"instructions"`
	AddressTableLookups []lookupTableDTO  `json:"addressTableLookups"`
}

// BuildSwap implements port.RouterClient.
func (c *Client) BuildSwap(ctx context.Context, req port.RouterQuoteRequest) (*port.RouterTransaction, error) {
	body, err := json.Marshal(swapRequest{
		Mint:         req.Mint,
		IsBuy:        req.IsBuy,
		AmountIn:     req.AmountIn,
		MinAmountOut: req.MinAmountOut,
		UserPubkey:   req.UserPubkey.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal router swap request: %w", err)
	}

	var resp swapResponse
	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = c.maxElapsed
	err = backoff.Retry(func() error {
		return c.post(ctx, body, &resp)
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		return nil, err
	}

	instructions, err := decodeInstructions(resp.Instructions)
	if err != nil {
		return nil, err
	}
	tables, err := decodeLookupTables(resp.AddressTableLookups)
	if err != nil {
		return nil, err
	}
	return &port.RouterTransaction{Instructions: instructions, AddressTableLookups: tables}, nil
}

func (c *Client) post(ctx context.Context, body []byte, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build router request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperror.Transient("router request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return apperror.Transient(fmt.Sprintf("router api returned status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return backoff.Permanent(apperror.LogicalReject(fmt.Sprintf("router api returned status %d", resp.StatusCode), nil))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode router response: %w", err))
	}
	return nil
}

func decodeInstructions(raw []instructionDTO) ([]wire.Instruction, error) {
	out := make([]wire.Instruction, 0, len(raw))
	for _, ri := range raw {
		programID, err := wire.PubkeyFromBase58(ri.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("decode router instruction programId: %w", err)
		}
		accounts := make([]wire.AccountMeta, 0, len(ri.Accounts))
		for _, a := range ri.Accounts {
			pk, err := wire.PubkeyFromBase58(a.Pubkey)
			if err != nil {
				return nil, fmt.Errorf("decode router instruction account: %w", err)
			}
			accounts = append(accounts, wire.AccountMeta{PubKey: pk, IsSigner: a.IsSigner, IsWritable: a.IsWritable})
		}
		data, err := base64.StdEncoding.DecodeString(ri.Data)
		if err != nil {
			return nil, fmt.Errorf("decode router instruction data: %w", err)
		}
		out = append(out, wire.Instruction{ProgramID: programID, Accounts: accounts, Data: data})
	}
	return out, nil
}

func decodeLookupTables(raw []lookupTableDTO) ([]wire.AddressLookupTableAccount, error) {
	out := make([]wire.AddressLookupTableAccount, 0, len(raw))
	for _, rt := range raw {
		key, err := wire.PubkeyFromBase58(rt.Key)
		if err != nil {
			return nil, fmt.Errorf("decode router lookup table key: %w", err)
		}
		writable, err := decodePubkeys(rt.Writable)
		if err != nil {
			return nil, err
		}
		readonly, err := decodePubkeys(rt.Readonly)
		if err != nil {
			return nil, err
		}
		out = append(out, wire.AddressLookupTableAccount{Key: key, Writable: writable, Readonly: readonly})
	}
	return out, nil
}

func decodePubkeys(raw []string) ([]wire.Pubkey, error) {
	out := make([]wire.Pubkey, 0, len(raw))
	for _, s := range raw {
		pk, err := wire.PubkeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("decode pubkey %q: %w", s, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

var _ port.RouterClient = (*Client)(nil)
