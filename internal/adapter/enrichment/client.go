// Package enrichment implements the filter engine's port.EnrichmentClient
// against an off-chain enhanced-transaction/quote API (spec §4.6: holder
// count, creator score, socials — data no on-chain account exposes).
// Grounded on the same teacher REST-client shape as internal/adapter/rpc
// (pkg/platform/mexc/rest/client.go): a bare *http.Client plus
// cenkalti/backoff/v4, trimmed down since this port has no circuit
// breaker requirement of its own.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
)

// Client fetches enriched token metadata from a single HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
	maxElapsed time.Duration
}

// New constructs a Client against baseURL (e.g. an enhanced-transactions
// API's token-metadata endpoint). apiKey, if non-empty, is sent as a
// query parameter the way most of these providers require.
func New(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "enrichment_client").Logger(),
		maxElapsed: 3 * time.Second,
	}
}

type tokenInfoResponse struct {
	HolderCount      int     `json:"holderCount"`
	DevHoldingPct    float64 `json:"devHoldingPct"`
	Top10HoldingPct  float64 `json:"top10HoldingPct"`
	VolumeUSD        float64 `json:"volumeUsd"`
	HasTwitter       bool    `json:"hasTwitter"`
	HasTelegram      bool    `json:"hasTelegram"`
	HasWebsite       bool    `json:"hasWebsite"`
	TwitterFollowers int     `json:"twitterFollowers"`
	CreatorScore     float64 `json:"creatorScore"`
	LPLocked         bool    `json:"lpLocked"`
	DexPaid          bool    `json:"dexPaid"`
}

// GetTokenInfo implements port.EnrichmentClient.
func (c *Client) GetTokenInfo(ctx context.Context, mint string) (*port.EnrichedTokenInfo, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse enrichment base url: %w", err)
	}
	q := u.Query()
	q.Set("mint", mint)
	if c.apiKey != "" {
		q.Set("api-key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	var body tokenInfoResponse
	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = c.maxElapsed
	err = backoff.Retry(func() error {
		return c.fetch(ctx, u.String(), &body)
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		return nil, err
	}

	return &port.EnrichedTokenInfo{
		Mint:             mint,
		HolderCount:      body.HolderCount,
		DevHoldingPct:    body.DevHoldingPct,
		Top10HoldingPct:  body.Top10HoldingPct,
		VolumeUSD:        body.VolumeUSD,
		HasTwitter:       body.HasTwitter,
		HasTelegram:      body.HasTelegram,
		HasWebsite:       body.HasWebsite,
		TwitterFollowers: body.TwitterFollowers,
		CreatorScore:     body.CreatorScore,
		LPLocked:         body.LPLocked,
		DexPaid:          body.DexPaid,
		FetchedAt:        time.Now(),
	}, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build enrichment request: %w", err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Transient("enrichment request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return apperror.Transient(fmt.Sprintf("enrichment api returned status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return backoff.Permanent(apperror.LogicalReject(fmt.Sprintf("enrichment api returned status %d", resp.StatusCode), nil))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode enrichment response: %w", err))
	}
	return nil
}

var _ port.EnrichmentClient = (*Client)(nil)
