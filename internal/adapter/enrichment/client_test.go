package enrichment

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTokenInfoDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mint123", r.URL.Query().Get("mint"))
		assert.Equal(t, "secret", r.URL.Query().Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"holderCount": 42,
			"devHoldingPct": 5.5,
			"top10HoldingPct": 30.1,
			"volumeUsd": 1000.25,
			"hasTwitter": true,
			"hasTelegram": true,
			"hasWebsite": false,
			"twitterFollowers": 900,
			"creatorScore": 0.8,
			"lpLocked": true,
			"dexPaid": false
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second, zerolog.Nop())
	info, err := c.GetTokenInfo(t.Context(), "mint123")
	require.NoError(t, err)
	assert.Equal(t, "mint123", info.Mint)
	assert.Equal(t, 42, info.HolderCount)
	assert.InDelta(t, 5.5, info.DevHoldingPct, 0.0001)
	assert.True(t, info.HasTwitter)
	assert.False(t, info.HasWebsite)
	assert.True(t, info.LPLocked)
}

func TestGetTokenInfoPropagatesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second, zerolog.Nop())
	_, err := c.GetTokenInfo(t.Context(), "missing-mint")
	require.Error(t, err)
}
