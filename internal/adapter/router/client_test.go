package router

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

func testPubkey(seed byte) wire.Pubkey {
	var p wire.Pubkey
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}

func TestBuildSwapDecodesInstructionsAndLookupTables(t *testing.T) {
	programID := testPubkey(10)
	account := testPubkey(20)
	tableKey := testPubkey(30)
	instructionData := []byte{1, 2, 3, 4}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req swapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mint123", req.Mint)
		assert.True(t, req.IsBuy)

		resp := swapResponse{
			Instructions: []instructionDTO{
				{
					ProgramID: programID.String(),
					Accounts: []struct {
						Pubkey     string `json:"pubkey"`
						IsSigner   bool   `json:"isSigner"`
						IsWritable bool   `json:"isWritable"`
					}{
						{Pubkey: account.String(), IsSigner: false, IsWritable: true},
					},
					Data: base64.StdEncoding.EncodeToString(instructionData),
				},
			},
			AddressTableLookups: []lookupTableDTO{
				{Key: tableKey.String(), Writable: []string{account.String()}, Readonly: nil},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	result, err := c.BuildSwap(t.Context(), port.RouterQuoteRequest{
		Mint: "mint123", IsBuy: true, AmountIn: 1000, MinAmountOut: 900, UserPubkey: testPubkey(1),
	})
	require.NoError(t, err)
	require.Len(t, result.Instructions, 1)
	assert.Equal(t, programID, result.Instructions[0].ProgramID)
	assert.Equal(t, instructionData, result.Instructions[0].Data)
	require.Len(t, result.AddressTableLookups, 1)
	assert.Equal(t, tableKey, result.AddressTableLookups[0].Key)
	assert.Equal(t, []wire.Pubkey{account}, result.AddressTableLookups[0].Writable)
}

func TestBuildSwapPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	_, err := c.BuildSwap(t.Context(), port.RouterQuoteRequest{Mint: "x", UserPubkey: testPubkey(1)})
	require.Error(t, err)
}
