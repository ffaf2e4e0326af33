package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultblockmagic/vault/internal/zkproof"
)

func TestSignMFAPostsRequestAndParsesResponse(t *testing.T) {
	var got signMFARequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/signMFA", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(SignMFAResponse{
			SignedMessageOne: &SignedMessage{
				Message: "alice-7-1699999999",
				V:       27,
				R:       "0x01",
				S:       "0x02",
			},
		})
	}))
	defer server.Close()

	client := NewSignerClient(server.URL, 0)
	resp, err := client.SignMFA(context.Background(), "alice", "7", "111111", "")
	require.NoError(t, err)

	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "7", got.RequestID)
	assert.Equal(t, "111111", got.OTPSecretOne)
	require.NotNil(t, resp.SignedMessageOne)
	assert.Nil(t, resp.SignedMessageTwo)

	ts, err := resp.SignedMessageOne.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, "1699999999", ts)
}

func TestSignedMessageTimestampRejectsMalformedMessage(t *testing.T) {
	m := &SignedMessage{Message: "garbage"}
	_, err := m.Timestamp()
	assert.Error(t, err)
}

func TestSignMFASurfacesServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid OTP secrets"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewSignerClient(server.URL, 0)
	_, err := client.SignMFA(context.Background(), "alice", "7", "000000", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestRecoverENSPayloadFieldNames(t *testing.T) {
	var got map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recoverENS", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	params := zkproof.Parameters{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	client := NewRegistrarClient(server.URL, 0)
	err := client.RecoverENS(context.Background(), RecoverENSRequest{
		Username:       "alice",
		NewUserAddress: "0xabc",
		PasswordHash:   "42",
		Timestamp:      "1714000000",
		Params:         NewProofParamsPayload(params),
	})
	require.NoError(t, err)

	for _, field := range []string{"username", "newUserAddress", "passwordHash", "timestamp", "params"} {
		assert.Contains(t, got, field)
	}

	var payload ProofParamsPayload
	require.NoError(t, json.Unmarshal(got["params"], &payload))
	assert.Equal(t, "1", payload.PA0)
	assert.Equal(t, "3", payload.PB00)
	assert.Equal(t, "10", payload.PubSignals1)
}

func TestHoldingsParsesItemsAndNFTFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/avalanche-testnet/address/0xabc/balances_v2/", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("nft"))
		w.Write([]byte(`{"data":{"items":[
			{"contract_address":"0x01","nft_data":null},
			{"contract_address":"0x02","nft_data":[{"token_id":"5"}]}
		]}}`))
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL, "", 0)
	holdings, err := client.Holdings(context.Background(), "avalanche-testnet", "0xabc")
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.False(t, holdings[0].IsNFT())
	assert.True(t, holdings[1].IsNFT())
	assert.Equal(t, "5", holdings[1].NFTData[0].TokenID)
}

func TestHoldingsSendsAPIKeyAsBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "test-key", user)
		w.Write([]byte(`{"data":{"items":[]}}`))
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL, "test-key", 0)
	_, err := client.Holdings(context.Background(), "sel", "0xabc")
	require.NoError(t, err)
}
