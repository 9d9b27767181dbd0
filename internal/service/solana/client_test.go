package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseFeed/internal/domain/models"
)

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second).(*Client)
}

func strPtr(s string) *string { return &s }

func TestFetchPageSuccess(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"jsonrpc": "2.0",
			"id": 1,
			"result": [
				{"signature": "sigA", "slot": 100, "block_time": 1700000000, "err": null},
				{"signature": "sigB", "slot": 99, "block_time": null, "err": {"InstructionError": [0, "Custom"]}}
			]
		}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).FetchPage(context.Background(), "addr", 25, strPtr("sigZ"))
	require.NoError(t, err)
	require.Len(t, page, 2)

	assert.Equal(t, "sigA", page[0].Signature)
	assert.Equal(t, uint64(100), page[0].Slot)
	require.NotNil(t, page[0].BlockTime)
	assert.Equal(t, int64(1700000000), *page[0].BlockTime)
	assert.Empty(t, page[0].Err)

	assert.Equal(t, "sigB", page[1].Signature)
	assert.Nil(t, page[1].BlockTime)
	assert.NotEmpty(t, page[1].Err)

	// Request envelope: method, address, limit, and the before cursor.
	assert.Equal(t, "2.0", gotBody["jsonrpc"])
	assert.Equal(t, "getSignaturesForAddress", gotBody["method"])
	params, ok := gotBody["params"].([]interface{})
	require.True(t, ok)
	require.Len(t, params, 2)
	assert.Equal(t, "addr", params[0])
	opts, ok := params[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(25), opts["limit"])
	assert.Equal(t, "sigZ", opts["before"])
}

func TestFetchPageOmitsBeforeWithoutCursor(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"jsonrpc": "2.0", "id": 1, "result": []}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).FetchPage(context.Background(), "addr", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, page)

	opts := gotBody["params"].([]interface{})[1].(map[string]interface{})
	_, hasBefore := opts["before"]
	assert.False(t, hasBefore)
}

func TestFetchPageEmptyResultIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc": "2.0", "id": 1, "result": []}`))
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL).FetchPage(context.Background(), "addr", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestFetchPageRemoteRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc": "2.0", "id": 1, "error": {"code": -32602, "message": "invalid params"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPage(context.Background(), "addr", 10, nil)
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchRemoteRejected, fe.Kind)
	assert.Equal(t, -32602, fe.Code)
	assert.Equal(t, "invalid params", fe.Message)
}

func TestFetchPageDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc": "2.0", "id": 1, "result": [`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPage(context.Background(), "addr", 10, nil)
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchDecode, fe.Kind)
}

func TestFetchPageTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPage(context.Background(), "addr", 10, nil)
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchTransport, fe.Kind)

	// Connection failures classify the same way.
	srv.Close()
	_, err = newTestClient(srv.URL).FetchPage(context.Background(), "addr", 10, nil)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.FetchTransport, fe.Kind)
}

func TestFetchPageRejectsBadArguments(t *testing.T) {
	c := newTestClient("http://localhost:0")

	_, err := c.FetchPage(context.Background(), "", 10, nil)
	assert.Error(t, err)

	_, err = c.FetchPage(context.Background(), "addr", 0, nil)
	assert.Error(t, err)
}
