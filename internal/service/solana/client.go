package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"PulseFeed/internal/domain/models"
	drepo "PulseFeed/internal/domain/repository"
	xhttp "PulseFeed/pkg/http"
)

const methodGetSignatures = "getSignaturesForAddress"

// Client implements a SignatureSource backed by the Solana JSON-RPC endpoint.
type Client struct {
	rpcURL string
	http   *xhttp.Client
}

// NewClient creates a new Solana RPC SignatureSource.
func NewClient(rpcURL string, timeout time.Duration) drepo.SignatureSource {
	return &Client{
		rpcURL: rpcURL,
		http:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// pageOptions is the second positional parameter of getSignaturesForAddress.
// Limit is always sent; Before only when a cursor exists.
type pageOptions struct {
	Limit  int    `json:"limit"`
	Before string `json:"before,omitempty"`
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  []signatureInfo `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type signatureInfo struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	BlockTime *int64          `json:"block_time"`
	Err       json.RawMessage `json:"err"`
}

// FetchPage fetches one page of transaction signatures for address, newest
// first, optionally before a cursor signature. An empty result with a nil
// error means the history is exhausted. All failures come back as
// *models.FetchError; the caller must not have appended anything.
func (c *Client) FetchPage(ctx context.Context, address string, limit int, before *string) ([]models.SignatureInfo, error) {
	if address == "" {
		return nil, models.NewDecodeError(fmt.Errorf("address is empty"))
	}
	if limit <= 0 {
		return nil, models.NewDecodeError(fmt.Errorf("limit must be positive, got %d", limit))
	}

	opts := pageOptions{Limit: limit}
	if before != nil {
		opts.Before = *before
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  methodGetSignatures,
		Params:  []interface{}{address, opts},
	}

	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.rpcURL,
		Body:   req,
	})
	if err != nil {
		return nil, models.NewTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewTransportError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var env rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, models.NewDecodeError(fmt.Errorf("decode envelope: %w", err))
	}
	if env.Error != nil {
		return nil, models.NewRemoteRejectedError(env.Error.Code, env.Error.Message)
	}

	out := make([]models.SignatureInfo, 0, len(env.Result))
	for _, s := range env.Result {
		info := models.SignatureInfo{
			Signature: s.Signature,
			Slot:      s.Slot,
			BlockTime: s.BlockTime,
		}
		if len(s.Err) > 0 && string(s.Err) != "null" {
			info.Err = string(s.Err)
		}
		out = append(out, info)
	}
	return out, nil
}
