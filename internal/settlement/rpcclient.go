package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RPCClient is a LedgerClient backed by a Solana-style JSON-RPC endpoint.
// It uses getSignatureStatuses with searchTransactionHistory enabled — the
// strongest available finality query — because a settlement referenced by a
// notification may predate the notification's arrival by an unbounded amount.
type RPCClient struct {
	endpoint string
	client   *http.Client
}

// NewRPCClient creates a ledger client for the given JSON-RPC endpoint.
// Per-attempt deadlines come from the caller's context; the underlying HTTP
// client carries no timeout of its own.
func NewRPCClient(endpoint string, client *http.Client) *RPCClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RPCClient{endpoint: endpoint, client: client}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type signatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

type signatureStatusesResponse struct {
	Result struct {
		Value []*signatureStatus `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// SignatureStatus returns the ledger's view of a transaction reference.
//
// A transaction that executed but failed on-chain did not settle anything,
// so it reports as not found rather than finalized.
func (c *RPCClient) SignatureStatus(ctx context.Context, reference string) (Status, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getSignatureStatuses",
		Params: []any{
			[]string{reference},
			map[string]bool{"searchTransactionHistory": true},
		},
	})
	if err != nil {
		return StatusNotFound, fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return StatusNotFound, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return StatusNotFound, fmt.Errorf("ledger rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusNotFound, fmt.Errorf("ledger rpc status %d", resp.StatusCode)
	}

	var parsed signatureStatusesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return StatusNotFound, fmt.Errorf("decode rpc response: %w", err)
	}
	if parsed.Error != nil {
		return StatusNotFound, fmt.Errorf("ledger rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	if len(parsed.Result.Value) == 0 || parsed.Result.Value[0] == nil {
		return StatusNotFound, nil
	}
	st := parsed.Result.Value[0]
	if len(st.Err) > 0 && string(st.Err) != "null" {
		return StatusNotFound, nil
	}
	if st.ConfirmationStatus == "finalized" {
		return StatusFinalized, nil
	}
	return StatusPending, nil
}
