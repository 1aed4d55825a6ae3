package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Pinner stores a capabilities payload in content-addressed storage and
// returns its content identifier. The registry treats pinning as opaque.
type Pinner interface {
	Pin(ctx context.Context, payload []byte) (string, error)
}

// Attester produces an attestation identifier for a registration. The proof
// system behind it is opaque to the registry.
type Attester interface {
	Attest(ctx context.Context, did string, payload []byte) (string, error)
}

// NopPinner returns empty content identifiers. Used when no pinning service
// is configured.
type NopPinner struct{}

func (NopPinner) Pin(context.Context, []byte) (string, error) {
	return "", nil
}

// NopAttester returns empty attestation identifiers. Used when no
// attestation service is configured.
type NopAttester struct{}

func (NopAttester) Attest(context.Context, string, []byte) (string, error) {
	return "", nil
}

// HTTPPinner pins payloads via a JSON POST to an external pinning service.
type HTTPPinner struct {
	url    string
	client *http.Client
}

func NewHTTPPinner(url string, client *http.Client) *HTTPPinner {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPinner{url: url, client: client}
}

func (p *HTTPPinner) Pin(ctx context.Context, payload []byte) (string, error) {
	var result struct {
		CID string `json:"cid"`
	}
	if err := postJSON(ctx, p.client, p.url, payload, &result); err != nil {
		return "", fmt.Errorf("pin payload: %w", err)
	}
	return result.CID, nil
}

// HTTPAttester requests attestation identifiers from an external service.
type HTTPAttester struct {
	url    string
	client *http.Client
}

func NewHTTPAttester(url string, client *http.Client) *HTTPAttester {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAttester{url: url, client: client}
}

func (a *HTTPAttester) Attest(ctx context.Context, did string, payload []byte) (string, error) {
	body, err := json.Marshal(map[string]json.RawMessage{
		"did":     json.RawMessage(fmt.Sprintf("%q", did)),
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("marshal attest request: %w", err)
	}
	var result struct {
		AttestationID string `json:"attestationId"`
	}
	if err := postJSON(ctx, a.client, a.url, body, &result); err != nil {
		return "", fmt.Errorf("request attestation: %w", err)
	}
	return result.AttestationID, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
