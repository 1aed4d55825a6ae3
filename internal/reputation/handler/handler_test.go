package handler

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/go-chi/chi/v5"

	"repute/internal/agent"
	agenthandler "repute/internal/agent/handler"
	"repute/internal/platform/middleware"
	"repute/internal/reputation"
	"repute/internal/settlement"
	"repute/internal/webhook"
)

const webhookSecret = "test-webhook-secret"

// fixedConfirmer reports every reference as the configured status.
type fixedConfirmer struct {
	status settlement.Status
}

func (c fixedConfirmer) Confirm(context.Context, string) (settlement.Status, error) {
	return c.status, nil
}

type fixture struct {
	router   chi.Router
	store    *agent.MemoryStore
	verifier *webhook.Verifier
	did      string
}

func newFixture(t *testing.T, status settlement.Status) *fixture {
	t.Helper()

	store := agent.NewMemoryStore()
	verifier := webhook.New(webhookSecret)
	repService := reputation.NewService(store, fixedConfirmer{status: status})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	New(repService, verifier, slog.Default()).Register(r)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	did := "did:sol:devnet:" + base58.Encode(pub)

	agentService := agent.NewService(store)
	message := "register me"
	if _, err := agentService.Register(context.Background(), agent.RegisterParams{
		DID:  did,
		Name: "translator",
		Capabilities: agent.Capabilities{
			Skills:      []string{"translate"},
			SuccessRate: 0.9,
			LatencyMs:   250,
		},
		Message:   message,
		Signature: base58.Encode(ed25519.Sign(priv, []byte(message))),
	}); err != nil {
		t.Fatalf("setup registration failed: %v", err)
	}

	return &fixture{router: r, store: store, verifier: verifier, did: did}
}

func (f *fixture) notification(t *testing.T, reference, outcome string, amount float64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"x402TxnId":     reference,
		"agentDid":      f.did,
		"taskOutcome":   outcome,
		"paymentAmount": amount,
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func (f *fixture) post(t *testing.T, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/reputation/update", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		sig, err := f.verifier.Sign(body)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(webhook.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleUpdate(t *testing.T) {
	t.Run("finalized success settlement credits the agent", func(t *testing.T) {
		f := newFixture(t, settlement.StatusFinalized)

		rec := f.post(t, f.notification(t, "tx1", "success", 2.0), true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp agenthandler.AgentResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Reputation != 0.1 {
			t.Fatalf("expected reputation 0.1, got %v", resp.Reputation)
		}
	})

	t.Run("replayed reference leaves the score unchanged", func(t *testing.T) {
		f := newFixture(t, settlement.StatusFinalized)
		body := f.notification(t, "tx1", "success", 2.0)

		if rec := f.post(t, body, true); rec.Code != http.StatusOK {
			t.Fatalf("first submission: expected 200, got %d", rec.Code)
		}
		rec := f.post(t, body, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("replay: expected 200, got %d", rec.Code)
		}

		var resp agenthandler.AgentResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Reputation != 0.1 {
			t.Fatalf("expected reputation to stay 0.1 after replay, got %v", resp.Reputation)
		}

		events, err := f.store.ListEvents(context.Background(), f.did, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(events) != 1 {
			t.Fatalf("expected exactly one event after replay, got %d", len(events))
		}
	})

	t.Run("missing signature returns 401 before any processing", func(t *testing.T) {
		f := newFixture(t, settlement.StatusFinalized)

		rec := f.post(t, f.notification(t, "tx1", "success", 2.0), false)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("tampered payload returns 401", func(t *testing.T) {
		f := newFixture(t, settlement.StatusFinalized)
		body := f.notification(t, "tx1", "success", 2.0)

		req := httptest.NewRequest(http.MethodPost, "/api/reputation/update", bytes.NewReader(
			bytes.Replace(body, []byte(`"success"`), []byte(`"partial"`), 1)))
		sig, err := f.verifier.Sign(body)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(webhook.SignatureHeader, sig)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unfinalized settlement returns 409 and mutates nothing", func(t *testing.T) {
		f := newFixture(t, settlement.StatusPending)

		rec := f.post(t, f.notification(t, "tx-pending", "success", 2.0), true)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}

		a, err := f.store.FindByDID(context.Background(), f.did)
		if err != nil {
			t.Fatal(err)
		}
		if a.Reputation != 0 {
			t.Fatalf("expected untouched score, got %v", a.Reputation)
		}
	})

	t.Run("unknown agent returns 404", func(t *testing.T) {
		f := newFixture(t, settlement.StatusFinalized)

		body, _ := json.Marshal(map[string]any{
			"x402TxnId":     "tx1",
			"agentDid":      "did:sol:devnet:Nobody",
			"taskOutcome":   "success",
			"paymentAmount": 2.0,
		})
		rec := f.post(t, body, true)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("signed but schema-invalid payload returns 400", func(t *testing.T) {
		f := newFixture(t, settlement.StatusFinalized)

		body, _ := json.Marshal(map[string]any{
			"agentDid":      f.did,
			"taskOutcome":   "success",
			"paymentAmount": 2.0,
		})
		rec := f.post(t, body, true)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
