package handler

import (
	"bytes"
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
	"repute/internal/platform/middleware"
)

func newAgentRouter(t *testing.T) (chi.Router, *agent.MemoryStore) {
	t.Helper()
	store := agent.NewMemoryStore()
	service := agent.NewService(store)
	h := New(service, slog.Default())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	h.Register(r)
	return r, store
}

type testWallet struct {
	did  string
	priv ed25519.PrivateKey
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return testWallet{did: "did:sol:devnet:" + base58.Encode(pub), priv: priv}
}

func registerBody(w testWallet, message string) []byte {
	body, _ := json.Marshal(map[string]any{
		"did":  w.did,
		"name": "translator",
		"capabilities": map[string]any{
			"skills":      []string{"translate"},
			"successRate": 0.9,
			"latencyMs":   250,
		},
		"message":   message,
		"signature": base58.Encode(ed25519.Sign(w.priv, []byte(message))),
	})
	return body
}

func TestHandleRegister(t *testing.T) {
	t.Run("valid registration returns 201 with the created agent", func(t *testing.T) {
		router, _ := newAgentRouter(t)
		w := newTestWallet(t)

		req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(registerBody(w, "register me")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp AgentResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.DID != w.did {
			t.Fatalf("expected did %q, got %q", w.did, resp.DID)
		}
		if resp.Reputation != 0 {
			t.Fatalf("expected reputation 0, got %v", resp.Reputation)
		}
	})

	t.Run("forged signature returns 401 and creates nothing", func(t *testing.T) {
		router, store := newAgentRouter(t)
		w := newTestWallet(t)
		impostor := newTestWallet(t)

		body, _ := json.Marshal(map[string]any{
			"did":  w.did,
			"name": "translator",
			"capabilities": map[string]any{
				"skills":      []string{"translate"},
				"successRate": 0.9,
				"latencyMs":   250,
			},
			"message":   "register me",
			"signature": base58.Encode(ed25519.Sign(impostor.priv, []byte("register me"))),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if _, err := store.FindByDID(req.Context(), w.did); err == nil {
			t.Fatal("expected no agent record after rejected registration")
		}
	})

	t.Run("missing required fields return 400", func(t *testing.T) {
		router, _ := newAgentRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader([]byte(`{"name":"x"}`)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("malformed JSON returns 400", func(t *testing.T) {
		router, _ := newAgentRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader([]byte(`{`)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("duplicate DID returns 409", func(t *testing.T) {
		router, _ := newAgentRouter(t)
		w := newTestWallet(t)

		for i, want := range []int{http.StatusCreated, http.StatusConflict} {
			req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(registerBody(w, "register me")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != want {
				t.Fatalf("attempt %d: expected %d, got %d", i+1, want, rec.Code)
			}
		}
	})
}

func TestHandleGet(t *testing.T) {
	router, _ := newAgentRouter(t)
	w := newTestWallet(t)

	req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(registerBody(w, "register me")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup registration failed: %d", rec.Code)
	}

	t.Run("returns the agent with an empty history", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/"+w.did, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp GetResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Agent.DID != w.did {
			t.Fatalf("expected did %q, got %q", w.did, resp.Agent.DID)
		}
		if resp.Events == nil || len(resp.Events) != 0 {
			t.Fatalf("expected empty events array, got %v", resp.Events)
		}
	})

	t.Run("unknown DID returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/did:sol:devnet:Nobody", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestHandleList(t *testing.T) {
	router, _ := newAgentRouter(t)
	for i := 0; i < 3; i++ {
		w := newTestWallet(t)
		req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(registerBody(w, "register me")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("setup registration failed: %d", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(resp.Agents))
	}
}
