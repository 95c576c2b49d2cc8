package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spendmate/internal/auth"
	"spendmate/internal/cache"
	"spendmate/internal/core"
	"spendmate/internal/ledger"
	"spendmate/internal/log"
	"spendmate/internal/middleware/ratelimit"
	"spendmate/internal/services"
	"spendmate/internal/store/memory"
)

func newTestServer(t *testing.T, opts Options) (*Server, *auth.State) {
	t.Helper()
	s := memory.New()
	state := auth.NewState(log.Discard())
	client := ledger.NewClient(s, log.Discard())
	manager := ledger.NewManager(client, state, time.Minute)
	svc := services.NewLedgerService(client, manager, state, cache.NewLRUCache[core.UserProfile](8, time.Minute), log.Discard())
	srv := NewServer(":0", svc, state, opts)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		manager.Close()
		s.Close()
	})
	return srv, state
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// awaitLedger polls path until cond holds. Writes reach the shared cache
// asynchronously, so a read straight after a write may still be stale.
func awaitLedger(t *testing.T, srv *Server, path string, cond func(ledgerResponse) bool) ledgerResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s status=%d body=%s", path, rr.Code, rr.Body)
		}
		v := decode[ledgerResponse](t, rr)
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("ledger did not catch up: %+v", v)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db gone") }})
	if rr := do(t, down, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when not ready, got %d", rr.Code)
	}
}

func TestRequestIDAndHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Fatalf("missing generated request id: %q", rr.Header().Get("X-Request-ID"))
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers not applied")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("caller request id not echoed, got %q", got)
	}
}

func TestSession(t *testing.T) {
	srv, state := newTestServer(t, Options{})

	if got := decode[sessionResponse](t, do(t, srv, http.MethodGet, "/api/session", "")); got.SignedIn {
		t.Fatal("expected signed out session")
	}
	if rr := do(t, srv, http.MethodPost, "/api/session", `{"userId":"a/b"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid user id, got %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/session", `{"userId":"u1","email":"u1@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("sign in status=%d body=%s", rr.Code, rr.Body)
	}
	if state.Current().UserID != "u1" {
		t.Fatalf("auth state not updated: %+v", state.Current())
	}
	if rr := do(t, srv, http.MethodDelete, "/api/session", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("sign out status=%d", rr.Code)
	}
	if state.Current().SignedIn() {
		t.Fatal("still signed in after DELETE")
	}
}

func TestUnauthenticatedRequests(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/ledger", ""},
		{http.MethodPost, "/api/transactions", `{"name":"x","amount":"1","category":"Misc"}`},
		{http.MethodGet, "/api/profile", ""},
	} {
		rr := do(t, srv, tc.method, tc.path, tc.body)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rr.Code)
		}
		if got := decode[errorBody](t, rr); got.Error != "unauthenticated" {
			t.Fatalf("unexpected error body %+v", got)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, state := newTestServer(t, Options{Currency: "USD"})
	state.SignIn("u1", "")

	today := time.Now().Format(time.DateOnly)
	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"name":"Flight","amount":"30","type":"expense","category":"travel","date":"`+today+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	id := decode[createdResponse](t, rr).ID
	if id == "" || rr.Header().Get("Location") != "/api/transactions/"+id {
		t.Fatalf("unexpected create response id=%q location=%q", id, rr.Header().Get("Location"))
	}

	rr = do(t, srv, http.MethodGet, "/api/ledger?period=month&type=expense", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ledger status=%d body=%s", rr.Code, rr.Body)
	}
	view := decode[ledgerResponse](t, rr)
	if view.Status != "ready" || view.Expense != "30.00" || view.Net != "-30.00" {
		t.Fatalf("unexpected ledger %+v", view)
	}
	if len(view.Transactions) != 1 || view.Transactions[0].Category != "Travel" || view.Transactions[0].Icon != "car-speed" {
		t.Fatalf("unexpected transactions %+v", view.Transactions)
	}
	if len(view.CategorySpending) != 1 || view.CategorySpending[0].Total != "30.00" {
		t.Fatalf("unexpected category spending %+v", view.CategorySpending)
	}

	if rr := do(t, srv, http.MethodPut, "/api/transactions/"+id, `{"amount":"-4"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for negative amount, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/transactions/"+id, `{"amount":"45.5"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(t, srv, http.MethodPut, "/api/transactions/missing", `{"amount":"1"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing transaction, got %d", rr.Code)
	}

	view = awaitLedger(t, srv, "/api/ledger", func(v ledgerResponse) bool { return v.Version > view.Version && v.Expense == "45.50" })
	if view.Expense != "45.50" || view.Period != "all" || view.Type != "all" {
		t.Fatalf("update not reflected: %+v", view)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+id, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	view = awaitLedger(t, srv, "/api/ledger", func(v ledgerResponse) bool { return v.Version > view.Version && len(v.Transactions) == 0 })
	if len(view.Transactions) != 0 || view.Line.Labels == nil {
		t.Fatalf("expected empty ledger with empty series, got %+v", view)
	}
	if !strings.Contains(do(t, srv, http.MethodGet, "/api/ledger", "").Body.String(), `"line":{"labels":[],"values":[]}`) {
		t.Fatal("empty series must encode as empty arrays")
	}
}

func TestBadRequests(t *testing.T) {
	srv, state := newTestServer(t, Options{})
	state.SignIn("u1", "")

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"bad filter", http.MethodGet, "/api/ledger?period=decade", "", http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/api/transactions", `{"name":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/transactions", `{"title":"x"}`, http.StatusBadRequest},
		{"missing category", http.MethodPost, "/api/transactions", `{"name":"x","amount":"1"}`, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodPatch, "/api/ledger", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := do(t, srv, tt.method, tt.path, tt.body); rr.Code != tt.want {
				t.Fatalf("status=%d, want %d (body %s)", rr.Code, tt.want, rr.Body)
			}
		})
	}
}

func TestProfileEndpoints(t *testing.T) {
	srv, state := newTestServer(t, Options{})
	state.SignIn("u1", "")

	if rr := do(t, srv, http.MethodGet, "/api/profile", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first edit, got %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPut, "/api/profile", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	got := decode[profileResponse](t, do(t, srv, http.MethodGet, "/api/profile", ""))
	if got.DisplayName != "Ada Lovelace" || got.UserID != "u1" {
		t.Fatalf("unexpected profile %+v", got)
	}
	if rr := do(t, srv, http.MethodPut, "/api/profile", `{"firstName":"Ada","lastName":"L","email":"nope"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad email, got %d", rr.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv, state := newTestServer(t, Options{RateLimit: ratelimit.Config{RequestsPerMinute: 1}})
	state.SignIn("u1", "")

	body := `{"name":"x","amount":"1","category":"Misc"}`
	if rr := do(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
		t.Fatalf("first write status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/ledger", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[services.Kind]int{
		services.KindValidation:      http.StatusUnprocessableEntity,
		services.KindUnauthenticated: http.StatusUnauthorized,
		services.KindNotFound:        http.StatusNotFound,
		services.KindWrite:           http.StatusBadGateway,
		services.KindSubscription:    http.StatusServiceUnavailable,
		services.KindUnavailable:     http.StatusServiceUnavailable,
		services.KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := StatusFor(kind); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}
