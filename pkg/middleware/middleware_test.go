package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"jobfair/pkg/auth"
	apperrors "jobfair/pkg/errors"
	"jobfair/pkg/logger"
	"jobfair/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockActorLoader struct {
	loadFunc func(ctx context.Context, userID string) (model.Actor, error)
}

func (m *mockActorLoader) LoadActor(ctx context.Context, userID string) (model.Actor, error) {
	return m.loadFunc(ctx, userID)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

func TestRequestLogging_SetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("expected generated request id in context and header, got %q / %q", seen, rr.Header().Get(RequestIDHeader))
	}

	const incoming = "7f1d3c52-8a0e-4c43-9a58-0d5e2f1b9c11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Errorf("expected incoming request id to be kept, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Error("expected malformed request id to be replaced")
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["success"] != false || strings.Contains(rr.Body.String(), "boom") {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, "{}", "application/json; charset=utf-8", http.StatusOK},
		{"text post", http.MethodPost, "{}", "text/plain", http.StatusUnsupportedMediaType},
		{"missing header", http.MethodPut, "{}", "", http.StatusUnsupportedMediaType},
		{"get without header", http.MethodGet, "", "", http.StatusOK},
		{"delete without body", http.MethodDelete, "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := send("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for the third request, got %d", code)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("expected other client to be unaffected, got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:4000"
	if got := ClientIP(req); got != "192.168.1.10" {
		t.Errorf("expected remote host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}
}

func TestIdempotency(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":` + string(rune('0'+n)) + `}`))
	}))

	send := func(auth, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/booking", strings.NewReader("{}"))
		req.Header.Set("Authorization", auth)
		req.Header.Set(DefaultIdempotencyHeader, key)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := send("Bearer a", "k1")
	second := send("Bearer a", "k1")
	if first.Body.String() != second.Body.String() || second.Code != http.StatusCreated {
		t.Errorf("expected replay, got %q then %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay marker header")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}

	send("Bearer b", "k1")
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected key to be scoped per caller, got %d calls", calls)
	}
}

func TestIdempotency_InFlightConflict(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	if !store.Begin("k") {
		t.Fatal("expected first Begin to succeed")
	}
	if store.Begin("k") {
		t.Fatal("expected second Begin to fail while in flight")
	}
	store.End("k")
	if !store.Begin("k") {
		t.Fatal("expected Begin to succeed after End")
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rr.Code)
	}
}

func TestAuthenticator_Protect(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret-at-least-16", time.Hour, "jobfair")
	valid, _, _ := tokens.Issue("u1", model.RoleUser)
	ghost, _, _ := tokens.Issue("ghost", model.RoleUser)
	broken, _, _ := tokens.Issue("broken", model.RoleUser)

	loader := &mockActorLoader{loadFunc: func(ctx context.Context, userID string) (model.Actor, error) {
		switch userID {
		case "u1":
			return model.Actor{UserID: "u1", Role: model.RoleUser}, nil
		case "ghost":
			return model.Actor{}, apperrors.Unauthorized("User not found")
		default:
			return model.Actor{}, context.DeadlineExceeded
		}
	}}

	a := NewAuthenticator(tokens, loader, logger.Discard())
	var got model.Actor
	h := a.Protect(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		header  string
		want    int
		wantMsg string
	}{
		{"no header", "", http.StatusUnauthorized, "Not authorized, no token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Not authorized, no token"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "Invalid token"},
		{"deleted user", "Bearer " + ghost, http.StatusUnauthorized, "User not found"},
		{"store failure", "Bearer " + broken, http.StatusInternalServerError, ""},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h(rr, req, nil)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if tt.wantMsg != "" {
				if body := decodeError(t, rr); body["error"] != tt.wantMsg {
					t.Errorf("expected message %q, got %v", tt.wantMsg, body["error"])
				}
			}
		})
	}

	if got.UserID != "u1" {
		t.Errorf("expected actor u1 in context, got %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleAdmin)(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name  string
		actor *model.Actor
		want  int
	}{
		{"no actor", nil, http.StatusUnauthorized},
		{"user", &model.Actor{UserID: "u1", Role: model.RoleUser}, http.StatusForbidden},
		{"admin", &model.Actor{UserID: "a1", Role: model.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tt.actor))
			}
			rr := httptest.NewRecorder()
			h(rr, req, nil)
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}
