package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestIdempotencyKeyScopedToUser(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()

	keyA := idempotencyKey(userA, http.MethodPost, "/api/v1/listings", "req-1")
	keyB := idempotencyKey(userB, http.MethodPost, "/api/v1/listings", "req-1")
	if keyA == keyB {
		t.Fatalf("different users share an idempotency key: %s", keyA)
	}
	if !strings.Contains(keyA, userA.String()) {
		t.Fatalf("key does not carry the user id: %s", keyA)
	}
	if keyA != idempotencyKey(userA, http.MethodPost, "/api/v1/listings", "req-1") {
		t.Fatal("key is not stable for an identical retry")
	}
}

func TestIdempotencyPassThrough(t *testing.T) {
	// The client is never dialed: every request below short-circuits
	// before any Redis call.
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	defer rdb.Close()
	mw := Idempotency(rdb, time.Minute)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTeapot)
	})

	// Unauthenticated mutation: no user on the context, no replay.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	if calls != 1 {
		t.Fatalf("expected unauthenticated request to pass through, calls = %d", calls)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected handler status, got %d", rec.Code)
	}
	if rec.Header().Get("X-Idempotent-Replay") != "" {
		t.Fatal("unauthenticated request must not be replayed")
	}

	// GETs pass through even with a user and request id.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	req.Header.Set("X-Request-ID", "req-2")
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, uuid.New()))
	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	if calls != 2 {
		t.Fatalf("expected GET to pass through, calls = %d", calls)
	}

	// A mutation without a request id opts out of replay.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/listings", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, uuid.New()))
	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	if calls != 3 {
		t.Fatalf("expected request without id to pass through, calls = %d", calls)
	}
}
