package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
)

// How long the in-progress lock is held before a retry may take over.
const provisionalLockTTL = 60 * time.Second

type idempotencyEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

type idempotencyRecorder struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *idempotencyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *idempotencyRecorder) WriteHeader(statusCode int) {
	r.code = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// idempotencyKey scopes replay to one authenticated user: a request id
// reused by another user must never hit the first user's entry.
func idempotencyKey(userID uuid.UUID, method, path, reqID string) string {
	return "idem:" + userID.String() + ":" + method + ":" + path + ":" + reqID
}

// Idempotency replays the first response for retried mutations.
// Key = user + method + path + X-Request-ID, so it must run after Auth
// has put the user on the context. GETs pass through, as do requests
// without a request id (the RequestID middleware always sets one, so
// only callers that opt in by reusing an id get replay semantics) and
// unauthenticated requests. When Redis is unavailable the middleware
// degrades to a no-op.
func Idempotency(rdb *redis.Client, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r.Context())
			if userID == uuid.Nil {
				next.ServeHTTP(w, r)
				return
			}
			key := idempotencyKey(userID, r.Method, r.URL.Path, reqID)

			ctx := r.Context()
			entry := idempotencyEntry{InProgress: true, CreatedAt: time.Now().UTC()}
			raw, _ := json.Marshal(entry)

			ok, err := rdb.SetNX(ctx, key, raw, provisionalLockTTL).Result()
			if err != nil {
				log.Warn().Err(err).Msg("idempotency store unavailable, passing through")
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				replayStored(ctx, rdb, key, w)
				return
			}

			rec := &idempotencyRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			stored := idempotencyEntry{
				Code:      rec.code,
				Body:      rec.buf.Bytes(),
				CreatedAt: time.Now().UTC(),
			}
			raw, _ = json.Marshal(stored)
			if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("failed to store idempotency entry")
			}
		})
	}
}

func replayStored(ctx context.Context, rdb *redis.Client, key string, w http.ResponseWriter) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		response.Conflict(w, "request is already being processed")
		return
	}

	var entry idempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.InProgress {
		response.Conflict(w, "request is already being processed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotent-Replay", "true")
	w.WriteHeader(entry.Code)
	w.Write(entry.Body)
}
