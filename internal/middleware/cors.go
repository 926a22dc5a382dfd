package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSHandler configures CORS for the browser clients. X-Request-ID is
// both accepted (it keys idempotent retries) and exposed, along with
// the replay marker, so clients can tell a cached response apart.
func CORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Idempotent-Replay"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
