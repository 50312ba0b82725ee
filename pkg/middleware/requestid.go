package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request id to every request: an incoming
// X-Request-ID header is honoured, otherwise a random id is generated.
// The id is stored in the request context and echoed in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
