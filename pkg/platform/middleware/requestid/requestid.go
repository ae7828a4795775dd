// Package requestid assigns each request a UUID so log lines and audit
// events from one request can be correlated.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"warden/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware reuses the caller's X-Request-ID when present, generates one
// otherwise, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerName, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
