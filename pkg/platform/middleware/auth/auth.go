package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"warden/pkg/requestcontext"
	"warden/pkg/secrets"
)

// OperatorClaims represents the claims the middleware expects from a
// validated bearer token.
type OperatorClaims struct {
	OperatorID string
}

// TokenValidator validates bearer tokens presented to the ops API.
type TokenValidator interface {
	ValidateToken(tokenString string) (*OperatorClaims, error)
}

// OpsKeyActorID attributes decisions made with the shared ops key, which
// carries no individual operator identity.
const OpsKeyActorID = "ops-key"

const opsKeyHeader = "X-Ops-Key"

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireOperator admits only requests carrying a valid bearer token and
// puts the operator ID into the request context. A nil validator means
// token auth was never configured; guarded routes answer 503 rather than
// silently opening up.
func RequireOperator(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := authenticateBearer(w, r, validator, logger)
			if !ok {
				return
			}
			ctx := requestcontext.WithActorID(r.Context(), claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOperatorOrOpsKey additionally accepts the shared ops key, so
// automation can call decision routes without token infrastructure. A
// presented key is checked against the configured bcrypt hash; when no
// hash is configured the key is ignored and bearer auth applies.
func RequireOperatorOrOpsKey(validator TokenValidator, opsKeyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(opsKeyHeader); key != "" && opsKeyHash != "" {
				if err := secrets.Verify(key, opsKeyHash); err != nil {
					ctx := r.Context()
					logger.WarnContext(ctx, "unauthorized access - ops key mismatch",
						"request_id", requestcontext.RequestID(ctx),
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid ops key")
					return
				}
				ctx := requestcontext.WithActorID(r.Context(), OpsKeyActorID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, ok := authenticateBearer(w, r, validator, logger)
			if !ok {
				return
			}
			ctx := requestcontext.WithActorID(r.Context(), claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticateBearer(w http.ResponseWriter, r *http.Request, validator TokenValidator, logger *slog.Logger) (*OperatorClaims, bool) {
	ctx := r.Context()

	if validator == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Operator authentication is not configured")
		return nil, false
	}

	authHeader := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	tokenString, ok := strings.CutPrefix(authHeader, bearerPrefix)
	if !ok {
		logger.WarnContext(ctx, "unauthorized access - missing token",
			"request_id", requestcontext.RequestID(ctx),
		)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		return nil, false
	}

	claims, err := validator.ValidateToken(tokenString)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access - invalid token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
		return nil, false
	}
	return claims, true
}
