package admin

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"badgepass/pkg/requestcontext"
)

// Operator is the subject recorded for requests authorized by the admin token.
const Operator = "admin"

// RequireAdminToken rejects requests whose X-Admin-Token does not match the
// configured bcrypt hash. bcrypt's compare runs in constant time for a given hash.
func RequireAdminToken(tokenHash []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if token == "" || len(tokenHash) == 0 || bcrypt.CompareHashAndPassword(tokenHash, []byte(token)) != nil {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithOperator(ctx, Operator)))
		})
	}
}
