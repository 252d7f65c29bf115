package middleware

import (
	"net/http"
	"strings"

	"github.com/oyeong/noteapi/internal/auth"
)

// writeJSONError writes a minimal error envelope without depending on the api
// package (which imports middleware).
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}

// Authenticate parses the Authorization header and stores the resulting
// principal in the request context. Requests without a bearer token pass
// through anonymously; endpoints that require authentication enforce it via
// RequirePolicy. A present-but-invalid token is rejected with 401 so a client
// with an expired token gets a clear signal instead of silently degraded
// (empty) results.
func Authenticate(ts *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				SetErrorCode(r.Context(), "auth_failed")
				writeJSONError(w, http.StatusUnauthorized, "auth_failed", "Malformed authorization header")
				return
			}

			claims, err := ts.ValidateAccessToken(token)
			if err != nil {
				SetErrorCode(r.Context(), "auth_failed")
				writeJSONError(w, http.StatusUnauthorized, "auth_failed", "Invalid or expired token")
				return
			}

			ctx := WithPrincipal(r.Context(), claims.Principal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePolicy enforces a role policy for the wrapped handler. Anonymous
// requests get 401; authenticated requests that the policy denies get a
// uniform 403 without revealing which check failed.
func RequirePolicy(policy auth.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				SetErrorCode(r.Context(), "auth_failed")
				writeJSONError(w, http.StatusUnauthorized, "auth_failed", "Authentication required")
				return
			}
			if !policy.Allows(p, r.Method) {
				SetErrorCode(r.Context(), "forbidden")
				writeJSONError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
