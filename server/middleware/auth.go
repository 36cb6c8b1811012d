package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hsarchitect/folio/server/auth"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/util"
)

func extractBearerHeader(r *http.Request) string {
	return strings.TrimSpace(auth.ExtractBearerToken(r.Header.Get("Authorization")))
}

// RequireAdmin wraps a downstream handler. It extracts a Bearer token from the
// Authorization header and verifies it. A missing or invalid token aborts the request
// with 401; a valid token whose role is not admin aborts it with 403. On success the
// claims and a user-tagged request logger are attached to the context.
func RequireAdmin(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerHeader(r)
			if token == "" {
				resp.WriteUnauthorized(w, "Missing token")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				rl := util.ForRequest(r)
				if errors.Is(err, auth.ErrInvalidToken) {
					rl.Debugf("token rejected: %v", err)
				} else {
					rl.Warnf("token verification failed: %v", err)
				}
				resp.WriteUnauthorized(w, "Invalid token")
				return
			}

			if claims.Role != auth.RoleAdmin {
				resp.WriteForbidden(w, "Forbidden")
				return
			}

			rl := util.ForRequest(r).WithUser(claims.Email)
			ctx := util.ContextWithLogger(r.Context(), rl)
			ctx = rl.Zerolog().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(auth.AddClaims(ctx, claims)))
		})
	}
}
