package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaim stores the request's auth.AuthResult
const ContextKeyClaim ContextKey = "claim"

// ClaimFromContext returns the claim stored by RequireMaster.
func ClaimFromContext(ctx context.Context) (auth.AuthResult, bool) {
	claim, ok := ctx.Value(ContextKeyClaim).(auth.AuthResult)
	return claim, ok
}

// RequireMaster authenticates the request's credentials and admits only the
// master identity. Failures are reported without saying which credential failed.
func (s *Server) RequireMaster() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claim, err := s.auth.Authenticate(r.Context(), bundleFromRequest(r, "", ""))
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("authentication unavailable")
				writeError(w, http.StatusServiceUnavailable, "authentication unavailable")
				return
			}
			if !claim.Authenticated {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !claim.IsMaster() {
				writeError(w, http.StatusForbidden, "not permitted")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClaim, claim)))
		}
	}
}

// RequireAdminKey guards out-of-band administration with a key checked
// against the configured bcrypt hash. An unset hash disables the routes.
func (s *Server) RequireAdminKey() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hash := s.config.GetAdminKeyHash()
			if hash == "" {
				writeError(w, http.StatusServiceUnavailable, "administration disabled")
				return
			}
			if !users.CheckAdminKeyHash(r.Header.Get(adminKeyHeader), hash) {
				zerolog.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("admin key rejected")
				writeError(w, http.StatusUnauthorized, "invalid admin key")
				return
			}
			next(w, r)
		}
	}
}
