package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/conversation"
	apperrors "github.com/jrsteele09/buddy-auth/internal/errors"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/jrsteele09/buddy-auth/users"
	"github.com/rs/zerolog"
)

// ChatResponse is the outcome of one conversation turn. Reply is set when
// the request carried a generated reply and the outcome asks for one.
type ChatResponse struct {
	conversation.Outcome
	Reply string `json:"reply,omitempty"`
}

// AuthenticateResponse is the claim plus what it grants.
type AuthenticateResponse struct {
	Claim        auth.AuthResult    `json:"claim"`
	Capabilities []users.Capability `json:"capabilities"`
}

// TokenResponse is returned from the token endpoint.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"` // always "Bearer"
	ExpiresIn   int       `json:"expires_in"` // seconds
	ExpiresAt   time.Time `json:"expires_at"`
}

type revokeRequest struct {
	Token string `json:"token"`
}

type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// SessionResponse describes a caller's session, if any.
type SessionResponse struct {
	Active           bool              `json:"active"`
	Session          *sessions.Session `json:"session,omitempty"`
	RemainingSeconds int               `json:"remaining_seconds"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": s.config.GetAppName()})
	}
}

// ChatHandler runs one message through authentication, the session lifecycle
// and the access gate.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		out, err := s.processor.Process(r.Context(), bundleFromRequest(r, req.Message, req.UserID))
		if err != nil {
			s.writeProcessError(w, r, err)
			return
		}

		resp := ChatResponse{Outcome: out}
		if out.Action == conversation.ActionRespond && req.Reply != "" {
			resp.Reply = s.processor.Finalize(out, req.Reply)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// AuthenticateHandler evaluates the request's credentials without touching sessions.
func (s *Server) AuthenticateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		claim, err := s.auth.Authenticate(r.Context(), bundleFromRequest(r, req.Message, req.UserID))
		if err != nil {
			s.writeProcessError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, AuthenticateResponse{Claim: claim, Capabilities: claim.Capabilities()})
	}
}

// TokenHandler issues a bearer token for a master claim established by the
// request's credentials (typically the passphrase in the message).
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		claim, err := s.auth.Authenticate(r.Context(), bundleFromRequest(r, req.Message, req.UserID))
		if err != nil {
			s.writeProcessError(w, r, err)
			return
		}

		raw, err := s.auth.IssueToken(r.Context(), claim)
		switch {
		case apperrors.Is(err, apperrors.ErrNotPermitted):
			writeError(w, http.StatusForbidden, "not permitted")
			return
		case err != nil:
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("token issue failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		expiry := s.auth.TokenExpiry()
		writeJSON(w, http.StatusOK, TokenResponse{
			AccessToken: raw,
			TokenType:   "Bearer",
			ExpiresIn:   int(expiry / time.Second),
			ExpiresAt:   s.nowFunc().Add(expiry).UTC(),
		})
	}
}

// RevokeHandler revokes the token in the body, or the request's own bearer token.
func (s *Server) RevokeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req revokeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		raw := strings.TrimSpace(req.Token)
		if raw == "" {
			raw, _ = auth.BearerToken(bundleFromRequest(r, "", "").Headers)
		}
		if raw == "" {
			writeError(w, http.StatusBadRequest, "token is required")
			return
		}
		writeJSON(w, http.StatusOK, RevokeResponse{Revoked: s.auth.RevokeToken(r.Context(), raw)})
	}
}

// SessionHandler reports the session for the user id in the X-User-ID header
// or the user_id query parameter. It sits behind RequireMaster, so a session's
// identity is never shown to a caller without a credential of their own.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bundle := bundleFromRequest(r, "", r.URL.Query().Get("user_id"))
		session, ok := s.sessions.Get(bundle.UserID)
		if !ok {
			writeJSON(w, http.StatusOK, SessionResponse{})
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{
			Active:           true,
			Session:          session,
			RemainingSeconds: int(session.Remaining(s.nowFunc()) / time.Second),
		})
	}
}

func (s *Server) writeProcessError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	if apperrors.Is(err, apperrors.ErrAuthenticationUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "authentication unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
