package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/buddy-auth/credentials"
	"github.com/pkg/errors"
)

const (
	userIDHeader   = "X-User-ID"
	adminKeyHeader = "X-Admin-Key"

	maxBodyBytes = 64 << 10
)

// messageRequest is the body accepted by the conversation and authentication endpoints.
type messageRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Reply   string `json:"reply,omitempty"` // generated reply to filter and prefix
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody reads an optional JSON body. An empty body decodes to the zero value.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errors.Wrap(err, "[decodeBody] invalid JSON body")
}

// requestUserID prefers the body's user id and falls back to the X-User-ID header.
func requestUserID(r *http.Request, bodyUserID string) string {
	if strings.TrimSpace(bodyUserID) != "" {
		return bodyUserID
	}
	return r.Header.Get(userIDHeader)
}

// bundleFromRequest sanitizes the request's headers together with the message and user id.
func bundleFromRequest(r *http.Request, message, userID string) credentials.Bundle {
	return credentials.Extract(credentials.FromHTTP(r.Header), message, requestUserID(r, userID))
}
