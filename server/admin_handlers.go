package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/buddy-auth/auth/authlog"
	"github.com/rs/zerolog"
)

const defaultLogLimit = 10

type LogsResponse struct {
	Entries []authlog.Entry `json:"entries"`
}

type WhitelistResponse struct {
	Devices []string `json:"devices"`
}

type WhitelistChangeResponse struct {
	Device  string `json:"device"`
	Changed bool   `json:"changed"`
}

// AdminStatusHandler returns the security summary.
func (s *Server) AdminStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.auth.SecurityStatus())
	}
}

// AdminLogsHandler returns the newest authentication log entries, newest
// first. ?limit=N selects how many; the default is 10.
func (s *Server) AdminLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLogLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		if claim, ok := ClaimFromContext(r.Context()); ok {
			zerolog.Ctx(r.Context()).Info().Str("user_id", claim.UserID).Int("limit", limit).Msg("security logs viewed")
		}

		entries := s.auth.RecentLogs(limit)
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		writeJSON(w, http.StatusOK, LogsResponse{Entries: entries})
	}
}

func (s *Server) WhitelistListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, WhitelistResponse{Devices: s.auth.Whitelist()})
	}
}

func (s *Server) WhitelistAddHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := strings.TrimSpace(r.PathValue("device"))
		if device == "" {
			writeError(w, http.StatusBadRequest, "device is required")
			return
		}
		changed := s.auth.AddDevice(device)
		writeJSON(w, http.StatusOK, WhitelistChangeResponse{Device: device, Changed: changed})
	}
}

func (s *Server) WhitelistRemoveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := strings.TrimSpace(r.PathValue("device"))
		if !s.auth.RemoveDevice(device) {
			writeError(w, http.StatusNotFound, "device not whitelisted")
			return
		}
		writeJSON(w, http.StatusOK, WhitelistChangeResponse{Device: device, Changed: true})
	}
}
