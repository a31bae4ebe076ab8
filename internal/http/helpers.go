package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cashflow/internal/core"
)

var (
	errInvalidAccountID = errors.New("account_id must be a positive integer")
	errInvalidHorizon   = errors.New("months must be between 1 and 24")
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseAccountID reads the account_id query parameter. Zero means
// "not provided".
func parseAccountID(r *http.Request) (core.AccountID, error) {
	v := strings.TrimSpace(r.URL.Query().Get("account_id"))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidAccountID
	}
	return core.AccountID(id), nil
}

// parseMonths reads the months query parameter. Zero means "use the
// configured default".
func parseMonths(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("months"))
	if v == "" {
		return 0, nil
	}
	months, err := strconv.Atoi(v)
	if err != nil || months < 1 || months > 24 {
		return 0, errInvalidHorizon
	}
	return months, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
