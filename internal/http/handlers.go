package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/storage"
)

type accountResponse struct {
	ID      core.AccountID     `json:"id"`
	Name    string             `json:"name"`
	Balance decimal.Decimal    `json:"balance"`
	Source  core.AccountSource `json:"source"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	accounts, err := s.projections.ListAccounts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list accounts", "error", err)
		writeError(w, http.StatusBadGateway, "upstream accounts unavailable")
		return
	}

	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = accountResponse{ID: a.ID, Name: a.Name, Balance: a.Balance, Source: a.Source}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": out})
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	accountID, err := parseAccountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if accountID == 0 {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	months, err := parseMonths(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.projections.Project(r.Context(), accountID, months)
	if err != nil {
		slog.ErrorContext(r.Context(), "Projection failed",
			"account_id", accountID, "horizon_months", months, "error", err)
		writeError(w, http.StatusBadGateway, "projection unavailable")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txns, err := s.transactions.ListTransactions(r.Context(), accountID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if txns == nil {
		txns = []core.LocalTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txns})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.LocalTransaction
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tx.ID = 0
	tx.Description = sanitizeInput(tx.Description)

	created, err := s.transactions.CreateTransaction(r.Context(), tx)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	// New data changes every projection for this account.
	s.projections.Invalidate()

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "transaction id must be a positive integer")
		return
	}

	if err := s.transactions.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	s.projections.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrEmptyDescription) ||
		strings.Contains(err.Error(), "description too long")
}
