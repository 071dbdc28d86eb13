package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/apperr"
	"github.com/alfredjeanlab/pharmacy/internal/model"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// NewHTTPHandler returns an http.Handler with all routes registered. Every
// route except health and login requires a bearer token.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("GET /v1/auth/me", s.handleMe)
	mux.HandleFunc("PUT /v1/users/{id}/password", s.handleChangePassword)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	registerCRUD(mux, s, branches)
	registerCRUD(mux, s, products)
	registerCRUD(mux, s, stakeholders)
	registerCRUD(mux, s, stocks)
	registerCRUD(mux, s, users)
	registerCRUD(mux, s, roles)
	registerCRUD(mux, s, lookups)
	registerCRUD(mux, s, integrationProviders)
	registerCRUD(mux, s, integrationSettings)

	registerRead(mux, s, "stock-transactions", model.StockTransactionSchema, stockTransactionsOf, nil)
	mux.HandleFunc("POST /v1/stock-transactions", s.require("stock-transactions", actionWrite, s.handleCreateStockTransaction))
	registerRead(mux, s, "sales-invoices", model.SalesInvoiceSchema, salesInvoicesOf, nil)
	mux.HandleFunc("POST /v1/sales-invoices", s.require("sales-invoices", actionWrite, s.handleCreateSalesInvoice))

	mux.HandleFunc("GET /v1/audit-events", s.require("audit-events", actionRead, s.handleListAuditEvents))
	mux.HandleFunc("POST /v1/audit-events/query", s.require("audit-events", actionRead, s.handleQueryAuditEvents))
	mux.HandleFunc("GET /v1/audit-events/{id}", s.require("audit-events", actionRead, s.handleGetAuditEvent))

	return RecoveryMiddleware(LoggingMiddleware(AuthMiddleware(s.tokens, mux)))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst and runs struct validation on it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is required")
		}
		return apperr.Wrap(apperr.Validation, err, "invalid JSON body")
	}
	return s.check(dst)
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps err to a status and writes it. Internal errors are logged
// and hidden from the client.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, status, map[string]any{"error": ve.Error(), "fields": ve.Errors})
		return
	}
	writeError(w, status, apperr.PublicMessage(err))
}

func writeCreated(w http.ResponseWriter, r *http.Request, id string, v any) {
	w.Header().Set("Location", fmt.Sprintf("%s/%s", r.URL.Path, id))
	writeJSON(w, http.StatusCreated, v)
}
