package server

import (
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/pharmacy/internal/apperr"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
)

// handleListAuditEvents handles GET /v1/audit-events.
func (s *Server) handleListAuditEvents(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(model.AuditEventSchema, r.URL.Query())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	runQuery[model.AuditEvent](w, r, s.store.AuditEvents(), req, nil)
}

// handleQueryAuditEvents handles POST /v1/audit-events/query.
func (s *Server) handleQueryAuditEvents(w http.ResponseWriter, r *http.Request) {
	var req query.DataRequest
	if err := s.decode(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	runQuery[model.AuditEvent](w, r, s.store.AuditEvents(), req, nil)
}

// handleGetAuditEvent handles GET /v1/audit-events/{id}.
func (s *Server) handleGetAuditEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, r, apperr.Invalid("invalid id %q", r.PathValue("id")))
		return
	}
	evt, err := s.store.GetAuditEvent(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}
