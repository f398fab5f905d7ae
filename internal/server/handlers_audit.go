package server

import (
	"net/http"
	"strconv"

	"github.com/coachdesk/coachdesk/internal/storage"
)

const defaultLogLimit = 50

// auditDB returns the audit database, or writes 503 and returns nil when
// auditing is disabled.
func (s *Server) auditDB(w http.ResponseWriter) *storage.DB {
	if s.app.Audit == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "navigation audit is disabled"})
		return nil
	}
	return s.app.Audit
}

func (s *Server) handleNavigationLogs(w http.ResponseWriter, r *http.Request) {
	db := s.auditDB(w)
	if db == nil {
		return
	}
	limit := defaultLogLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := db.QueryNavigationLogs(r.Context(), limit)
	if err != nil {
		s.log.Error("querying navigation logs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, nonNil(logs))
}

func (s *Server) handleNavigationStats(w http.ResponseWriter, r *http.Request) {
	db := s.auditDB(w)
	if db == nil {
		return
	}
	stats, err := db.GetNavigationStats(r.Context())
	if err != nil {
		s.log.Error("querying navigation stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCallers(w http.ResponseWriter, r *http.Request) {
	db := s.auditDB(w)
	if db == nil {
		return
	}
	callers, err := db.ListCallers(r.Context())
	if err != nil {
		s.log.Error("querying callers", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, nonNil(callers))
}
