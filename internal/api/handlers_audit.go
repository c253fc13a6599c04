package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/org/examvault/internal/audit"
	"github.com/org/examvault/internal/fault"
	"github.com/org/examvault/internal/storage"
)

// AuditLogHandler handles GET /v1/sys/audit-log
func (s *Server) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.AuditFilter{
		Event:       q.Get("event"),
		PrincipalID: q.Get("principal_id"),
		Path:        q.Get("path"),
		Limit:       100,
	}

	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, fault.Wrap(fault.PreconditionMissing, "audit_log", "since must be RFC3339", err))
			return
		}
		filter.Since = &t
	}

	records, err := s.auditor.Query(r.Context(), filter)
	if errors.Is(err, audit.ErrNoStore) {
		writeError(w, fault.New(fault.NotFound, "audit_log", "audit log is not queryable on this server"))
		return
	}
	if err != nil {
		writeError(w, fault.Wrap(fault.Internal, "audit_log", "failed to query audit log", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}
