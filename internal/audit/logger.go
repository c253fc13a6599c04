package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/org/examvault/internal/storage"
	"github.com/org/examvault/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var (
	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examvault_audit_records_total",
		Help: "Audit records written, by event and outcome.",
	}, []string{"event", "outcome"})

	recordFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "examvault_audit_record_failures_total",
		Help: "Audit records that could not be written, by event and sink.",
	}, []string{"event", "sink"})
)

func init() {
	prometheus.MustRegister(recordsTotal, recordFailuresTotal)
}

// ErrNoStore is returned by Query when no durable store is configured.
var ErrNoStore = errors.New("audit: no queryable store configured")

// Logger writes structured audit records. Each record becomes one JSON line
// on the writer and, when a store is configured, one row in the store.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	store storage.AuditStore
}

// NewLogger creates an audit Logger writing lines to out. store may be nil.
func NewLogger(out io.Writer, store storage.AuditStore) *Logger {
	return &Logger{out: out, store: store}
}

// OpenFile opens path for appending audit lines, creating it if needed.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return f, nil
}

// Record stamps and persists rec. Request metadata missing from rec is
// filled from ctx. A non-nil error means the record may not be durable.
func (l *Logger) Record(ctx context.Context, rec *models.AuditRecord) error {
	if l == nil {
		return errors.New("audit: logger not initialised")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Level == "" {
		rec.Level = models.LevelInfo
	}
	fillRequest(ctx, rec)

	if l.out != nil {
		if err := l.writeLine(rec); err != nil {
			recordFailuresTotal.WithLabelValues(rec.Event, "line").Inc()
			return fmt.Errorf("audit: writing line: %w", err)
		}
	}
	if l.store != nil {
		if err := l.store.WriteAuditRecord(ctx, rec); err != nil {
			recordFailuresTotal.WithLabelValues(rec.Event, "store").Inc()
			return fmt.Errorf("audit: persisting record: %w", err)
		}
	}

	outcome := "failure"
	if rec.Success {
		outcome = "success"
	}
	recordsTotal.WithLabelValues(rec.Event, outcome).Inc()
	return nil
}

// Query retrieves audit records from the durable store.
func (l *Logger) Query(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditRecord, error) {
	if l == nil || l.store == nil {
		return nil, ErrNoStore
	}
	return l.store.QueryAuditLog(ctx, filter)
}

func (l *Logger) writeLine(rec *models.AuditRecord) error {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	// Log() ignores the process log level. The timestamp is formatted here
	// so the global zerolog time format never truncates it.
	ev := zl.Log().
		Str("level", rec.Level).
		Str("timestamp", rec.Timestamp.Format(time.RFC3339Nano)).
		Str("event", rec.Event).
		Bool("success", rec.Success)
	ev = optStr(ev, "request_id", rec.RequestID)
	ev = optStr(ev, "principal_id", rec.PrincipalID)
	ev = optStr(ev, "principal_role", rec.PrincipalRole)
	if len(rec.RequiredRoles) > 0 {
		ev = ev.Strs("required_roles", rec.RequiredRoles)
	}
	ev = optStr(ev, "path", rec.Path)
	ev = optStr(ev, "method", rec.Method)
	ev = optStr(ev, "source_addr", rec.SourceAddr)
	ev = optStr(ev, "operation", rec.Operation)
	ev = optStr(ev, "folder", rec.Folder)
	ev = optStr(ev, "filename", rec.Filename)
	ev = optStr(ev, "detail", rec.Detail)
	ev = optStr(ev, "error", rec.Error)
	ev.Send()

	// One Write per record so concurrent lines never interleave.
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.out.Write(buf.Bytes())
	return err
}

func optStr(ev *zerolog.Event, key, val string) *zerolog.Event {
	if val == "" {
		return ev
	}
	return ev.Str(key, val)
}

func fillRequest(ctx context.Context, rec *models.AuditRecord) {
	info := models.RequestFromContext(ctx)
	if rec.RequestID == "" {
		rec.RequestID = info.ID
	}
	if rec.Path == "" {
		rec.Path = info.Path
	}
	if rec.Method == "" {
		rec.Method = info.Method
	}
	if rec.SourceAddr == "" {
		rec.SourceAddr = info.SourceAddr
	}
	if p := models.PrincipalFromContext(ctx); p != nil {
		if rec.PrincipalID == "" {
			rec.PrincipalID = p.ID
		}
		if rec.PrincipalRole == "" {
			rec.PrincipalRole = p.Role
		}
	}
}
