package storage

import (
	"context"
	"time"

	"github.com/org/examvault/pkg/models"
)

// AuditStore is the durable, append-only persistence for audit records.
type AuditStore interface {
	WriteAuditRecord(ctx context.Context, rec *models.AuditRecord) error
	QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditRecord, error)

	// Lifecycle
	Close()
}

// AuditFilter specifies query parameters for audit log retrieval.
type AuditFilter struct {
	Event       string
	PrincipalID string
	Path        string
	Since       *time.Time
	Limit       int
	Offset      int
}
