package models

import "time"

// Audit event names.
const (
	EventAccessGranted         = "access.granted"
	EventAccessForbidden       = "access.forbidden"
	EventAccessUnauthenticated = "access.unauthenticated"
	EventAccessError           = "access.error"

	EventObjectUpload    = "object.upload"
	EventObjectURL       = "object.public_url"
	EventObjectDelete    = "object.delete"
	EventObjectStream    = "object.stream"
	EventObjectSignedURL = "object.signed_url"
)

// Audit levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// AuditRecord describes one access decision or storage operation outcome.
// Records are append-only; nothing in this module mutates one after Record.
type AuditRecord struct {
	ID            int64     `json:"id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Event         string    `json:"event"`
	Level         string    `json:"level"`
	Success       bool      `json:"success"`
	RequestID     string    `json:"request_id,omitempty"`
	PrincipalID   string    `json:"principal_id,omitempty"`
	PrincipalRole string    `json:"principal_role,omitempty"`
	RequiredRoles []string  `json:"required_roles,omitempty"`
	Path          string    `json:"path,omitempty"`
	Method        string    `json:"method,omitempty"`
	SourceAddr    string    `json:"source_addr,omitempty"`
	Operation     string    `json:"operation,omitempty"`
	Folder        string    `json:"folder,omitempty"`
	Filename      string    `json:"filename,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Error         string    `json:"error,omitempty"`
}
