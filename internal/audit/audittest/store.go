// Package audittest provides an in-memory audit store for tests.
package audittest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/org/examvault/internal/storage"
	"github.com/org/examvault/pkg/models"
)

// ErrUnavailable is returned by a Store whose Fail flag is set.
var ErrUnavailable = errors.New("audit store unavailable")

// Store is a storage.AuditStore that keeps records in memory.
type Store struct {
	mu      sync.Mutex
	records []*models.AuditRecord
	fail    bool
}

var _ storage.AuditStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// SetFail makes subsequent writes fail with ErrUnavailable.
func (s *Store) SetFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *Store) WriteAuditRecord(ctx context.Context, rec *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ErrUnavailable
	}
	cp := *rec
	cp.ID = int64(len(s.records) + 1)
	rec.ID = cp.ID
	s.records = append(s.records, &cp)
	return nil
}

func (s *Store) QueryAuditLog(ctx context.Context, f storage.AuditFilter) ([]*models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if f.Event != "" && r.Event != f.Event {
			continue
		}
		if f.PrincipalID != "" && r.PrincipalID != f.PrincipalID {
			continue
		}
		if f.Path != "" && !strings.HasPrefix(r.Path, f.Path) {
			continue
		}
		if f.Since != nil && r.Timestamp.Before(*f.Since) {
			continue
		}
		out = append(out, r)
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) Close() {}

// Records returns a copy of every record written, oldest first.
func (s *Store) Records() []models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditRecord, len(s.records))
	for i, r := range s.records {
		out[i] = *r
	}
	return out
}

// Last returns the most recent record, or nil.
func (s *Store) Last() *models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return nil
	}
	cp := *s.records[len(s.records)-1]
	return &cp
}

// Reset discards every record.
func (s *Store) Reset() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}
