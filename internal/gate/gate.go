// Package gate decides whether an authenticated principal may proceed past a
// protected operation. Every decision is audited.
package gate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/org/examvault/internal/fault"
	"github.com/org/examvault/pkg/models"
	"github.com/rs/zerolog/log"
)

// Decision is the terminal outcome of one Authorize call.
type Decision int

const (
	// Undecided accompanies an error; it is never a grant.
	Undecided Decision = iota
	Unauthenticated
	Forbidden
	Granted
)

func (d Decision) String() string {
	switch d {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Granted:
		return "granted"
	default:
		return "undecided"
	}
}

// Recorder persists audit records.
type Recorder interface {
	Record(ctx context.Context, rec *models.AuditRecord) error
}

// Gate evaluates principals against role sets. It holds no per-request state.
type Gate struct {
	audit Recorder
}

// New creates a Gate that audits through rec.
func New(rec Recorder) *Gate {
	return &Gate{audit: rec}
}

// Authorize decides whether p may proceed given the required roles. Request
// path, method and source address are taken from ctx. A non-nil error is
// always a fault.Internal and the decision is Undecided.
func (g *Gate) Authorize(ctx context.Context, p *models.Principal, required models.RoleSet) (d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = Undecided, g.fail(ctx, p, required, fmt.Errorf("panic: %v", r))
		}
	}()

	rec := &models.AuditRecord{
		Operation:     "authorize",
		RequiredRoles: required.Slice(),
	}
	if p != nil {
		rec.PrincipalID = p.ID
		rec.PrincipalRole = p.Role
	}

	switch {
	case !p.Complete():
		d = Unauthenticated
		rec.Event = models.EventAccessUnauthenticated
		rec.Level = models.LevelWarn
		rec.Detail = "authentication required"
	case !required.Has(p.Role):
		d = Forbidden
		rec.Event = models.EventAccessForbidden
		rec.Level = models.LevelWarn
		rec.Detail = "role not permitted"
	default:
		d = Granted
		rec.Event = models.EventAccessGranted
		rec.Level = models.LevelInfo
		rec.Success = true
	}

	if g == nil || g.audit == nil {
		return Undecided, g.fail(ctx, p, required, fmt.Errorf("audit sink not configured"))
	}
	if err := g.audit.Record(ctx, rec); err != nil {
		return Undecided, g.fail(ctx, p, required, err)
	}
	return d, nil
}

// fail logs the fault and attempts an error-level audit record. The returned
// error is always Internal.
func (g *Gate) fail(ctx context.Context, p *models.Principal, required models.RoleSet, cause error) error {
	info := models.RequestFromContext(ctx)
	log.Error().Err(cause).
		Str("path", info.Path).
		Str("method", info.Method).
		Str("request_id", info.ID).
		Msg("authorization fault")

	if g != nil && g.audit != nil {
		rec := &models.AuditRecord{
			Event:         models.EventAccessError,
			Level:         models.LevelError,
			Operation:     "authorize",
			RequiredRoles: required.Slice(),
			Error:         cause.Error(),
		}
		if p != nil {
			rec.PrincipalID = p.ID
			rec.PrincipalRole = p.Role
		}
		if err := g.audit.Record(ctx, rec); err != nil {
			log.Error().Err(err).Msg("recording authorization fault")
		}
	}
	return fault.Wrap(fault.Internal, "authorize", "internal server error", cause)
}

// Require returns middleware that lets a request through only when the
// principal in its context holds one of roles. No roles means the admin set.
func (g *Gate) Require(roles ...string) func(http.Handler) http.Handler {
	set := models.NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := g.Authorize(r.Context(), models.PrincipalFromContext(r.Context()), set)
			if err != nil {
				fault.WriteHTTP(w, err)
				return
			}
			switch d {
			case Granted:
				next.ServeHTTP(w, r)
			case Unauthenticated:
				fault.WriteHTTP(w, fault.New(fault.Unauthenticated, "authorize", "authentication required"))
			default:
				fault.WriteHTTP(w, fault.Wrap(fault.Forbidden, "authorize", "insufficient permissions",
					fmt.Errorf("requires one of: %s", set)))
			}
		})
	}
}
