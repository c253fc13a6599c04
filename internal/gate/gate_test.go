package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/org/examvault/internal/audit"
	"github.com/org/examvault/internal/audit/audittest"
	"github.com/org/examvault/internal/fault"
	"github.com/org/examvault/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T) (*Gate, *audittest.Store) {
	t.Helper()
	store := audittest.New()
	return New(audit.NewLogger(&bytes.Buffer{}, store)), store
}

func requestCtx() context.Context {
	return models.ContextWithRequest(context.Background(), models.RequestInfo{
		ID: "req-42", Path: "/v1/files/reports", Method: http.MethodPost, SourceAddr: "192.0.2.10:5123",
	})
}

func TestExamAdminGranted(t *testing.T) {
	g, store := newTestGate(t)

	d, err := g.Authorize(requestCtx(), &models.Principal{ID: "1", Role: "exam_admin"}, models.NewRoleSet("exam_admin", "admin"))
	require.NoError(t, err)
	assert.Equal(t, Granted, d)

	recs := store.Records()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, models.EventAccessGranted, rec.Event)
	assert.Equal(t, models.LevelInfo, rec.Level)
	assert.True(t, rec.Success)
	assert.Equal(t, "1", rec.PrincipalID)
	assert.Equal(t, "exam_admin", rec.PrincipalRole)
	assert.Equal(t, "/v1/files/reports", rec.Path)
	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "192.0.2.10:5123", rec.SourceAddr)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestStudentForbiddenByDefaultSet(t *testing.T) {
	g, store := newTestGate(t)

	d, err := g.Authorize(requestCtx(), &models.Principal{ID: "2", Role: "student"}, models.NewRoleSet())
	require.NoError(t, err)
	assert.Equal(t, Forbidden, d)

	rec := store.Last()
	require.NotNil(t, rec)
	assert.Equal(t, models.EventAccessForbidden, rec.Event)
	assert.Equal(t, models.LevelWarn, rec.Level)
	assert.False(t, rec.Success)
	assert.Equal(t, "2", rec.PrincipalID)
	assert.Equal(t, "student", rec.PrincipalRole)
	assert.ElementsMatch(t, models.AdminRoles(), rec.RequiredRoles)
}

func TestMissingPrincipalUnauthenticated(t *testing.T) {
	cases := map[string]*models.Principal{
		"nil":       nil,
		"no id":     {Role: "admin"},
		"no role":   {ID: "3"},
		"all blank": {ID: " ", Role: " "},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			g, store := newTestGate(t)
			d, err := g.Authorize(requestCtx(), p, models.NewRoleSet("admin"))
			require.NoError(t, err)
			assert.Equal(t, Unauthenticated, d)

			rec := store.Last()
			require.NotNil(t, rec)
			assert.Equal(t, models.EventAccessUnauthenticated, rec.Event)
			assert.Equal(t, models.LevelWarn, rec.Level)
			assert.Equal(t, "/v1/files/reports", rec.Path)
		})
	}
}

func TestRoleMembershipDeterminesDecision(t *testing.T) {
	vocabulary := append(models.AdminRoles(), models.RoleStudent, models.RoleTeacher, "guest")
	sets := []models.RoleSet{
		models.NewRoleSet(),
		models.NewRoleSet("exam_admin", "admin"),
		models.NewRoleSet("student", "teacher"),
		models.NewRoleSet("master_admin"),
	}
	g, store := newTestGate(t)

	for _, set := range sets {
		for _, role := range vocabulary {
			for _, id := range []string{"1", "user-99", "x"} {
				store.Reset()
				d, err := g.Authorize(context.Background(), &models.Principal{ID: id, Role: role}, set)
				require.NoError(t, err)

				want := Forbidden
				if set.Has(role) {
					want = Granted
				}
				assert.Equal(t, want, d, "role=%s set=%s", role, set)

				recs := store.Records()
				require.Len(t, recs, 1, "one audit record per call")
				assert.Equal(t, d == Granted, recs[0].Success)
			}
		}
	}
}

func TestAuditFailureFailsClosed(t *testing.T) {
	g, store := newTestGate(t)
	store.SetFail(true)

	d, err := g.Authorize(requestCtx(), &models.Principal{ID: "1", Role: "admin"}, models.NewRoleSet("admin"))
	require.Error(t, err)
	assert.NotEqual(t, Granted, d)
	assert.Equal(t, fault.Internal, fault.KindOf(err))
}

type panicRecorder struct {
	calls int
	recs  []*models.AuditRecord
}

func (p *panicRecorder) Record(_ context.Context, rec *models.AuditRecord) error {
	p.calls++
	if p.calls == 1 {
		panic("sink exploded")
	}
	p.recs = append(p.recs, rec)
	return nil
}

func TestPanicFailsClosedAndIsAudited(t *testing.T) {
	rec := &panicRecorder{}
	g := New(rec)

	d, err := g.Authorize(requestCtx(), &models.Principal{ID: "1", Role: "admin"}, models.NewRoleSet("admin"))
	require.Error(t, err)
	assert.Equal(t, Undecided, d)
	assert.True(t, fault.Is(err, fault.Internal))

	require.Len(t, rec.recs, 1)
	assert.Equal(t, models.EventAccessError, rec.recs[0].Event)
	assert.Equal(t, models.LevelError, rec.recs[0].Level)
	assert.Contains(t, rec.recs[0].Error, "sink exploded")
}

func TestNilRecorderFailsClosed(t *testing.T) {
	d, err := New(nil).Authorize(context.Background(), &models.Principal{ID: "1", Role: "admin"}, models.NewRoleSet())
	require.Error(t, err)
	assert.Equal(t, Undecided, d)
}

func TestRequireMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name      string
		principal *models.Principal
		fail      bool
		status    int
		code      string
	}{
		{"granted", &models.Principal{ID: "1", Role: "exam_admin"}, false, http.StatusNoContent, ""},
		{"forbidden", &models.Principal{ID: "2", Role: "student"}, false, http.StatusForbidden, "FORBIDDEN"},
		{"unauthenticated", nil, false, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{"audit down", &models.Principal{ID: "1", Role: "admin"}, true, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, store := newTestGate(t)
			store.SetFail(tc.fail)
			h := g.Require("exam_admin", "admin")(ok)

			req := httptest.NewRequest(http.MethodGet, "/v1/files/reports/a.pdf", nil)
			if tc.principal != nil {
				req = req.WithContext(models.ContextWithPrincipal(req.Context(), tc.principal))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			if tc.code == "" {
				return
			}
			var body fault.Response
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.status, body.Status)
			if tc.status == http.StatusForbidden {
				assert.Contains(t, body.Details, "admin, exam_admin")
			}
		})
	}
}
