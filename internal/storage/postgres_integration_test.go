//go:build integration

package storage

import (
	"context"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/org/examvault/pkg/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Run with: go test -tags=integration -timeout 120s ./internal/storage/...
func TestPostgresAuditRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("examvault"),
		postgres.WithUsername("examvault"),
		postgres.WithPassword("examvault"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	migrationsDir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("resolving migrations dir: %v", err)
	}
	if err := RunMigrations(connStr, migrationsDir); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	// A second run is a no-op.
	if err := RunMigrations(connStr, migrationsDir); err != nil {
		t.Fatalf("re-running migrations: %v", err)
	}

	store, err := NewPostgresBackend(ctx, connStr)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer store.Close()

	granted := &models.AuditRecord{
		Timestamp:     time.Now().UTC().Add(-time.Minute),
		Event:         models.EventAccessGranted,
		Level:         models.LevelInfo,
		Success:       true,
		PrincipalID:   "1",
		PrincipalRole: models.RoleExamAdmin,
		RequiredRoles: []string{models.RoleAdmin, models.RoleExamAdmin},
		Path:          "/v1/files/reports",
		Method:        "POST",
	}
	failed := &models.AuditRecord{
		Timestamp: time.Now().UTC(),
		Event:     models.EventObjectDelete,
		Level:     models.LevelError,
		Operation: "delete",
		Folder:    "reports",
		Filename:  "1-x.pdf",
		Error:     "googleapi: 500",
	}
	for _, rec := range []*models.AuditRecord{granted, failed} {
		if err := store.WriteAuditRecord(ctx, rec); err != nil {
			t.Fatalf("writing audit record: %v", err)
		}
		if rec.ID == 0 {
			t.Error("expected id to be assigned")
		}
	}

	all, err := store.QueryAuditLog(ctx, AuditFilter{Limit: 10})
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if all[0].Event != models.EventObjectDelete {
		t.Errorf("expected newest first, got %s", all[0].Event)
	}
	if got := all[1].RequiredRoles; len(got) != 2 {
		t.Errorf("expected required roles round trip, got %v", got)
	}

	byPrincipal, err := store.QueryAuditLog(ctx, AuditFilter{PrincipalID: "1"})
	if err != nil {
		t.Fatalf("querying by principal: %v", err)
	}
	if len(byPrincipal) != 1 || !byPrincipal[0].Success {
		t.Errorf("expected the granted record only, got %+v", byPrincipal)
	}

	// The table is append-only.
	if _, err := store.pool.Exec(ctx, `DELETE FROM audit_records`); err == nil {
		t.Error("expected delete to be rejected")
	}
}
