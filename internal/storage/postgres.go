package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/examvault/pkg/models"
)

// PostgresBackend is an AuditStore backed by PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend opens a pgxpool connection and returns a ready backend.
func NewPostgresBackend(ctx context.Context, connStr string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Close() {
	p.pool.Close()
}

// --- Audit ---

func (p *PostgresBackend) WriteAuditRecord(ctx context.Context, rec *models.AuditRecord) error {
	roles := rec.RequiredRoles
	if roles == nil {
		roles = []string{}
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO audit_records (occurred_at, event, level, success, request_id, principal_id, principal_role,
		                            required_roles, path, method, source_addr, operation, folder, filename, detail, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id`,
		rec.Timestamp, rec.Event, rec.Level, rec.Success, rec.RequestID, rec.PrincipalID, rec.PrincipalRole,
		roles, rec.Path, rec.Method, rec.SourceAddr, rec.Operation, rec.Folder, rec.Filename, rec.Detail, rec.Error,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

func (p *PostgresBackend) QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditRecord, error) {
	query, args := buildAuditQuery(filter)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// likeEscaper quotes LIKE wildcards so a path filter matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildAuditQuery(filter AuditFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, occurred_at, event, level, success, request_id, principal_id, principal_role,
	       required_roles, path, method, source_addr, operation, folder, filename, detail, error
	FROM audit_records WHERE 1=1`)
	args := []any{}
	n := 1
	if filter.Event != "" {
		fmt.Fprintf(&query, ` AND event = $%d`, n)
		args = append(args, filter.Event)
		n++
	}
	if filter.PrincipalID != "" {
		fmt.Fprintf(&query, ` AND principal_id = $%d`, n)
		args = append(args, filter.PrincipalID)
		n++
	}
	if filter.Path != "" {
		fmt.Fprintf(&query, ` AND path LIKE $%d ESCAPE '\'`, n)
		args = append(args, likeEscaper.Replace(filter.Path)+"%")
		n++
	}
	if filter.Since != nil {
		fmt.Fprintf(&query, ` AND occurred_at >= $%d`, n)
		args = append(args, *filter.Since)
		n++
	}
	query.WriteString(` ORDER BY occurred_at DESC, id DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&query, ` LIMIT $%d`, n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&query, ` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}
	return query.String(), args
}

func scanAuditRecord(row pgx.Row) (*models.AuditRecord, error) {
	var rec models.AuditRecord
	err := row.Scan(&rec.ID, &rec.Timestamp, &rec.Event, &rec.Level, &rec.Success, &rec.RequestID,
		&rec.PrincipalID, &rec.PrincipalRole, &rec.RequiredRoles, &rec.Path, &rec.Method, &rec.SourceAddr,
		&rec.Operation, &rec.Folder, &rec.Filename, &rec.Detail, &rec.Error)
	if err != nil {
		return nil, err
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return &rec, nil
}
