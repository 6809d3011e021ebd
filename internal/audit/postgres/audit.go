// Package postgres implements the audit trail on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/pkg/database"
)

// AuditRepository implements audit.Repository using PostgreSQL.
type AuditRepository struct {
	pool database.DBTX
}

// NewAuditRepository creates a new PostgreSQL-backed audit repository.
func NewAuditRepository(pool database.DBTX) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends one entry to the trail.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, session_id, admin_id, admin_email, action, resource, target_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.SessionID,
		e.AdminID,
		e.AdminEmail,
		e.Action,
		e.Resource,
		e.TargetID,
		[]byte(e.Detail),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter, newest first, with the total count.
func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]domain.AuditEntry, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   int = 1
	)

	if filter.AdminID != nil {
		conditions = append(conditions, fmt.Sprintf("admin_id = $%d", argIndex))
		args = append(args, *filter.AdminID)
		argIndex++
	}

	if filter.Resource != nil {
		conditions = append(conditions, fmt.Sprintf("resource = $%d", argIndex))
		args = append(args, *filter.Resource)
		argIndex++
	}

	if filter.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIndex))
		args = append(args, *filter.Action)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() yields the total alongside every row in one query.
	query := fmt.Sprintf(`
		SELECT id, session_id, admin_id, admin_email, action, resource, target_id, detail, created_at,
			   count(*) OVER() AS total_count
		FROM audit_log
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var (
		entries []domain.AuditEntry
		total   int
	)
	for rows.Next() {
		var (
			e      domain.AuditEntry
			detail []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&e.AdminID,
			&e.AdminEmail,
			&e.Action,
			&e.Resource,
			&e.TargetID,
			&detail,
			&e.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Detail = detail
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, total, nil
}
