package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/adminconsole/internal/audit"
	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/pkg/database"
)

func newTestRepo(t *testing.T) (*AuditRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewAuditRepository(mock)
	return repo, mock
}

func sampleEntry() *domain.AuditEntry {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.AuditEntry{
		ID:         "6f1b2a3c-0000-4000-8000-000000000001",
		SessionID:  "sid-001",
		AdminID:    "adm-001",
		AdminEmail: "asha@example.com",
		Action:     domain.AuditActionStatus,
		Resource:   "orders",
		TargetID:   "ord-001",
		Detail:     json.RawMessage(`{"status":"shipped"}`),
		CreatedAt:  now,
	}
}

func TestAuditRepository_Insert_Success(t *testing.T) {
	repo, mock := newTestRepo(t)

	e := sampleEntry()

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs(
			e.ID, e.SessionID, e.AdminID, e.AdminEmail,
			e.Action, e.Resource, e.TargetID,
			pgxmock.AnyArg(), // detail JSON
			e.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Insert(context.Background(), e)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Insert_Error(t *testing.T) {
	repo, mock := newTestRepo(t)

	e := sampleEntry()

	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs(
			e.ID, e.SessionID, e.AdminID, e.AdminEmail,
			e.Action, e.Resource, e.TargetID,
			pgxmock.AnyArg(),
			e.CreatedAt,
		).
		WillReturnError(errors.New("connection refused"))

	err := repo.Insert(context.Background(), e)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert audit entry")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func auditRows(entries ...*domain.AuditEntry) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "session_id", "admin_id", "admin_email", "action",
		"resource", "target_id", "detail", "created_at", "total_count",
	})
	for _, e := range entries {
		rows.AddRow(
			e.ID, e.SessionID, e.AdminID, e.AdminEmail, e.Action,
			e.Resource, e.TargetID, []byte(e.Detail), e.CreatedAt, len(entries),
		)
	}
	return rows
}

func TestAuditRepository_List_NoFilter(t *testing.T) {
	repo, mock := newTestRepo(t)

	e := sampleEntry()

	mock.ExpectQuery("SELECT (.+) FROM audit_log").
		WithArgs(20, 0).
		WillReturnRows(auditRows(e))

	entries, total, err := repo.List(context.Background(), audit.Filter{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, e.AdminID, entries[0].AdminID)
	assert.JSONEq(t, `{"status":"shipped"}`, string(entries[0].Detail))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_List_FilteredAndPaged(t *testing.T) {
	repo, mock := newTestRepo(t)

	adminID := "adm-001"
	resource := "orders"

	mock.ExpectQuery("SELECT (.+) FROM audit_log WHERE admin_id = \\$1 AND resource = \\$2").
		WithArgs(adminID, resource, 10, 20).
		WillReturnRows(auditRows(sampleEntry()))

	entries, total, err := repo.List(context.Background(), audit.Filter{
		AdminID:  &adminID,
		Resource: &resource,
		Page:     3,
		PerPage:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, entries, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_List_DefaultsPagination(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM audit_log").
		WithArgs(20, 0).
		WillReturnRows(auditRows())

	entries, total, err := repo.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, entries)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_List_QueryError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM audit_log").
		WithArgs(20, 0).
		WillReturnError(errors.New("connection refused"))

	_, _, err := repo.List(context.Background(), audit.Filter{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "list audit entries")

	assert.NoError(t, mock.ExpectationsWereMet())
}
