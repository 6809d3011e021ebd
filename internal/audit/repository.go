// Package audit records who did what in the back office and makes the trail
// browsable.
package audit

import (
	"context"

	"github.com/utafrali/adminconsole/internal/domain"
)

// Filter defines filter criteria for listing audit entries.
type Filter struct {
	AdminID  *string
	Resource *string
	Action   *string
	Page     int
	PerPage  int
}

// Repository defines the interface for audit trail persistence.
type Repository interface {
	// Insert appends one entry to the trail.
	Insert(ctx context.Context, entry *domain.AuditEntry) error

	// List returns entries matching the filter, newest first, along with the
	// total count.
	List(ctx context.Context, filter Filter) ([]domain.AuditEntry, int, error)
}
