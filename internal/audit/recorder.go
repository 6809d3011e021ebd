package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/adminconsole/internal/domain"
	"github.com/utafrali/adminconsole/internal/event"
)

// Recorder writes audit entries and announces them on the event bus. Both
// paths are best effort: an audit outage degrades the trail, never the
// admin's action.
type Recorder struct {
	repo   Repository
	events *event.Publisher
	logger *slog.Logger

	nowFunc func() time.Time
	idFunc  func() string
}

func NewRecorder(repo Repository, events *event.Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		events:  events,
		logger:  logger,
		nowFunc: time.Now,
		idFunc:  func() string { return uuid.NewString() },
	}
}

// Record captures one back-office action. detail carries the action-specific
// payload (new status, changed fields) and may be nil.
func (r *Recorder) Record(ctx context.Context, sessionID string, admin domain.Admin, action, resource, targetID string, detail any) {
	if r == nil {
		return
	}

	entry := &domain.AuditEntry{
		ID:         r.idFunc(),
		SessionID:  sessionID,
		AdminID:    admin.ID,
		AdminEmail: admin.Email,
		Action:     action,
		Resource:   resource,
		TargetID:   targetID,
		CreatedAt:  r.nowFunc().UTC(),
	}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to marshal audit detail",
				slog.String("action", action),
				slog.String("error", err.Error()))
		} else {
			entry.Detail = raw
		}
	}

	if err := r.repo.Insert(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "failed to write audit entry",
			slog.String("action", action),
			slog.String("resource", resource),
			slog.String("error", err.Error()))
	}

	r.events.PublishActionRecorded(ctx, sessionID, admin.ID, action, resource, targetID)
}

// List exposes the trail for the console's audit browser.
func (r *Recorder) List(ctx context.Context, filter Filter) ([]domain.AuditEntry, int, error) {
	return r.repo.List(ctx, filter)
}
