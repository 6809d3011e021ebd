// Package event publishes the console's domain events to Kafka so the rest
// of the platform can react to back-office activity without polling.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/adminconsole/pkg/kafka"
	"github.com/utafrali/adminconsole/pkg/logger"
)

// Topics the admin console publishes to.
const (
	TopicSessions = "backoffice.admin.sessions"
	TopicActions  = "backoffice.admin.actions"
)

// Event types.
const (
	TypeSessionStarted = "admin.session.started"
	TypeSessionEnded   = "admin.session.ended"
	TypeActionRecorded = "admin.action.recorded"
)

const source = "admin-console"

// SessionEvent is the payload for session lifecycle events.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	AdminID   string    `json:"admin_id"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// ActionEvent is the payload for recorded back-office actions.
type ActionEvent struct {
	SessionID string    `json:"session_id"`
	AdminID   string    `json:"admin_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	TargetID  string    `json:"target_id,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits console events. Publishing is best-effort: failures are
// logged and swallowed so a broker outage never blocks an admin's work.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewPublisher(producer *kafka.Producer, log *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: log}
}

// PublishSessionStarted announces a successful login.
func (p *Publisher) PublishSessionStarted(ctx context.Context, sessionID, adminID string) {
	p.publish(ctx, TopicSessions, TypeSessionStarted, sessionID, "session", adminID, SessionEvent{
		SessionID: sessionID,
		AdminID:   adminID,
		At:        time.Now().UTC(),
	})
}

// PublishSessionEnded announces a logout. reason is "logout" for an explicit
// logout and "auth_failure" when the backend revoked the session.
func (p *Publisher) PublishSessionEnded(ctx context.Context, sessionID, adminID, reason string) {
	p.publish(ctx, TopicSessions, TypeSessionEnded, sessionID, "session", adminID, SessionEvent{
		SessionID: sessionID,
		AdminID:   adminID,
		Reason:    reason,
		At:        time.Now().UTC(),
	})
}

// PublishActionRecorded announces a mutating back-office action.
func (p *Publisher) PublishActionRecorded(ctx context.Context, sessionID, adminID, action, resource, targetID string) {
	p.publish(ctx, TopicActions, TypeActionRecorded, targetID, resource, adminID, ActionEvent{
		SessionID: sessionID,
		AdminID:   adminID,
		Action:    action,
		Resource:  resource,
		TargetID:  targetID,
		At:        time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType, adminID string, payload any) {
	if p == nil || p.producer == nil {
		return
	}

	evt, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	evt = evt.WithActor(adminID)
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt = evt.WithCorrelationID(cid)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
