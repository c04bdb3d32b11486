/**
 * @description
 * RabbitMQ-backed audit trail for lifecycle transitions. Events go to the
 * compte_events topic exchange, routed by the destination status, so
 * downstream consumers can subscribe to e.g. compte.archive only.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/lynx20042010/apiFinance/internal/domain"
	"github.com/lynx20042010/apiFinance/pkg/rabbitmq"
)

const (
	auditExchange       = "compte_events"
	auditPublishTimeout = 5 * time.Second
)

// EventAuditLogger publishes lifecycle events to RabbitMQ. Publish failures
// are logged and swallowed: the transition has already been persisted and the
// audit trail is best effort.
type EventAuditLogger struct {
	publisher rabbitmq.Publisher
	logger    *slog.Logger
}

// NewEventAuditLogger creates a new audit logger over the given publisher.
func NewEventAuditLogger(publisher rabbitmq.Publisher, logger *slog.Logger) *EventAuditLogger {
	return &EventAuditLogger{publisher: publisher, logger: logger}
}

// Record publishes one lifecycle event.
func (l *EventAuditLogger) Record(ctx context.Context, event domain.LifecycleEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditPublishTimeout)
	defer cancel()

	if err := l.publisher.Publish(pubCtx, auditExchange, event.RoutingKey(), event); err != nil {
		l.logger.Error("failed to publish lifecycle event",
			"compte_id", event.CompteID, "routing_key", event.RoutingKey(), "error", err)
	}
}
