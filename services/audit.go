package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
)

// AuditLogger appends immutable event records next to primary mutations.
// Writes are best-effort: a failed audit append never fails or rolls back the
// primary mutation, but every skip is reported on the operational log so it
// is visible rather than silently dropped.
type AuditLogger struct {
	PG *sql.DB
}

func NewAuditLogger(pg *sql.DB) *AuditLogger {
	return &AuditLogger{PG: pg}
}

// TicketEvent appends a ticket audit record.
func (l *AuditLogger) TicketEvent(ctx context.Context, ticketID, actorID, eventType, metadata string) {
	l.append(ctx, `
		INSERT INTO ticket_events (id, ticket_id, actor_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, "ticket", ticketID, actorID, eventType, metadata)
}

// KanbanEvent appends a kanban task audit record.
func (l *AuditLogger) KanbanEvent(ctx context.Context, taskID, actorID, eventType, metadata string) {
	l.append(ctx, `
		INSERT INTO kanban_events (id, task_id, actor_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, "kanban", taskID, actorID, eventType, metadata)
}

// AssetEvent appends a vault activity record. The description doubles as the
// metadata column being empty for asset events in practice.
func (l *AuditLogger) AssetEvent(ctx context.Context, companyID, actorID, eventType, description string) {
	if actorID == "" {
		log.Printf("audit: skipping %s asset event for company %s: no resolved actor", eventType, companyID)
		return
	}
	_, err := l.PG.ExecContext(ctx, `
		INSERT INTO asset_events (id, company_id, actor_id, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New().String(), companyID, actorID, eventType, description, time.Now())
	if err != nil {
		log.Printf("audit: failed to append %s asset event for company %s: %v", eventType, companyID, err)
	}
}

func (l *AuditLogger) append(ctx context.Context, query, kind, parentID, actorID, eventType, metadata string) {
	if actorID == "" {
		log.Printf("audit: skipping %s event %q on %s: no resolved actor", kind, eventType, parentID)
		return
	}
	_, err := l.PG.ExecContext(ctx, query, uuid.New().String(), parentID, actorID, eventType, nullable(metadata), time.Now())
	if err != nil {
		log.Printf("audit: failed to append %s event %q on %s: %v", kind, eventType, parentID, err)
	}
}
