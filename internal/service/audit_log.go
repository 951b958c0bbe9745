package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/itops/helpdesk-service/internal/domain"
	"github.com/itops/helpdesk-service/internal/repository"
	"github.com/itops/helpdesk-service/pkg/apperrors"
)

// AuditLog appends immutable activity records for tickets. Write-mostly;
// entries are never updated and are listed ascending by creation time.
type AuditLog struct {
	entries repository.ActivityRepository
}

// NewAuditLog constructs the log over its storage dependency.
func NewAuditLog(entries repository.ActivityRepository) *AuditLog {
	return &AuditLog{entries: entries}
}

// AppendTx records one activity entry inside the transaction that mutates
// the ticket it describes. There is no standalone append: an entry outside
// its ticket's transaction could survive a mutation that rolled back.
func (l *AuditLog) AppendTx(ctx context.Context, tx pgx.Tx, ticketID string, kind domain.ActivityKind, metadata map[string]any, actorID string) (*domain.ActivityEntry, error) {
	entry := &domain.ActivityEntry{
		TicketID: ticketID,
		Kind:     kind,
		Metadata: metadata,
		ActorID:  actorID,
	}
	if err := l.entries.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the full provenance trail for a ticket, oldest first. No
// pagination: the trail is unbounded but read in one pass at this scale.
func (l *AuditLog) List(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	entries, err := l.entries.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entries, nil
}
