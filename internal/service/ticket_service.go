package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itops/helpdesk-service/internal/domain"
	"github.com/itops/helpdesk-service/internal/events"
	"github.com/itops/helpdesk-service/internal/policy"
	"github.com/itops/helpdesk-service/internal/repository"
	"github.com/itops/helpdesk-service/pkg/apperrors"
)

// TicketService orchestrates the ticket lifecycle: transition validation,
// SLA recomputation on priority change, audit trail writes, assignment and
// merging.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	audit      *AuditLog
	sla        *policy.SLAPolicy
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Audit       *AuditLog
	SLA         *policy.SLAPolicy
	Dispatcher  events.Dispatcher

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	Status      domain.TicketStatus
	Sentiment   domain.TicketSentiment
}

// OptionalString distinguishes "field absent" from "set to nil".
type OptionalString struct {
	Set   bool
	Value *string
}

// TicketPatch is an explicit partial update: only non-nil (or Set) fields
// are applied. The diff-and-audit logic operates over these known fields.
type TicketPatch struct {
	Subject         *string
	Description     *string
	Category        *domain.TicketCategory
	Priority        *domain.TicketPriority
	Status          *domain.TicketStatus
	Sentiment       *domain.TicketSentiment
	AssignedTo      OptionalString
	ResolutionNotes *string
	InternalNotes   *string
}

// TicketListFilter describes listing filters at the service boundary.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Categories  []domain.TicketCategory
	AssignedTo  *string
	SearchTerm  *string
	OverdueOnly bool
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		audit:      deps.Audit,
		sla:        deps.SLA,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// Create validates input, derives the SLA deadline from the effective
// priority and records the first activity entry.
func (s *TicketService) Create(ctx context.Context, actor domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	if !domain.ValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	status := input.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	if !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	sentiment := input.Sentiment
	if sentiment == "" {
		sentiment = domain.SentimentNeutral
	}
	if !domain.ValidSentiment(sentiment) {
		return nil, apperrors.NewValidationError("unknown sentiment", map[string]any{"sentiment": sentiment})
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Priority:    priority,
		Status:      status,
		Sentiment:   sentiment,
		CreatedBy:   actor.ID,
		DueBy:       s.sla.DueBy(priority, s.now()),
	}
	// The row insert and its creation entry commit together; a ticket
	// without a trail (or a trail without a ticket) must never persist.
	tx, err := s.tickets.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.tickets.CreateTx(ctx, tx, ticket); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if _, err := s.audit.AppendTx(ctx, tx, ticket.ID, domain.ActivityCreated, map[string]any{
		"subject":    ticket.Subject,
		"created_by": actor.DisplayName,
	}, actor.ID); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Seq:      ticket.Seq,
			Subject:  ticket.Subject,
			Category: ticket.Category,
			Priority: ticket.Priority,
			DueBy:    ticket.DueBy,
		},
	})
	return ticket, nil
}

// userEditableOnly reports whether the patch touches only the fields a
// USER may change on their own ticket.
func userEditableOnly(patch TicketPatch) bool {
	return patch.Status == nil &&
		patch.Priority == nil &&
		!patch.AssignedTo.Set &&
		patch.ResolutionNotes == nil &&
		patch.InternalNotes == nil &&
		patch.Sentiment == nil
}

// Update applies only the fields present in patch, diffing against stored
// values to decide which activity entries to emit. Priority changes
// recompute the SLA deadline synchronously; resending an unchanged priority
// emits nothing.
func (s *TicketService) Update(ctx context.Context, actor domain.Identity, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.IsStaff(actor.Role) {
		if ticket.CreatedBy != actor.ID {
			return nil, apperrors.NewForbidden("cannot edit another user's ticket")
		}
		if !userEditableOnly(patch) {
			return nil, apperrors.NewForbidden("field not editable by submitter")
		}
		if ticket.IsTerminal() {
			return nil, apperrors.NewForbidden("ticket no longer editable")
		}
	}

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	prevStatus := ticket.Status
	prevPriority := ticket.Priority
	prevAssignee := ticket.AssignedTo
	prevResolution := ticket.ResolutionNotes

	if patch.Subject != nil {
		ticket.Subject = strings.TrimSpace(*patch.Subject)
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		ticket.Category = *patch.Category
	}
	if patch.Sentiment != nil {
		ticket.Sentiment = *patch.Sentiment
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
		// Due date reflects priority, not status; recompute on actual
		// change so a resent identical priority cannot drift the deadline.
		if ticket.Priority != prevPriority {
			ticket.DueBy = s.sla.DueBy(ticket.Priority, s.now())
		}
	}
	if patch.AssignedTo.Set {
		ticket.AssignedTo = patch.AssignedTo.Value
	}
	if patch.ResolutionNotes != nil {
		ticket.ResolutionNotes = strings.TrimSpace(*patch.ResolutionNotes)
	}
	if patch.InternalNotes != nil {
		ticket.InternalNotes = strings.TrimSpace(*patch.InternalNotes)
	}

	// Row update and the activity entries describing it commit together;
	// events go out only after the commit succeeds.
	tx, err := s.tickets.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.tickets.UpdateTx(ctx, tx, ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewStorageError(err)
	}

	var pending []events.Event
	if ticket.Status != prevStatus {
		if _, err := s.audit.AppendTx(ctx, tx, ticket.ID, domain.ActivityStatusChanged, map[string]any{
			"from": prevStatus,
			"to":   ticket.Status,
		}, actor.ID); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		pending = append(pending, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload:  events.TicketStatusChangedPayload{OldStatus: prevStatus, NewStatus: ticket.Status},
		})
	}
	if ticket.Priority != prevPriority {
		if _, err := s.audit.AppendTx(ctx, tx, ticket.ID, domain.ActivityPriorityChanged, map[string]any{
			"from": prevPriority,
			"to":   ticket.Priority,
		}, actor.ID); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		pending = append(pending, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: ticket.ID,
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: prevPriority,
				NewPriority: ticket.Priority,
				DueBy:       ticket.DueBy,
			},
		})
	}
	if patch.AssignedTo.Set && !equalAssignee(prevAssignee, ticket.AssignedTo) {
		if _, err := s.audit.AppendTx(ctx, tx, ticket.ID, domain.ActivityAssigned, map[string]any{
			"agent": ticket.AssignedTo,
		}, actor.ID); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		pending = append(pending, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Payload:  events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
		})
	}
	if patch.ResolutionNotes != nil && ticket.ResolutionNotes != "" && ticket.ResolutionNotes != prevResolution {
		if _, err := s.audit.AppendTx(ctx, tx, ticket.ID, domain.ActivityNoteAdded, map[string]any{
			"field": "resolution_notes",
		}, actor.ID); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	for _, event := range pending {
		s.publish(ctx, actor, event)
	}

	return s.redactForActor(ticket, actor), nil
}

// Delete removes a ticket and cascades to its comments and activity
// entries in one transaction. Staff only.
func (s *TicketService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if !policy.CanDeleteTicket(actor.Role) {
		return apperrors.NewForbidden("only staff may delete tickets")
	}
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.tickets.BeginTx(ctx)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.comments.DeleteByTicketTx(ctx, tx, ticket.ID); err != nil {
		return apperrors.NewStorageError(err)
	}
	if err := s.audit.entries.DeleteByTicketTx(ctx, tx, ticket.ID); err != nil {
		return apperrors.NewStorageError(err)
	}
	if err := s.tickets.DeleteTx(ctx, tx, ticket.ID); err != nil {
		return apperrors.NewStorageError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStorageError(err)
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
	})
	return nil
}

// Merge closes the source ticket as a duplicate of target. Both tickets
// receive a cross-referencing activity entry; the two row updates and two
// entries commit atomically. There is no unmerge.
func (s *TicketService) Merge(ctx context.Context, actor domain.Identity, sourceID, targetID string) (*domain.Ticket, error) {
	if !policy.CanMergeTickets(actor.Role) {
		return nil, apperrors.NewForbidden("only staff may merge tickets")
	}
	if sourceID == targetID {
		return nil, apperrors.NewValidationError("cannot merge a ticket into itself", nil)
	}
	source, err := s.getTicket(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.getTicket(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if source.IsMerged() {
		return nil, apperrors.NewConflict("source ticket already merged", map[string]any{"ticket_id": sourceID})
	}
	if source.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("source ticket already closed", map[string]any{"ticket_id": sourceID})
	}
	if target.IsMerged() {
		return nil, apperrors.NewConflict("target ticket already merged", map[string]any{"ticket_id": targetID})
	}

	tx, err := s.tickets.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	source.MergedInto = &target.ID
	source.Status = domain.TicketStatusClosed
	if err := s.tickets.UpdateTx(ctx, tx, source); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if _, err := s.audit.AppendTx(ctx, tx, source.ID, domain.ActivityMerged, map[string]any{
		"merged_into": target.ID,
	}, actor.ID); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if _, err := s.audit.AppendTx(ctx, tx, target.ID, domain.ActivityMerged, map[string]any{
		"merged_from": source.ID,
	}, actor.ID); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketMerged,
		TicketID: source.ID,
		Payload:  events.TicketMergedPayload{SourceID: source.ID, TargetID: target.ID},
	})
	return source, nil
}

// GetForActor fetches a ticket enforcing read access; internal notes are
// blanked for USER callers.
func (s *TicketService) GetForActor(ctx context.Context, actor domain.Identity, id string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadTicket(actor.Role, ticket, actor.ID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.redactForActor(ticket, actor), nil
}

// GetBySeqForActor fetches a ticket by its sequential number, enforcing the
// same read access as GetForActor.
func (s *TicketService) GetBySeqForActor(ctx context.Context, actor domain.Identity, seq int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetBySeq(ctx, seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"seq": seq})
		}
		return nil, apperrors.NewStorageError(err)
	}
	if !policy.CanReadTicket(actor.Role, ticket, actor.ID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.redactForActor(ticket, actor), nil
}

// ListForActor lists tickets visible to the caller. USER callers only ever
// see their own submissions.
func (s *TicketService) ListForActor(ctx context.Context, actor domain.Identity, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Categories: filter.Categories,
		AssignedTo: filter.AssignedTo,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.OverdueOnly {
		now := s.now()
		repoFilter.DueBefore = &now
	}
	if !policy.IsStaff(actor.Role) {
		creator := actor.ID
		repoFilter.CreatedBy = &creator
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if !policy.CanViewInternal(actor.Role) {
		for i := range tickets {
			tickets[i].InternalNotes = ""
		}
	}
	return tickets, nil
}

// Activity returns the audit trail for a ticket the caller may read.
func (s *TicketService) Activity(ctx context.Context, actor domain.Identity, id string) ([]domain.ActivityEntry, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadTicket(actor.Role, ticket, actor.ID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.audit.List(ctx, ticket.ID)
}

// IsOverdue derives overdue state; never stored.
func (s *TicketService) IsOverdue(ticket *domain.Ticket) bool {
	return policy.Overdue(ticket, s.now())
}

func (s *TicketService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewStorageError(err)
	}
	return ticket, nil
}

func (s *TicketService) redactForActor(ticket *domain.Ticket, actor domain.Identity) *domain.Ticket {
	if policy.CanViewInternal(actor.Role) {
		return ticket
	}
	redacted := *ticket
	redacted.InternalNotes = ""
	return &redacted
}

func validatePatch(patch TicketPatch) error {
	if patch.Subject != nil && strings.TrimSpace(*patch.Subject) == "" {
		return apperrors.NewValidationError("subject cannot be empty", nil)
	}
	if patch.Category != nil && !domain.ValidCategory(*patch.Category) {
		return apperrors.NewValidationError("unknown category", map[string]any{"category": *patch.Category})
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
	}
	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
	}
	if patch.Sentiment != nil && !domain.ValidSentiment(*patch.Sentiment) {
		return apperrors.NewValidationError("unknown sentiment", map[string]any{"sentiment": *patch.Sentiment})
	}
	return nil
}

func equalAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *TicketService) publish(ctx context.Context, actor domain.Identity, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	event.Actor = events.Actor{ID: actor.ID, Name: actor.DisplayName, Role: actor.Role}
	_ = s.dispatcher.Publish(ctx, event)
}
