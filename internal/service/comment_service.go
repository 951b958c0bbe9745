package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itops/helpdesk-service/internal/domain"
	"github.com/itops/helpdesk-service/internal/events"
	"github.com/itops/helpdesk-service/internal/policy"
	"github.com/itops/helpdesk-service/internal/repository"
	"github.com/itops/helpdesk-service/pkg/apperrors"
)

// CommentService holds ticket comments and enforces public/internal
// visibility per caller role at query time.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(comments repository.CommentRepository, tickets repository.TicketRepository, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{comments: comments, tickets: tickets, dispatcher: dispatcher}
}

// Add appends a comment to a ticket. A USER can never author an internal
// note: the flag is silently forced to false rather than rejected.
func (s *CommentService) Add(ctx context.Context, actor domain.Identity, ticketID, content string, isInternal bool) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStorageError(err)
	}
	if !policy.CanReadTicket(actor.Role, ticket, actor.ID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !policy.CanViewInternal(actor.Role) {
		isInternal = false
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorName: actor.DisplayName,
		Content:    content,
		IsInternal: isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:       uuid.NewString(),
			Type:     events.EventTicketCommented,
			TicketID: ticket.ID,
			Actor:    events.Actor{ID: actor.ID, Name: actor.DisplayName, Role: actor.Role},
			Payload:  events.TicketCommentedPayload{CommentID: comment.ID, IsInternal: comment.IsInternal},
		})
	}
	return comment, nil
}

// List returns a ticket's comments. Internal comments are excluded for
// USER callers by the query itself, not by post-filtering a full read.
func (s *CommentService) List(ctx context.Context, actor domain.Identity, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStorageError(err)
	}
	if !policy.CanReadTicket(actor.Role, ticket, actor.ID) {
		return nil, apperrors.NewForbidden("access denied")
	}

	var comments []domain.Comment
	if policy.CanViewInternal(actor.Role) {
		comments, err = s.comments.ListByTicket(ctx, ticket.ID)
	} else {
		comments, err = s.comments.ListPublicByTicket(ctx, ticket.ID)
	}
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return comments, nil
}

// Delete removes a comment. Only its own author may delete it; ownership
// is checked by identity, not role.
func (s *CommentService) Delete(ctx context.Context, actor domain.Identity, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", map[string]any{"comment_id": commentID})
		}
		return apperrors.NewStorageError(err)
	}
	if comment.AuthorID != actor.ID {
		return apperrors.NewForbidden("only the author may delete a comment")
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", map[string]any{"comment_id": commentID})
		}
		return apperrors.NewStorageError(err)
	}
	return nil
}
