package dto

import (
	"encoding/json"
	"time"

	"github.com/itops/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                 `json:"subject" validate:"required"`
	Description string                 `json:"description"`
	Category    domain.TicketCategory  `json:"category" validate:"required"`
	Priority    domain.TicketPriority  `json:"priority"`
	Sentiment   domain.TicketSentiment `json:"sentiment"`
}

// UpdateTicketRequest is an explicit partial update. Absent keys leave the
// field untouched. assigned_to is raw so that an explicit null (unassign)
// stays distinguishable from the key being absent.
type UpdateTicketRequest struct {
	Subject         *string                 `json:"subject"`
	Description     *string                 `json:"description"`
	Category        *domain.TicketCategory  `json:"category"`
	Priority        *domain.TicketPriority  `json:"priority"`
	Status          *domain.TicketStatus    `json:"status"`
	Sentiment       *domain.TicketSentiment `json:"sentiment"`
	AssignedTo      json.RawMessage         `json:"assigned_to"`
	ResolutionNotes *string                 `json:"resolution_notes"`
	InternalNotes   *string                 `json:"internal_notes"`
}

// MergeTicketRequest payload.
type MergeTicketRequest struct {
	TargetID string `json:"target_id" validate:"required"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Content  string `json:"content" validate:"required"`
	Internal bool   `json:"internal"`
}

// TicketResponse is the full ticket view. internal_notes is blank for
// end-users; the service redacts it before the handler sees the ticket.
type TicketResponse struct {
	ID                 string                 `json:"id"`
	Seq                int64                  `json:"seq"`
	Subject            string                 `json:"subject"`
	Description        string                 `json:"description"`
	Category           domain.TicketCategory  `json:"category"`
	Priority           domain.TicketPriority  `json:"priority"`
	Status             domain.TicketStatus    `json:"status"`
	Sentiment          domain.TicketSentiment `json:"sentiment"`
	ResolutionNotes    string                 `json:"resolution_notes,omitempty"`
	InternalNotes      string                 `json:"internal_notes,omitempty"`
	CreatedBy          string                 `json:"created_by"`
	AssignedTo         *string                `json:"assigned_to"`
	MergedInto         *string                `json:"merged_into,omitempty"`
	DueBy              time.Time              `json:"due_by"`
	Overdue            bool                   `json:"overdue"`
	CommentCount       int                    `json:"comment_count"`
	PublicCommentCount int                    `json:"public_comment_count"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// CommentResponse represents one comment on a ticket.
type CommentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Internal   bool      `json:"internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityResponse represents one audit trail entry.
type ActivityResponse struct {
	ID        string              `json:"id"`
	TicketID  string              `json:"ticket_id"`
	Kind      domain.ActivityKind `json:"kind"`
	Metadata  map[string]any      `json:"metadata,omitempty"`
	ActorID   string              `json:"actor_id"`
	CreatedAt time.Time           `json:"created_at"`
}
