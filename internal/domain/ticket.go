package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// TicketCategory is the fixed set of helpdesk request types.
type TicketCategory string

const (
	CategoryEmail         TicketCategory = "EMAIL"
	CategoryAccountLogin  TicketCategory = "ACCOUNT_LOGIN"
	CategoryPasswordReset TicketCategory = "PASSWORD_RESET"
	CategoryHardware      TicketCategory = "HARDWARE"
	CategorySoftware      TicketCategory = "SOFTWARE"
	CategoryNetworkVPN    TicketCategory = "NETWORK_VPN"
	CategoryOther         TicketCategory = "OTHER"
)

// TicketSentiment is advisory only and never drives policy.
type TicketSentiment string

const (
	SentimentPositive   TicketSentiment = "POSITIVE"
	SentimentNeutral    TicketSentiment = "NEUTRAL"
	SentimentFrustrated TicketSentiment = "FRUSTRATED"
	SentimentAngry      TicketSentiment = "ANGRY"
)

// Ticket is the aggregate for helpdesk requests. DueBy always reflects the
// current priority; it is recomputed synchronously on every priority change
// and no longer compared against "now" once the ticket is resolved or closed.
type Ticket struct {
	ID              string
	Seq             int64
	Subject         string
	Description     string
	Category        TicketCategory
	Priority        TicketPriority
	Status          TicketStatus
	Sentiment       TicketSentiment
	ResolutionNotes string
	InternalNotes   string
	CreatedBy       string
	AssignedTo      *string
	MergedInto      *string
	DueBy           time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Read-only counters populated on fetch.
	CommentCount       int
	PublicCommentCount int
}

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// ValidCategory reports whether c is in the fixed category enumeration.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case CategoryEmail, CategoryAccountLogin, CategoryPasswordReset,
		CategoryHardware, CategorySoftware, CategoryNetworkVPN, CategoryOther:
		return true
	}
	return false
}

// ValidSentiment reports whether s is a known sentiment value.
func ValidSentiment(s TicketSentiment) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentFrustrated, SentimentAngry:
		return true
	}
	return false
}

// IsTerminal reports whether the ticket reached a final status.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// IsMerged reports whether the ticket was merged into another one.
func (t *Ticket) IsMerged() bool {
	return t.MergedInto != nil
}
