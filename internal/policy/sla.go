package policy

import (
	"fmt"
	"time"

	"github.com/itops/helpdesk-service/internal/domain"
)

// SLAPolicy maps a ticket priority to its response deadline. The offset
// table must be total over all four priorities and monotonic: critical
// resolves no later than high, high no later than medium, and so on.
type SLAPolicy struct {
	offsets map[domain.TicketPriority]time.Duration
}

// DefaultSLAOffsets are used when no configuration overrides them.
var DefaultSLAOffsets = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityCritical: 4 * time.Hour,
	domain.TicketPriorityHigh:     8 * time.Hour,
	domain.TicketPriorityMedium:   24 * time.Hour,
	domain.TicketPriorityLow:      72 * time.Hour,
}

// NewSLAPolicy validates the offset table and builds the policy.
func NewSLAPolicy(offsets map[domain.TicketPriority]time.Duration) (*SLAPolicy, error) {
	if offsets == nil {
		offsets = DefaultSLAOffsets
	}
	order := []domain.TicketPriority{
		domain.TicketPriorityCritical,
		domain.TicketPriorityHigh,
		domain.TicketPriorityMedium,
		domain.TicketPriorityLow,
	}
	table := make(map[domain.TicketPriority]time.Duration, len(order))
	var prev time.Duration
	for i, priority := range order {
		offset, ok := offsets[priority]
		if !ok || offset <= 0 {
			return nil, fmt.Errorf("sla offset missing or non-positive for priority %s", priority)
		}
		if i > 0 && offset < prev {
			return nil, fmt.Errorf("sla offsets not monotonic: %s shorter than a higher priority", priority)
		}
		table[priority] = offset
		prev = offset
	}
	return &SLAPolicy{offsets: table}, nil
}

// MustSLAPolicy builds the policy or panics; for defaults known to be valid.
func MustSLAPolicy(offsets map[domain.TicketPriority]time.Duration) *SLAPolicy {
	policy, err := NewSLAPolicy(offsets)
	if err != nil {
		panic(err)
	}
	return policy
}

// DueBy derives the deadline for a priority from the given instant.
// Deterministic: equal inputs always yield equal deadlines.
func (p *SLAPolicy) DueBy(priority domain.TicketPriority, now time.Time) time.Time {
	offset, ok := p.offsets[priority]
	if !ok {
		offset = p.offsets[domain.TicketPriorityMedium]
	}
	return now.Add(offset)
}

// Overdue reports whether the ticket blew its deadline. The deadline is
// frozen once a ticket is resolved or closed.
func Overdue(ticket *domain.Ticket, now time.Time) bool {
	if ticket.IsTerminal() {
		return false
	}
	return now.After(ticket.DueBy)
}
