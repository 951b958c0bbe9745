package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itops/helpdesk-service/internal/domain"
)

func TestDueByDeterministic(t *testing.T) {
	sla := MustSLAPolicy(DefaultSLAOffsets)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(4*time.Hour), sla.DueBy(domain.TicketPriorityCritical, now))
	assert.Equal(t, now.Add(8*time.Hour), sla.DueBy(domain.TicketPriorityHigh, now))
	assert.Equal(t, now.Add(24*time.Hour), sla.DueBy(domain.TicketPriorityMedium, now))
	assert.Equal(t, now.Add(72*time.Hour), sla.DueBy(domain.TicketPriorityLow, now))

	// Same inputs, same deadline.
	assert.Equal(t,
		sla.DueBy(domain.TicketPriorityHigh, now),
		sla.DueBy(domain.TicketPriorityHigh, now))
}

func TestDueByUnknownPriorityFallsBackToMedium(t *testing.T) {
	sla := MustSLAPolicy(DefaultSLAOffsets)
	now := time.Now()
	assert.Equal(t, sla.DueBy(domain.TicketPriorityMedium, now), sla.DueBy("BOGUS", now))
}

func TestNewSLAPolicyValidation(t *testing.T) {
	_, err := NewSLAPolicy(map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityCritical: 4 * time.Hour,
		domain.TicketPriorityHigh:     8 * time.Hour,
		domain.TicketPriorityMedium:   24 * time.Hour,
	})
	assert.Error(t, err, "missing offset for low")

	_, err = NewSLAPolicy(map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityCritical: 8 * time.Hour,
		domain.TicketPriorityHigh:     4 * time.Hour, // shorter than critical
		domain.TicketPriorityMedium:   24 * time.Hour,
		domain.TicketPriorityLow:      72 * time.Hour,
	})
	assert.Error(t, err, "offsets must be monotonic")

	policy, err := NewSLAPolicy(nil)
	require.NoError(t, err)
	assert.NotNil(t, policy)
}

func TestOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		Status: domain.TicketStatusOpen,
		DueBy:  now.Add(time.Hour),
	}

	assert.False(t, Overdue(ticket, now))
	assert.False(t, Overdue(ticket, now.Add(time.Hour)), "deadline itself is not overdue")
	assert.True(t, Overdue(ticket, now.Add(2*time.Hour)))

	ticket.Status = domain.TicketStatusResolved
	assert.False(t, Overdue(ticket, now.Add(2*time.Hour)), "resolution freezes the deadline")

	ticket.Status = domain.TicketStatusClosed
	assert.False(t, Overdue(ticket, now.Add(2*time.Hour)))
}
