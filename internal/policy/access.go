package policy

import "github.com/itops/helpdesk-service/internal/domain"

// Access policy is a stateless predicate set consulted before any mutation.
// ADMIN and IT_STAFF carry identical privileges within the ticket core.

// IsStaff reports whether the role carries staff privileges.
func IsStaff(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleITStaff
}

// CanViewInternal reports whether the role may see internal notes/comments.
func CanViewInternal(role domain.Role) bool {
	return IsStaff(role)
}

// CanMutateStatus reports whether the role may change ticket status or
// assignment.
func CanMutateStatus(role domain.Role) bool {
	return IsStaff(role)
}

// CanDeleteTicket reports whether the role may delete tickets.
func CanDeleteTicket(role domain.Role) bool {
	return IsStaff(role)
}

// CanMergeTickets reports whether the role may merge tickets.
func CanMergeTickets(role domain.Role) bool {
	return IsStaff(role)
}

// CanReadTicket reports whether the caller may read the ticket. Staff read
// everything; a USER only their own submissions.
func CanReadTicket(role domain.Role, ticket *domain.Ticket, actorID string) bool {
	if IsStaff(role) {
		return true
	}
	return ticket.CreatedBy == actorID
}
