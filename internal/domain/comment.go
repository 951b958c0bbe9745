package domain

import "time"

// Comment is a single entry in a ticket conversation. Internal comments are
// excluded from USER-role views by query-time filtering, never client-side.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorName string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
