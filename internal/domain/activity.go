package domain

import "time"

// ActivityKind captures what changed in an activity entry.
type ActivityKind string

const (
	ActivityCreated         ActivityKind = "CREATED"
	ActivityStatusChanged   ActivityKind = "STATUS_CHANGED"
	ActivityPriorityChanged ActivityKind = "PRIORITY_CHANGED"
	ActivityAssigned        ActivityKind = "ASSIGNED"
	ActivityNoteAdded       ActivityKind = "NOTE_ADDED"
	ActivityMerged          ActivityKind = "MERGED"
)

// ActivityEntry is an immutable audit trail record. Entries are append-only,
// ordered by creation time, and form the ticket's full provenance trail.
type ActivityEntry struct {
	ID        string
	TicketID  string
	Kind      ActivityKind
	Metadata  map[string]any
	ActorID   string
	CreatedAt time.Time
}
