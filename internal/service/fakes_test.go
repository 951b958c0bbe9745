package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/itops/helpdesk-service/internal/domain"
	"github.com/itops/helpdesk-service/internal/events"
	"github.com/itops/helpdesk-service/internal/repository"
)

// fakeTx satisfies pgx.Tx so transactional paths are testable without a
// database. Fake repositories apply tx-scoped writes immediately but
// register an undo with the tx; rollback replays the undos in reverse, so a
// failed transaction genuinely leaves no rows behind.
type fakeTx struct {
	committed  bool
	rolledBack bool
	undo       []func()
}

func (t *fakeTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	t.undo = nil
	return nil
}
func (t *fakeTx) Rollback(context.Context) error {
	if t.committed || t.rolledBack {
		return nil
	}
	t.rolledBack = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}
func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                        { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                         { return nil }

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	seq     int64
	lastTx  *fakeTx
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) CreateTx(_ context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = uuid.NewString()
	ticket.Seq = r.seq
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	if ftx, ok := tx.(*fakeTx); ok {
		id := ticket.ID
		ftx.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.tickets, id)
		})
	}
	return nil
}

func (r *fakeTicketRepo) UpdateTx(_ context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	if ftx, ok := tx.(*fakeTx); ok {
		restore := *prev
		ftx.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.tickets[restore.ID] = &restore
		})
	}
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetBySeq(_ context.Context, seq int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Seq == seq {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, ticket.Category) {
			continue
		}
		if filter.DueBefore != nil && (ticket.IsTerminal() || !ticket.DueBy.Before(*filter.DueBefore)) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" &&
				!strings.Contains(strings.ToLower(ticket.Subject), term) &&
				!strings.Contains(strings.ToLower(ticket.Description), term) {
				continue
			}
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) CountQueue(_ context.Context, now time.Time) (repository.QueueCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := repository.QueueCounts{
		ByCategory: make(map[domain.TicketCategory]int),
		ByPriority: make(map[domain.TicketPriority]int),
	}
	for _, ticket := range r.tickets {
		switch ticket.Status {
		case domain.TicketStatusOpen:
			counts.Open++
		case domain.TicketStatusInProgress:
			counts.InProgress++
		default:
			continue
		}
		if ticket.DueBy.Before(now) {
			counts.Overdue++
		}
		if ticket.AssignedTo == nil {
			counts.Unassigned++
		}
		counts.ByCategory[ticket.Category]++
		counts.ByPriority[ticket.Priority]++
	}
	return counts, nil
}

func (r *fakeTicketRepo) DeleteTx(_ context.Context, tx pgx.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	if ftx, ok := tx.(*fakeTx); ok {
		restore := *prev
		ftx.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.tickets[restore.ID] = &restore
		})
	}
	return nil
}

func (r *fakeTicketRepo) BeginTx(context.Context) (pgx.Tx, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastTx = &fakeTx{}
	return r.lastTx, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}

func containsCategory(list []domain.TicketCategory, c domain.TicketCategory) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []domain.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{}
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == id {
			copied := r.comments[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Comment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	return result, nil
}

func (r *fakeCommentRepo) ListPublicByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Comment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID && !comment.IsInternal {
			result = append(result, comment)
		}
	}
	return result, nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == id {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCommentRepo) DeleteByTicketTx(_ context.Context, tx pgx.Tx, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domain.Comment
	kept := r.comments[:0:0]
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			removed = append(removed, comment)
		} else {
			kept = append(kept, comment)
		}
	}
	r.comments = kept
	if ftx, ok := tx.(*fakeTx); ok && len(removed) > 0 {
		ftx.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.comments = append(r.comments, removed...)
		})
	}
	return nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry

	// failCreate makes the next inserts fail, for exercising rollback.
	failCreate error
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{}
}

func (r *fakeActivityRepo) CreateTx(_ context.Context, tx pgx.Tx, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	if ftx, ok := tx.(*fakeTx); ok {
		id := entry.ID
		ftx.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			kept := r.entries[:0]
			for _, item := range r.entries {
				if item.ID != id {
					kept = append(kept, item)
				}
			}
			r.entries = kept
		})
	}
	return nil
}

func (r *fakeActivityRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ActivityEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeActivityRepo) DeleteByTicketTx(_ context.Context, tx pgx.Tx, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domain.ActivityEntry
	kept := r.entries[:0:0]
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			removed = append(removed, entry)
		} else {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	if ftx, ok := tx.(*fakeTx); ok && len(removed) > 0 {
		ftx.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.entries = append(r.entries, removed...)
		})
	}
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) eventsOfType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
