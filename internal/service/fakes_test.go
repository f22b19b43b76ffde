package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticketing-portal/internal/domain"
	"github.com/spec-kit/ticketing-portal/internal/events"
	"github.com/spec-kit/ticketing-portal/internal/policy"
	"github.com/spec-kit/ticketing-portal/internal/repository"
)

// fakeStore backs the in-memory repositories so user deletion can check
// ticket references the way the database foreign keys do.
type fakeStore struct {
	mu      sync.Mutex
	userSeq int
	tickSeq int
	users   map[string]*domain.User
	tickets map[string]*domain.Ticket
	now     time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*domain.User),
		tickets: make(map[string]*domain.Ticket),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick advances the fake clock so successive creates get distinct
// creation times.
func (s *fakeStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

type fakeUserRepo struct {
	store *fakeStore
}

type fakeTicketRepo struct {
	store *fakeStore
}

func newFakeRepos() (*fakeUserRepo, *fakeTicketRepo) {
	store := newFakeStore()
	return &fakeUserRepo{store: store}, &fakeTicketRepo{store: store}
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)
var _ repository.TicketRepository = (*fakeTicketRepo)(nil)

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.userSeq++
	user.ID = fmt.Sprintf("u%03d", r.store.userSeq)
	user.CreatedAt = r.store.tick()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.store.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = r.store.tick()
	clone := *user
	r.store.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, ticket := range r.store.tickets {
		if ticket.RequesterID == id || (ticket.AssigneeID != nil && *ticket.AssigneeID == id) {
			return repository.ErrReferenced
		}
	}
	delete(r.store.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make([]domain.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.tickSeq++
	ticket.ID = fmt.Sprintf("t%03d", r.store.tickSeq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.store.tick()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.store.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.RequesterID = existing.RequesterID
	ticket.CreatedAt = existing.CreatedAt
	ticket.UpdatedAt = r.store.tick()
	clone := *ticket
	r.store.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GetVisible(_ context.Context, id string, scope policy.Scope) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok || !inScope(ticket, scope) {
		return nil, pgx.ErrNoRows
	}
	return r.withUsernames(ticket), nil
}

func (r *fakeTicketRepo) ListVisible(_ context.Context, scope policy.Scope, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if !inScope(ticket, scope) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		result = append(result, *r.withUsernames(ticket))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset > len(result) {
		offset = len(result)
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r *fakeTicketRepo) withUsernames(ticket *domain.Ticket) *domain.Ticket {
	clone := *ticket
	if requester, ok := r.store.users[clone.RequesterID]; ok {
		clone.RequesterUsername = requester.Username
	}
	clone.AssigneeUsername = nil
	if clone.AssigneeID != nil {
		if assignee, ok := r.store.users[*clone.AssigneeID]; ok {
			username := assignee.Username
			clone.AssigneeUsername = &username
		}
	}
	return &clone
}

// setCreatedAt rewrites a ticket's creation time for ordering tests.
func (r *fakeTicketRepo) setCreatedAt(id string, at time.Time) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if ticket, ok := r.store.tickets[id]; ok {
		ticket.CreatedAt = at
	}
}

func inScope(ticket *domain.Ticket, scope policy.Scope) bool {
	if scope.All {
		return true
	}
	if ticket.RequesterID == scope.PrincipalID {
		return true
	}
	return ticket.AssigneeID != nil && *ticket.AssigneeID == scope.PrincipalID
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		result = append(result, event.Type)
	}
	return result
}
