package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticketing-portal/internal/domain"
	"github.com/spec-kit/ticketing-portal/internal/events"
	"github.com/spec-kit/ticketing-portal/internal/policy"
	"github.com/spec-kit/ticketing-portal/internal/repository"
	apperrors "github.com/spec-kit/ticketing-portal/pkg/util"
)

// TicketService coordinates ticket workflows. Every read goes through
// the policy scope first, so ids outside a caller's visibility surface
// as not-found; the per-record decision function runs after that as a
// second layer.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload. The requester is
// never part of it; the service binds the acting principal.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Status      domain.TicketStatus
	AssigneeID  *string
}

// TicketUpdateInput carries patch semantics: nil pointers leave fields
// unchanged. AssigneeSet distinguishes "not supplied" from an explicit
// null that unassigns the ticket.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssigneeID  *string
	AssigneeSet bool
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// CreateTicket creates a ticket with the principal as requester.
func (s *TicketService) CreateTicket(ctx context.Context, p policy.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	status := input.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	if !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}

	if input.AssigneeID != nil {
		if err := s.checkAssigneeExists(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    priority,
		RequesterID: p.ID,
		AssigneeID:  input.AssigneeID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	created, err := s.tickets.GetVisible(ctx, ticket.ID, policy.ScopeFor(p))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: created.ID,
		ActorID:  p.ID,
		Payload: events.TicketCreatedPayload{
			Title:      created.Title,
			Priority:   created.Priority,
			Status:     created.Status,
			AssigneeID: created.AssigneeID,
		},
	})
	return created, nil
}

// GetTicket fetches a single ticket for the principal.
func (s *TicketService) GetTicket(ctx context.Context, p policy.Principal, ticketID string) (*domain.Ticket, error) {
	return s.fetchAuthorized(ctx, p, ticketID, policy.OperationRead)
}

// ListTickets returns the tickets visible to the principal, newest first.
func (s *TicketService) ListTickets(ctx context.Context, p policy.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !domain.ValidStatus(status) {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !domain.ValidPriority(priority) {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
		}
	}

	tickets, err := s.tickets.ListVisible(ctx, policy.ScopeFor(p), repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateTicket applies a patch to a ticket the principal may update.
// Requester, id and created_at are not patchable.
func (s *TicketService) UpdateTicket(ctx context.Context, p policy.Principal, ticketID string, patch TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetchAuthorized(ctx, p, ticketID, policy.OperationUpdate)
	if err != nil {
		return nil, err
	}

	var changed []string
	assigneeChanged := false

	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		ticket.Title = title
		changed = append(changed, "title")
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
		changed = append(changed, "description")
	}
	if patch.Priority != nil {
		if !domain.ValidPriority(*patch.Priority) {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
		}
		ticket.Priority = *patch.Priority
		changed = append(changed, "priority")
	}
	if patch.Status != nil {
		if !domain.ValidStatus(*patch.Status) {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *patch.Status})
		}
		ticket.Status = *patch.Status
		changed = append(changed, "status")
	}
	if patch.AssigneeSet {
		if patch.AssigneeID != nil {
			if err := s.checkAssigneeExists(ctx, *patch.AssigneeID); err != nil {
				return nil, err
			}
		}
		assigneeChanged = !sameAssignee(ticket.AssigneeID, patch.AssigneeID)
		ticket.AssigneeID = patch.AssigneeID
		changed = append(changed, "assignee")
	}

	if len(changed) == 0 {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	// Re-read so derived usernames reflect the new assignee. The caller
	// already passed the update check; read without the caller's scope so
	// an assignee who just removed themselves still gets the result back.
	updated, err := s.tickets.GetVisible(ctx, ticket.ID, policy.Scope{All: true})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: updated.ID,
		ActorID:  p.ID,
		Payload:  events.TicketUpdatedPayload{Fields: changed},
	})
	if assigneeChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: updated.ID,
			ActorID:  p.ID,
			Payload:  events.TicketAssignedPayload{AssigneeID: updated.AssigneeID},
		})
	}
	return updated, nil
}

// DeleteTicket removes a ticket the principal may delete.
func (s *TicketService) DeleteTicket(ctx context.Context, p policy.Principal, ticketID string) error {
	ticket, err := s.fetchAuthorized(ctx, p, ticketID, policy.OperationDelete)
	if err != nil {
		return err
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  p.ID,
		Payload:  events.TicketDeletedPayload{Title: ticket.Title},
	})
	return nil
}

// fetchAuthorized layers the scope before the decision function: an id
// outside the scope is not-found, a visible record the decision denies
// is forbidden. The two never collapse into one response.
func (s *TicketService) fetchAuthorized(ctx context.Context, p policy.Principal, ticketID string, op policy.Operation) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetVisible(ctx, ticketID, policy.ScopeFor(p))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.Authorize(p, ticket, op) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func (s *TicketService) checkAssigneeExists(ctx context.Context, assigneeID string) error {
	if _, err := s.users.GetByID(ctx, assigneeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("assignee not found", map[string]any{"assignee": assigneeID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperrors.NewValidationError("title required", map[string]any{"title": "required"})
	}
	if utf8.RuneCountInString(title) > domain.TicketTitleMaxLen {
		return "", apperrors.NewValidationError("title too long", map[string]any{
			"title":      "too long",
			"max_length": domain.TicketTitleMaxLen,
		})
	}
	return title, nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
