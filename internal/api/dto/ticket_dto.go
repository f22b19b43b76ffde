package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/ticketing-portal/internal/domain"
)

// NullableString distinguishes an absent JSON field from an explicit
// null. Set is true whenever the field appeared in the payload.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON marks the field as present and captures null vs value.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// CreateTicketRequest payload. There is no requester field; the server
// binds the authenticated principal.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Assignee    *string               `json:"assignee"`
}

// UpdateTicketRequest payload; nil fields are left unchanged and an
// explicit null assignee unassigns the ticket.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	Assignee    NullableString         `json:"assignee"`
}

// TicketResponse is the outward ticket representation. The usernames
// are derived and read-only; requester is never exposed as writable.
type TicketResponse struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	Assignee          *string               `json:"assignee"`
	RequesterUsername string                `json:"requester_username"`
	AssigneeUsername  *string               `json:"assignee_username"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}
