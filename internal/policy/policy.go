// Package policy holds the authorization core: the per-record decision
// function and the listing scope that narrows queries to what a
// principal may enumerate. The scope is always applied before the
// decision function so that an id outside a caller's visibility yields
// not-found rather than forbidden.
package policy

import "github.com/spec-kit/ticketing-portal/internal/domain"

// AccessLevel is the capability tier granted to a principal. It is
// computed once when the principal is resolved, not re-read from the
// user row inside the decision function.
type AccessLevel int

const (
	LevelStandard AccessLevel = iota
	LevelElevated
)

// LevelFor derives the access level from the user's role flags.
func LevelFor(u *domain.User) AccessLevel {
	if u != nil && (u.IsStaff || u.IsSuperuser) {
		return LevelElevated
	}
	return LevelStandard
}

// Operation identifies a per-record action. Creation is handled
// separately by binding the requester server-side.
type Operation string

const (
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Principal is the authenticated actor the policy decides for.
type Principal struct {
	ID    string
	Level AccessLevel
}

// Elevated reports whether the principal holds the elevated tier.
func (p Principal) Elevated() bool {
	return p.Level == LevelElevated
}

// Authorize decides whether the principal may perform op on the ticket.
// The same three-tier rule applies uniformly to read, update and delete:
// deny missing principals, allow elevated principals unconditionally,
// otherwise allow only the requester or the assignee.
func Authorize(p Principal, ticket *domain.Ticket, op Operation) bool {
	if p.ID == "" || ticket == nil {
		return false
	}
	switch op {
	case OperationRead, OperationUpdate, OperationDelete:
	default:
		return false
	}
	if p.Elevated() {
		return true
	}
	if ticket.RequesterID == p.ID {
		return true
	}
	return ticket.AssigneeID != nil && *ticket.AssigneeID == p.ID
}

// Scope narrows a ticket listing to what a principal may enumerate.
// When All is false the predicate is requester==PrincipalID OR
// assignee==PrincipalID.
type Scope struct {
	All         bool
	PrincipalID string
}

// ScopeFor returns the listing scope for a principal.
func ScopeFor(p Principal) Scope {
	if p.Elevated() {
		return Scope{All: true}
	}
	return Scope{PrincipalID: p.ID}
}
