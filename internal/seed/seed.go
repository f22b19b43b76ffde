// Package seed provisions demo users and tickets for local development.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-portal/internal/auth"
	"github.com/spec-kit/ticketing-portal/internal/domain"
	"github.com/spec-kit/ticketing-portal/internal/policy"
	"github.com/spec-kit/ticketing-portal/internal/repository"
)

type demoUser struct {
	username    string
	email       string
	password    string
	isStaff     bool
	isSuperuser bool
}

var demoUsers = []demoUser{
	{username: "admin", email: "admin@example.com", password: "Admin@12345", isStaff: true, isSuperuser: true},
	{username: "alice", email: "alice@example.com", password: "Alice@12345"},
	{username: "carol", email: "carol@example.com", password: "Carol@12345"},
}

var demoTickets = []struct {
	title       string
	description string
	priority    domain.TicketPriority
	status      domain.TicketStatus
}{
	{
		title:       "Fiber outage in Vila Nova district",
		description: "Customers report complete internet outage. Validate OLT health and feeder signal levels.",
		priority:    domain.TicketPriorityUrgent,
		status:      domain.TicketStatusOpen,
	},
	{
		title:       "High latency on GPON segment",
		description: "Average ping above SLA threshold during peak hours. Check congestion and QoS policies.",
		priority:    domain.TicketPriorityHigh,
		status:      domain.TicketStatusInProgress,
	},
	{
		title:       "Packet loss affecting business clients",
		description: "Multiple clients report unstable video calls. Investigate uplink errors and route flaps.",
		priority:    domain.TicketPriorityHigh,
		status:      domain.TicketStatusOpen,
	},
	{
		title:       "ONT offline after power fluctuations",
		description: "Device is unreachable from ACS. Confirm signal, reboot remotely, and schedule technician if needed.",
		priority:    domain.TicketPriorityMedium,
		status:      domain.TicketStatusOpen,
	},
	{
		title:       "PPP authentication failures on edge router",
		description: "New sessions are failing with invalid credentials. Review RADIUS logs and recent config changes.",
		priority:    domain.TicketPriorityMedium,
		status:      domain.TicketStatusResolved,
	},
	{
		title:       "Intermittent internet drop in residential area",
		description: "Service drops every few minutes in one neighborhood. Inspect splitter path and distribution box.",
		priority:    domain.TicketPriorityLow,
		status:      domain.TicketStatusOpen,
	},
}

// Run ensures the demo users exist and, when the ticket table is empty,
// creates a batch of demo tickets. Safe to call repeatedly.
func Run(ctx context.Context, users repository.UserRepository, tickets repository.TicketRepository, bcryptCost int, logger *zap.Logger) error {
	created := make([]*domain.User, 0, len(demoUsers))
	for _, du := range demoUsers {
		user, err := ensureUser(ctx, users, du, bcryptCost)
		if err != nil {
			return fmt.Errorf("ensure user %s: %w", du.username, err)
		}
		created = append(created, user)
	}
	logger.Info("demo users ensured", zap.Int("count", len(created)))

	existing, err := tickets.ListVisible(ctx, policy.Scope{All: true}, repository.TicketFilter{Limit: 1})
	if err != nil {
		return fmt.Errorf("check existing tickets: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("tickets already present; skipping ticket seed")
		return nil
	}

	admin, alice, carol := created[0], created[1], created[2]
	requesters := []*domain.User{alice, carol, alice, carol, alice, carol}
	assignees := []*domain.User{admin, nil, carol, nil, admin, nil}

	count := 0
	for i, dt := range demoTickets {
		ticket := &domain.Ticket{
			Title:       dt.title,
			Description: dt.description,
			Priority:    dt.priority,
			Status:      dt.status,
			RequesterID: requesters[i].ID,
		}
		if assignees[i] != nil {
			id := assignees[i].ID
			ticket.AssigneeID = &id
		}
		if err := tickets.Create(ctx, ticket); err != nil {
			return fmt.Errorf("seed ticket %q: %w", dt.title, err)
		}
		count++
	}
	logger.Info("demo tickets created", zap.Int("count", count))
	return nil
}

func ensureUser(ctx context.Context, users repository.UserRepository, du demoUser, bcryptCost int) (*domain.User, error) {
	if user, err := users.GetByUsername(ctx, du.username); err == nil {
		return user, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(du.password, bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     du.username,
		Email:        du.email,
		PasswordHash: hash,
		IsStaff:      du.isStaff,
		IsSuperuser:  du.isSuperuser,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
