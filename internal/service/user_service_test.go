package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-portal/internal/domain"
	"github.com/spec-kit/ticketing-portal/internal/policy"
)

func newUserFixture(t *testing.T) (*UserService, *fakeUserRepo, *fakeTicketRepo) {
	t.Helper()
	users, tickets := newFakeRepos()
	// nil redis: the cache is bypassed and every read hits the store.
	svc := NewUserService(users, nil, zap.NewNop())
	return svc, users, tickets
}

func TestDirectoryOrderedByUsername(t *testing.T) {
	svc, users, _ := newUserFixture(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "admin", "bob", "alice"} {
		require.NoError(t, users.Create(ctx, &domain.User{Username: name, Email: name + "@example.com"}))
	}

	entries, err := svc.Directory(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Username)
	}
	assert.Equal(t, []string{"admin", "alice", "bob", "carol"}, names)
}

func TestDeleteUserRequiresElevated(t *testing.T) {
	svc, users, _ := newUserFixture(t)
	ctx := context.Background()

	victim := &domain.User{Username: "victim", Email: "victim@example.com"}
	require.NoError(t, users.Create(ctx, victim))

	err := svc.DeleteUser(ctx, policy.Principal{ID: "someone"}, victim.ID)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))

	err = svc.DeleteUser(ctx, policy.Principal{ID: "admin", Level: policy.LevelElevated}, victim.ID)
	require.NoError(t, err)
}

func TestDeleteUserReferentialProtection(t *testing.T) {
	svc, users, tickets := newUserFixture(t)
	ctx := context.Background()

	alice := &domain.User{Username: "alice", Email: "alice@example.com"}
	carol := &domain.User{Username: "carol", Email: "carol@example.com"}
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, carol))

	ticket := &domain.Ticket{Title: "Assigned work", RequesterID: alice.ID, AssigneeID: &carol.ID,
		Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium}
	require.NoError(t, tickets.Create(ctx, ticket))

	admin := policy.Principal{ID: "admin", Level: policy.LevelElevated}

	err := svc.DeleteUser(ctx, admin, carol.ID)
	assert.Equal(t, "REFERENTIAL_PROTECTION", domainCode(t, err))

	// The ticket is untouched by the failed delete.
	fetched, err2 := tickets.GetVisible(ctx, ticket.ID, policy.Scope{All: true})
	require.NoError(t, err2)
	require.NotNil(t, fetched.AssigneeID)
	assert.Equal(t, carol.ID, *fetched.AssigneeID)

	err = svc.DeleteUser(ctx, admin, alice.ID)
	assert.Equal(t, "REFERENTIAL_PROTECTION", domainCode(t, err))
}

func TestDeleteUserNotFound(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	err := svc.DeleteUser(context.Background(), policy.Principal{ID: "admin", Level: policy.LevelElevated}, "u999")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}
