package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketing-portal/internal/config"
)

// Low bcrypt cost keeps the tests fast.
func newAuthFixture() (*AuthService, *fakeUserRepo) {
	users, _ := newFakeRepos()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}, users)
	return svc, users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	user, token, exp, err := svc.Register(ctx, "alice", "alice@example.com", "Alice@12345")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, token)
	assert.False(t, exp.IsZero())
	assert.False(t, user.IsStaff)
	assert.False(t, user.IsSuperuser)

	loggedIn, _, _, err := svc.Login(ctx, "alice", "Alice@12345")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "", "a@example.com", "pw")
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, _, _, err = svc.Register(ctx, "user", "", "pw")
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, _, _, err = svc.Register(ctx, "user", "a@example.com", "")
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "alice", "alice@example.com", "pw1")
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "alice", "other@example.com", "pw2")
	assert.Equal(t, "CONFLICT", domainCode(t, err))

	_, _, _, err = svc.Register(ctx, "alice2", "alice@example.com", "pw2")
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestLoginByEmailAlias(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "GugaTampa", "gustavo@example.com", "Tampa@5000")
	require.NoError(t, err)

	loggedIn, _, _, err := svc.Login(ctx, "gustavo@example.com", "Tampa@5000")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	// Email matching is case-insensitive.
	loggedIn, _, _, err = svc.Login(ctx, "GUSTAVO@EXAMPLE.COM", "Tampa@5000")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "alice", "alice@example.com", "Alice@12345")
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "alice", "wrong-password")
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))

	_, _, _, err = svc.Login(ctx, "nobody", "whatever")
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))

	_, _, _, err = svc.Login(ctx, "ghost@example.com", "whatever")
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "alice", "alice@example.com", "Alice@12345")
	require.NoError(t, err)

	_, token, _, err := svc.Login(ctx, "alice", "Alice@12345")
	require.NoError(t, err)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.SubjectID)
}
