package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-portal/internal/persistence"
	"github.com/spec-kit/ticketing-portal/internal/policy"
	"github.com/spec-kit/ticketing-portal/internal/repository"
	apperrors "github.com/spec-kit/ticketing-portal/pkg/util"
)

const (
	directoryCacheKey = "users:directory"
	directoryCacheTTL = 30 * time.Second
)

// DirectoryEntry is the public projection of a principal used to
// populate assignee pickers.
type DirectoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UserService serves the user directory and administrative deletion.
type UserService struct {
	users  repository.UserRepository
	cache  *persistence.Redis
	logger *zap.Logger
}

// NewUserService constructs the service. The cache may be nil.
func NewUserService(users repository.UserRepository, cache *persistence.Redis, logger *zap.Logger) *UserService {
	return &UserService{users: users, cache: cache, logger: logger}
}

// Directory lists all principals' id and username, ascending by
// username. Requires authentication only, no elevated role. The result
// is cached briefly in redis; cache failures fall through to the store.
func (s *UserService) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	if cached, err := s.cache.GetString(ctx, directoryCacheKey); err == nil {
		var entries []DirectoryEntry
		if json.Unmarshal([]byte(cached), &entries) == nil {
			return entries, nil
		}
	} else if !persistence.IsCacheMiss(err) {
		s.logger.Warn("directory cache read failed", zap.Error(err))
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	entries := make([]DirectoryEntry, 0, len(users))
	for _, user := range users {
		entries = append(entries, DirectoryEntry{ID: user.ID, Username: user.Username})
	}

	if encoded, err := json.Marshal(entries); err == nil {
		if err := s.cache.SetString(ctx, directoryCacheKey, string(encoded), directoryCacheTTL); err != nil {
			s.logger.Warn("directory cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

// DeleteUser removes a principal. Elevated access only. Deleting a
// principal still referenced by a ticket fails; the reference is never
// cascaded or nulled.
func (s *UserService) DeleteUser(ctx context.Context, p policy.Principal, userID string) error {
	if !p.Elevated() {
		return apperrors.NewForbidden("elevated access required")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReferenced):
			return apperrors.NewReferentialProtection("user is referenced by tickets", map[string]any{"user_id": userID})
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		default:
			return apperrors.MapError(err)
		}
	}

	s.invalidateDirectory(ctx)
	return nil
}

// InvalidateDirectory drops the cached directory listing. Called after
// user writes outside this service (registration).
func (s *UserService) InvalidateDirectory(ctx context.Context) {
	s.invalidateDirectory(ctx)
}

func (s *UserService) invalidateDirectory(ctx context.Context) {
	if err := s.cache.Delete(ctx, directoryCacheKey); err != nil {
		s.logger.Warn("directory cache invalidation failed", zap.Error(err))
	}
}
