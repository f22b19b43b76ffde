package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing-portal/internal/api/dto"
	"github.com/spec-kit/ticketing-portal/internal/service"
)

// UsersHandler exposes the user directory and administrative deletion.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// ListUsers GET /users. Any authenticated principal may enumerate the
// directory for assignee pickers.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	entries, err := h.users.Directory(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserSummary, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.UserSummary{ID: entry.ID, Username: entry.Username})
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteUser DELETE /users/:id. Elevated access only; deleting a
// principal still referenced by tickets fails with a conflict.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
