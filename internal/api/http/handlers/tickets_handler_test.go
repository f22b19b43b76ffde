package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketing-portal/internal/domain"
	"github.com/spec-kit/ticketing-portal/internal/service"
)

func listQueryFilter(t *testing.T, target string) service.TicketListFilter {
	t.Helper()
	app := fiber.New()
	var got service.TicketListFilter
	app.Get("/tickets", func(c *fiber.Ctx) error {
		got = parseTicketListQuery(c)
		return nil
	})
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return got
}

func TestParseTicketListQueryDefaults(t *testing.T) {
	filter := listQueryFilter(t, "/tickets")
	assert.Equal(t, defaultPageSize, filter.Limit)
	assert.Equal(t, 0, filter.Offset)
	assert.Empty(t, filter.Statuses)
	assert.Empty(t, filter.Priorities)
}

func TestParseTicketListQueryPageSizeCapped(t *testing.T) {
	filter := listQueryFilter(t, "/tickets?page_size=10000")
	assert.Equal(t, maxPageSize, filter.Limit)

	// The offset is computed from the clamped size as well.
	filter = listQueryFilter(t, "/tickets?page=3&page_size=10000")
	assert.Equal(t, maxPageSize, filter.Limit)
	assert.Equal(t, 2*maxPageSize, filter.Offset)
}

func TestParseTicketListQueryFilters(t *testing.T) {
	filter := listQueryFilter(t, "/tickets?status=open,%20resolved&priority=high")
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusResolved}, filter.Statuses)
	assert.Equal(t, []domain.TicketPriority{domain.TicketPriorityHigh}, filter.Priorities)
}
