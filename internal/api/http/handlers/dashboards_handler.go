package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/query"
	"github.com/spec-kit/helpdesk/internal/service"
)

// DashboardsHandler serves the per-role work queues.
type DashboardsHandler struct {
	queries *service.QueryService
}

// NewDashboardsHandler constructs handler.
func NewDashboardsHandler(queryService *service.QueryService) *DashboardsHandler {
	return &DashboardsHandler{queries: queryService}
}

// UserDashboard GET /dashboard/department.
func (h *DashboardsHandler) UserDashboard(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	dashboard, err := h.queries.UserDashboard(c.Context(), scope, parseBucket(c), parseFilter(c), parseSort(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(dashboard)})
}

// ManagerDashboard GET /dashboard/manager.
func (h *DashboardsHandler) ManagerDashboard(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	dashboard, err := h.queries.ManagerDashboard(c.Context(), scope, parseBucket(c), parseFilter(c), parseSort(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(dashboard)})
}

// AdminDashboard GET /dashboard/admin.
func (h *DashboardsHandler) AdminDashboard(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	var departmentID *int64
	if raw := strings.TrimSpace(c.Query("departmentId")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			departmentID = &id
		}
	}
	dashboard, err := h.queries.AdminDashboard(c.Context(), scope, departmentID, parseBucket(c), parseFilter(c), parseSort(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(dashboard)})
}

func parseBucket(c *fiber.Ctx) *query.Bucket {
	return query.ParseBucket(c.Query("bucket"))
}

func dashboardResponse(dashboard *service.Dashboard) dto.DashboardResponse {
	return dto.DashboardResponse{
		Counts: dto.StatusCountsResponse{
			Total:      dashboard.Counts.Total,
			New:        dashboard.Counts.New,
			InProgress: dashboard.Counts.InProgress,
			Closed:     dashboard.Counts.Closed,
		},
		Tickets: ticketSummaries(dashboard.Tickets),
	}
}
