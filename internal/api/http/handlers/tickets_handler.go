package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/query"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages ticket workflow and listing endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	queries *service.QueryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, queryService *service.QueryService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, queries: queryService}
}

// CreateTicket POST /tickets. Accepts multipart form data so attachments
// ride along with the ticket fields.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}

	departmentID, err := strconv.ParseInt(strings.TrimSpace(c.FormValue("department_id")), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("department_id is required", nil)
	}

	input := service.TicketCreateInput{
		Title:        c.FormValue("title"),
		Description:  c.FormValue("description"),
		DepartmentID: departmentID,
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fileHeader := range form.File["attachments"] {
			file, err := fileHeader.Open()
			if err != nil {
				return apperrors.NewValidationError("unreadable attachment", map[string]any{"file_name": fileHeader.Filename})
			}
			defer file.Close()
			input.Attachments = append(input.Attachments, service.AttachmentUpload{
				FileName:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Content:     file,
			})
		}
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), scope, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":               ticket.ID,
		"reference_number": ticket.ReferenceNumber,
		"status":           ticket.Status,
	}})
}

// ListCreated GET /tickets/created.
func (h *TicketsHandler) ListCreated(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	items, err := h.queries.ListCreated(c.Context(), scope, parseFilter(c), parseSort(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(items)})
}

// ListAssigned GET /tickets/assigned.
func (h *TicketsHandler) ListAssigned(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	items, err := h.queries.ListAssigned(c.Context(), scope, parseFilter(c), parseSort(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(items)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetTicketDetail(c.Context(), scope, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(detail)})
}

// ListTargetDepartments GET /tickets/departments.
func (h *TicketsHandler) ListTargetDepartments(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	departments, err := h.tickets.EligibleTargetDepartments(c.Context(), scope)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for _, dept := range departments {
		items = append(items, dto.DepartmentResponse{ID: dept.ID, Name: dept.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SelfManage POST /tickets/:id/self-manage.
func (h *TicketsHandler) SelfManage(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.tickets.SelfManage)
}

// Approve POST /tickets/:id/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ApproveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority, ok := domain.ParseTicketPriority(req.Priority)
	if !ok {
		return apperrors.NewValidationError("unknown priority", nil)
	}
	ticket, err := h.tickets.ApproveAndAssign(c.Context(), scope, ticketID, req.AssigneeID, priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": ticket.ID, "status": ticket.Status}})
}

// SolveMyself POST /tickets/:id/solve-myself.
func (h *TicketsHandler) SolveMyself(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.tickets.SolveMyself)
}

// CloseSolved POST /tickets/:id/close-solved.
func (h *TicketsHandler) CloseSolved(c *fiber.Ctx) error {
	return h.simpleTransition(c, h.tickets.ManagerCloseSolved)
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, ok := domain.ParseTicketStatus(req.Status)
	if !ok {
		return apperrors.NewValidationError("unknown status", nil)
	}
	ticket, err := h.tickets.ChangeStatus(c.Context(), scope, ticketID, status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": ticket.ID, "status": ticket.Status}})
}

func (h *TicketsHandler) simpleTransition(c *fiber.Ctx, op func(ctx context.Context, scope *session.Scope, ticketID int64) (*domain.Ticket, error)) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, err := op(c.Context(), scope, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": ticket.ID, "status": ticket.Status}})
}

func requireScope(c *fiber.Ctx) (*session.Scope, error) {
	scope, ok := auth.ScopeFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("not signed in")
	}
	return scope, nil
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func parseFilter(c *fiber.Ctx) query.Filter {
	return query.Filter{
		Reference:          c.Query("ticketNumber"),
		Title:              c.Query("title"),
		DepartmentName:     c.Query("department"),
		FromDepartmentName: c.Query("fromDepartment"),
		CreatedBy:          c.Query("createdBy"),
		AssignedTo:         c.Query("assignedTo"),
		Status:             query.ParseStatus(c.Query("status")),
		CreatedOn:          query.ParseCreatedOn(c.Query("createdAt")),
	}
}

func parseSort(c *fiber.Ctx) query.Sort {
	return query.ParseSort(c.Query("sort"), c.Query("dir"))
}

func ticketSummaries(items []repository.TicketListItem) []dto.TicketSummary {
	summaries := make([]dto.TicketSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, ticketSummary(&items[i]))
	}
	return summaries
}

func ticketSummary(item *repository.TicketListItem) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                 item.ID,
		ReferenceNumber:    item.ReferenceNumber,
		Title:              item.Title,
		Status:             item.Status,
		Priority:           item.Priority,
		DepartmentName:     item.DepartmentName,
		FromDepartmentName: item.FromDepartmentName,
		CreatedBy:          item.CreatedBy,
		AssignedTo:         item.AssignedUserName,
		CreatedAt:          item.CreatedAt,
	}
}

func ticketDetailResponse(detail *service.TicketDetail) dto.TicketDetailResponse {
	ticket := detail.Ticket
	history := make([]dto.TicketHistoryResponse, 0, len(detail.History))
	for _, entry := range detail.History {
		history = append(history, dto.TicketHistoryResponse{
			ID:        entry.ID,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			ChangedBy: entry.ChangedBy,
			Role:      entry.Role,
			ChangedAt: entry.ChangedAt,
			Comment:   entry.Comment,
		})
	}
	attachments := make([]dto.AttachmentResponse, 0, len(detail.Attachments))
	for _, att := range detail.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:          att.ID,
			FileName:    att.FileName,
			ContentType: att.ContentType,
			UploadedAt:  att.UploadedAt,
		})
	}
	assignable := make([]dto.AssignableUser, 0, len(detail.AssignableUsers))
	for _, user := range detail.AssignableUsers {
		assignable = append(assignable, dto.AssignableUser{ID: user.ID, UserName: user.UserName})
	}
	return dto.TicketDetailResponse{
		ID:              ticket.ID,
		ReferenceNumber: ticket.ReferenceNumber,
		Title:           ticket.Title,
		Description:     ticket.Description,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		DepartmentID:    ticket.DepartmentID,
		CreatedBy:       ticket.CreatedBy,
		AssignedUserID:  ticket.AssignedUserID,
		CreatedAt:       ticket.CreatedAt,
		History:         history,
		Attachments:     attachments,
		AssignableUsers: assignable,
		ManagerCanAct:   detail.ManagerCanAct,
		CanManage:       detail.CanManage,
	}
}
