package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminUsersHandler manages account administration endpoints.
type AdminUsersHandler struct {
	service *service.AccountService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(accountService *service.AccountService) *AdminUsersHandler {
	return &AdminUsersHandler{service: accountService}
}

// ListUsers GET /admin/users.
func (h *AdminUsersHandler) ListUsers(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	users, err := h.service.ListUsers(c.Context(), scope, c.Query("search"))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetUser GET /admin/users/:id.
func (h *AdminUsersHandler) GetUser(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}
	user, managed, err := h.service.GetUser(c.Context(), scope, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user, managed)})
}

// CreateUser POST /admin/users.
func (h *AdminUsersHandler) CreateUser(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	input, err := parseUserRequest(c)
	if err != nil {
		return err
	}
	user, err := h.service.CreateUser(c.Context(), scope, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user, input.ManagedDepartmentIDs)})
}

// UpdateUser PUT /admin/users/:id.
func (h *AdminUsersHandler) UpdateUser(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return err
	}
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}
	input, err := parseUserRequest(c)
	if err != nil {
		return err
	}
	user, err := h.service.UpdateUser(c.Context(), scope, userID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user, input.ManagedDepartmentIDs)})
}

func parseUserID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid user id", nil)
	}
	return id, nil
}

func parseUserRequest(c *fiber.Ctx) (service.UserInput, error) {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return service.UserInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	role, ok := domain.ParseUserRole(req.Role)
	if !ok {
		return service.UserInput{}, apperrors.NewValidationError("unknown role", nil)
	}
	return service.UserInput{
		UserName:             req.UserName,
		Password:             req.Password,
		Role:                 role,
		DepartmentID:         req.DepartmentID,
		ManagedDepartmentIDs: req.ManagedDepartmentIDs,
		CanManageDeptTickets: req.CanManageDeptTickets,
		IsActive:             req.IsActive,
	}, nil
}

func userResponse(user *domain.AppUser, managed []int64) dto.UserResponse {
	return dto.UserResponse{
		ID:                   user.ID,
		UserName:             user.UserName,
		Role:                 user.Role,
		DepartmentID:         user.DepartmentID,
		ManagedDepartmentIDs: managed,
		CanManageDeptTickets: user.CanManageDeptTickets,
		IsActive:             user.IsActive,
		CreatedAt:            user.CreatedAt,
	}
}
