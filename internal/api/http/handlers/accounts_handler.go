package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AccountsHandler manages login, logout and the current-session endpoint.
type AccountsHandler struct {
	service    *service.AccountService
	cookieName string
	sessionTTL time.Duration
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accountService *service.AccountService, cookieName string, sessionTTL time.Duration) *AccountsHandler {
	return &AccountsHandler{service: accountService, cookieName: cookieName, sessionTTL: sessionTTL}
}

// Login POST /auth/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserName == "" || req.Password == "" {
		return apperrors.NewValidationError("user_name and password required", nil)
	}

	scope, sessionID, err := h.service.Login(c.Context(), req.UserName, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    sessionID,
		Expires:  time.Now().Add(h.sessionTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"data": sessionResponse(scope)})
}

// Logout POST /auth/logout.
func (h *AccountsHandler) Logout(c *fiber.Ctx) error {
	if err := h.service.Logout(c.Context(), c.Cookies(h.cookieName)); err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"data": "signed out"})
}

// Me GET /auth/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	scope, ok := auth.ScopeFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}
	return c.JSON(fiber.Map{"data": sessionResponse(scope)})
}

func sessionResponse(scope *session.Scope) dto.SessionResponse {
	return dto.SessionResponse{
		UserID:               scope.UserID,
		UserName:             scope.UserName,
		Role:                 scope.Role,
		DepartmentID:         scope.DepartmentID,
		ManagedDepartmentIDs: scope.ManagerDepartmentIDs,
	}
}
