package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const scopeKey = "session_scope"

// SessionMiddleware resolves the session cookie into a typed scope and
// stashes it in request locals for downstream handlers.
type SessionMiddleware struct {
	sessions   *session.Store
	cookieName string
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(sessions *session.Store, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, cookieName: cookieName}
}

// Handle enforces an authenticated session for protected routes.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	id := c.Cookies(m.cookieName)
	if id == "" {
		return apperrors.NewUnauthorized("not signed in")
	}

	scope, err := m.sessions.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return apperrors.NewUnauthorized("session expired")
		}
		return apperrors.MapError(err)
	}

	c.Locals(scopeKey, scope)
	return c.Next()
}

// ScopeFromContext retrieves the authenticated scope.
func ScopeFromContext(c *fiber.Ctx) (*session.Scope, bool) {
	val := c.Locals(scopeKey)
	if val == nil {
		return nil, false
	}
	scope, ok := val.(*session.Scope)
	return scope, ok
}
