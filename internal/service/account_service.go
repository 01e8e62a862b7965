package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AccountService handles login, logout and administration of accounts.
type AccountService struct {
	store      repository.Store
	sessions   *session.Store
	bcryptCost int
	logger     *zap.Logger
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	Store      repository.Store
	Sessions   *session.Store
	BcryptCost int
	Logger     *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	return &AccountService{
		store:      deps.Store,
		sessions:   deps.Sessions,
		bcryptCost: deps.BcryptCost,
		logger:     deps.Logger,
	}
}

// UserInput is the admin-facing create/update payload. Role-irrelevant
// fields are ignored: only Users carry a department and the capability
// flag, only Managers carry a managed-department set.
type UserInput struct {
	UserName             string
	Password             string
	Role                 domain.UserRole
	DepartmentID         *int64
	ManagedDepartmentIDs []int64
	CanManageDeptTickets bool
	IsActive             bool
}

// Login verifies credentials and materializes the caller's authorization
// scope into a new session. Manager department sets are resolved here,
// once, and ride the session until logout.
func (s *AccountService) Login(ctx context.Context, userName, password string) (*session.Scope, string, error) {
	user, err := s.store.Users().GetByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewValidationError("invalid username or password", nil)
		}
		return nil, "", apperrors.MapError(err)
	}
	if !user.IsActive || auth.ComparePassword(user.PasswordHash, password) != nil {
		return nil, "", apperrors.NewValidationError("invalid username or password", nil)
	}

	scope := session.Scope{
		UserID:   user.ID,
		UserName: user.UserName,
		Role:     user.Role,
	}
	switch user.Role {
	case domain.RoleUser:
		scope.DepartmentID = user.DepartmentID
	case domain.RoleManager:
		ids, err := s.store.Users().ListManagedDepartmentIDs(ctx, user.ID)
		if err != nil {
			return nil, "", apperrors.MapError(err)
		}
		scope.ManagerDepartmentIDs = ids
	}

	sessionID, err := s.sessions.Create(ctx, scope)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return &scope, sessionID, nil
}

// Logout drops the session. Unknown ids are a no-op.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// CreateUser provisions an account with role-conditional fields.
func (s *AccountService) CreateUser(ctx context.Context, scope *session.Scope, input UserInput) (*domain.AppUser, error) {
	if !scope.IsAdmin() {
		return nil, apperrors.NewForbidden()
	}
	if err := validateUserInput(input, true); err != nil {
		return nil, err
	}

	existing, err := s.store.Users().GetByUserName(ctx, input.UserName)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if existing != nil {
		return nil, apperrors.NewValidationError("username is already taken", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.AppUser{
		UserName:     strings.TrimSpace(input.UserName),
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     input.IsActive,
	}
	if input.Role == domain.RoleUser {
		user.DepartmentID = input.DepartmentID
		user.CanManageDeptTickets = input.CanManageDeptTickets
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		if input.Role == domain.RoleManager {
			return tx.Users().ReplaceManagedDepartments(ctx, user.ID, input.ManagedDepartmentIDs)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user, nil
}

// UpdateUser rewrites an account. An empty password keeps the stored hash;
// a manager's department links are replaced wholesale.
func (s *AccountService) UpdateUser(ctx context.Context, scope *session.Scope, userID int64, input UserInput) (*domain.AppUser, error) {
	if !scope.IsAdmin() {
		return nil, apperrors.NewForbidden()
	}
	if err := validateUserInput(input, false); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}

	if !strings.EqualFold(user.UserName, input.UserName) {
		existing, err := s.store.Users().GetByUserName(ctx, input.UserName)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		if existing != nil {
			return nil, apperrors.NewValidationError("username is already taken", nil)
		}
	}

	user.UserName = strings.TrimSpace(input.UserName)
	user.Role = input.Role
	user.IsActive = input.IsActive
	user.DepartmentID = nil
	user.CanManageDeptTickets = false
	if input.Role == domain.RoleUser {
		user.DepartmentID = input.DepartmentID
		user.CanManageDeptTickets = input.CanManageDeptTickets
	}
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		user.PasswordHash = hash
	}

	managed := input.ManagedDepartmentIDs
	if input.Role != domain.RoleManager {
		managed = nil
	}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		return tx.Users().ReplaceManagedDepartments(ctx, user.ID, managed)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListUsers returns accounts, optionally filtered by a username substring.
func (s *AccountService) ListUsers(ctx context.Context, scope *session.Scope, search string) ([]domain.AppUser, error) {
	if !scope.IsAdmin() {
		return nil, apperrors.NewForbidden()
	}
	users, err := s.store.Users().List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// GetUser loads one account for the admin edit view.
func (s *AccountService) GetUser(ctx context.Context, scope *session.Scope, userID int64) (*domain.AppUser, []int64, error) {
	if !scope.IsAdmin() {
		return nil, nil, apperrors.NewForbidden()
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	var managed []int64
	if user.Role == domain.RoleManager {
		managed, err = s.store.Users().ListManagedDepartmentIDs(ctx, userID)
		if err != nil {
			return nil, nil, apperrors.MapError(err)
		}
	}
	return user, managed, nil
}

func validateUserInput(input UserInput, requirePassword bool) error {
	if strings.TrimSpace(input.UserName) == "" {
		return apperrors.NewValidationError("username is required", nil)
	}
	if requirePassword && input.Password == "" {
		return apperrors.NewValidationError("password is required", nil)
	}
	switch input.Role {
	case domain.RoleUser:
		if input.DepartmentID == nil {
			return apperrors.NewValidationError("a department is required for the User role", nil)
		}
	case domain.RoleManager:
		if len(input.ManagedDepartmentIDs) == 0 {
			return apperrors.NewValidationError("at least one managed department is required for the Manager role", nil)
		}
	case domain.RoleAdmin:
	default:
		return apperrors.NewValidationError("unknown role", nil)
	}
	return nil
}
