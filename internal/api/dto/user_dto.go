package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// SessionResponse describes the authenticated caller.
type SessionResponse struct {
	UserID               int64           `json:"user_id"`
	UserName             string          `json:"user_name"`
	Role                 domain.UserRole `json:"role"`
	DepartmentID         *int64          `json:"department_id,omitempty"`
	ManagedDepartmentIDs []int64         `json:"managed_department_ids,omitempty"`
}

// UserRequest is the admin create/update payload.
type UserRequest struct {
	UserName             string  `json:"user_name"`
	Password             string  `json:"password"`
	Role                 string  `json:"role"`
	DepartmentID         *int64  `json:"department_id,omitempty"`
	ManagedDepartmentIDs []int64 `json:"managed_department_ids,omitempty"`
	CanManageDeptTickets bool    `json:"can_manage_dept_tickets"`
	IsActive             bool    `json:"is_active"`
}

// UserResponse describes one account.
type UserResponse struct {
	ID                   int64           `json:"id"`
	UserName             string          `json:"user_name"`
	Role                 domain.UserRole `json:"role"`
	DepartmentID         *int64          `json:"department_id,omitempty"`
	ManagedDepartmentIDs []int64         `json:"managed_department_ids,omitempty"`
	CanManageDeptTickets bool            `json:"can_manage_dept_tickets"`
	IsActive             bool            `json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
}
