package session

import "github.com/spec-kit/helpdesk/internal/domain"

// Scope is the typed per-request identity context: role, user identity and
// the role-specific department scope. It is built once at login and carried
// through every workflow and listing operation as an explicit parameter,
// never read from ambient state downstream.
type Scope struct {
	UserID               int64           `json:"user_id"`
	UserName             string          `json:"user_name"`
	Role                 domain.UserRole `json:"role"`
	DepartmentID         *int64          `json:"department_id,omitempty"`
	ManagerDepartmentIDs []int64         `json:"manager_department_ids,omitempty"`
}

// IsUser reports whether the scope belongs to a department user.
func (s *Scope) IsUser() bool { return s.Role == domain.RoleUser }

// IsManager reports whether the scope belongs to a manager.
func (s *Scope) IsManager() bool { return s.Role == domain.RoleManager }

// IsAdmin reports whether the scope belongs to an admin.
func (s *Scope) IsAdmin() bool { return s.Role == domain.RoleAdmin }

// ManagesDepartment reports whether the manager scope covers the given leaf
// department.
func (s *Scope) ManagesDepartment(departmentID int64) bool {
	for _, id := range s.ManagerDepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}
