// Package policy decides which caller may perform which action. Every
// mutating handler and service asks Can instead of inspecting role flags.
package policy

import "github.com/google/uuid"

// Action names something a caller may attempt.
type Action string

const (
	MarkReceived Action = "order.mark_received"
	MarkPaid     Action = "order.mark_paid"
	CancelOrder  Action = "order.cancel"
	DeleteOrder  Action = "order.delete"
	ViewAdmin    Action = "admin.view"
	ManageUsers  Action = "admin.manage_users"
)

// Role is the coarse role derived from a subject's flags.
type Role string

const (
	RoleAnonymous  Role = "anonymous"
	RoleCustomer   Role = "customer"
	RoleStaff      Role = "staff"
	RoleSuperAdmin Role = "super_admin"
)

// Subject is the authenticated caller. A nil *Subject is anonymous.
type Subject struct {
	UserID      uuid.UUID
	Username    string
	IsStaff     bool
	IsSuperuser bool
}

// Role derives the caller's role. Superuser wins over staff.
func (s *Subject) Role() Role {
	switch {
	case s == nil:
		return RoleAnonymous
	case s.IsSuperuser:
		return RoleSuperAdmin
	case s.IsStaff:
		return RoleStaff
	default:
		return RoleCustomer
	}
}

// grants lists the roles allowed for each action.
var grants = map[Action][]Role{
	MarkReceived: {RoleStaff, RoleSuperAdmin},
	MarkPaid:     {RoleStaff, RoleSuperAdmin},
	CancelOrder:  {RoleStaff, RoleSuperAdmin},
	DeleteOrder:  {RoleSuperAdmin},
	ViewAdmin:    {RoleSuperAdmin},
	ManageUsers:  {RoleSuperAdmin},
}

// Can reports whether s may perform a. Unknown actions are denied.
func Can(s *Subject, a Action) bool {
	role := s.Role()
	for _, r := range grants[a] {
		if r == role {
			return true
		}
	}
	return false
}
