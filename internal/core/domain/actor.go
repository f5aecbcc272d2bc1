package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// Actor is an already-resolved identity; token issuance happens upstream.
type Actor struct {
	ID   string
	Role Role
}

// MayCancel implements the cancellation capability check: admins may cancel
// any line, managers only lines they own. Non-cancellation transitions are
// granted uniformly to back-office actors and are not checked here.
func (a Actor) MayCancel(line CartLine) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return a.ID == line.ManagerID
	default:
		return false
	}
}
