package model

import "time"

// Roles supplied by the external auth layer.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleSales    = "sales"
)

// StaffRoles receive operational notifications (new orders, inventory
// alerts, cancellations).
var StaffRoles = []string{RoleAdmin, RoleSales}

// User is the minimal account record this core needs: identity, role,
// and when the account was created. Authentication happens elsewhere.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Identity is the {id, role} pair consumed from the auth boundary.
type Identity struct {
	ID   string
	Role string
}

// IsStaff reports whether the identity belongs to staff.
func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleSales
}
