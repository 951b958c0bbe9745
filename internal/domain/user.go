package domain

import "time"

// Role enumerates caller capabilities. ADMIN and IT_STAFF share the same
// operational privileges inside the ticket core.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleITStaff Role = "IT_STAFF"
	RoleUser    Role = "USER"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleITStaff, RoleUser:
		return true
	}
	return false
}

// Identity is the acting caller as supplied by the session layer.
type Identity struct {
	ID          string
	DisplayName string
	Role        Role
}

// User is the account record backing an Identity.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity derives the caller view of a user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, DisplayName: u.Name, Role: u.Role}
}
