package domain

import (
	"fmt"
	"time"
)

// Role enumerates caller roles.
type Role string

const (
	RoleCustomer        Role = "customer"
	RoleAdmin           Role = "admin"
	RoleSupportEngineer Role = "support_engineer"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleSupportEngineer, RoleCustomer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleSupportEngineer:
		return true
	}
	return false
}

// UserUIDCounter is the allocator counter backing user uids.
const UserUIDCounter = "user_uid"

// FormatUID renders an allocated counter value as a user uid.
func FormatUID(n int64) string {
	return fmt.Sprintf("UID-%d", n)
}

// User is an account of any role.
type User struct {
	UID          string
	Login        string
	PasswordHash string
	Role         Role
	Name         string
	Phone        string
	Location     string
	CompanyID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
