// Package entity contains the core business objects of the project.
package entity

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidRole is returned when a role string is not one of the known roles.
var ErrInvalidRole = errors.New("invalid role")

// Role is the closed set of roles a user can hold. The zero value is not a valid role.
type Role uint8

const (
	roleUnknown Role = iota
	// RoleUser is the standard, non-privileged role.
	RoleUser
	// RoleAdmin grants access to the admin area.
	RoleAdmin
)

const (
	roleUserName  = "user"
	roleAdminName = "admin"
)

// ParseRole converts the stored representation back into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case roleUserName:
		return RoleUser, nil
	case roleAdminName:
		return RoleAdmin, nil
	default:
		return roleUnknown, errors.Wrapf(ErrInvalidRole, "%q", s)
	}
}

// String returns the stored representation of the Role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return roleUserName
	case RoleAdmin:
		return roleAdminName
	case roleUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	case roleUnknown:
		return false
	default:
		return false
	}
}

// CanAccessAdmin reports whether the role may enter the admin area.
func (r Role) CanAccessAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser, roleUnknown:
		return false
	default:
		return false
	}
}

// Toggle flips between user and admin. Invalid roles are returned unchanged.
func (r Role) Toggle() Role {
	switch r {
	case RoleUser:
		return RoleAdmin
	case RoleAdmin:
		return RoleUser
	case roleUnknown:
		return r
	default:
		return r
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, errors.Wrapf(ErrInvalidRole, "%d", uint8(r))
	}

	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed

	return nil
}
