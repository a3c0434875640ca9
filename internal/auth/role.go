// Package auth resolves who the current user is and what they are allowed
// to do.  It owns the closed Role enumeration, the session/role resolver
// that turns backend session events into an authorization snapshot, and the
// health monitor that cross-checks that snapshot against the backend.
package auth

import (
	"errors"
	"strings"
)

// Role is the closed authorization enumeration. It is decoded explicitly
// from the role table; unknown strings are rejected rather than passed
// through, so a typo in the table degrades to RoleNone instead of granting
// an accidental privilege.
type Role uint8

const (
	RoleNone Role = iota
	RoleUser
	RoleSeller
	RoleAdmin
)

// ErrUnknownRole is returned by ParseRole for any string outside the
// enumeration.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole decodes a role-table value into a Role. The empty string maps
// to RoleNone without error since an absent role is a legitimate state.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return RoleNone, nil
	case "user":
		return RoleUser, nil
	case "seller":
		return RoleSeller, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleNone, ErrUnknownRole
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleSeller:
		return "seller"
	case RoleAdmin:
		return "admin"
	}
	return "none"
}
