package auth

// StateView is the read-only snapshot of the resolved authentication state.
// Consumers (route guards, handlers, the health monitor) only ever see this
// value type; the mutable state behind it belongs exclusively to the
// Resolver, which keeps the single-writer contract a matter of types rather
// than convention.
type StateView struct {
	UserID  uint64 // 0 means no authenticated user
	Role    Role
	Loading bool // true while a role resolution is in flight
}

// IsAuthenticated is strictly "a user id is present"; the role may still be
// RoleNone for an authenticated user with no privileges.
func (v StateView) IsAuthenticated() bool {
	return v.UserID != 0
}
