// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios without string
// matching on driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user registration collides with an
// existing account email. Handlers should translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when an update or delete cannot proceed because
// of dependent state, such as deleting a product that is referenced by
// quote items. Handlers should translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
