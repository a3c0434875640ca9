package repository

import (
	"context"
	"database/sql"
)

// RoleRepo reads and writes the user_roles lookup table. A row here is the
// single explicit source of truth for a user's authorization level; a user
// without a row falls back to the resolver's quote-ownership inference.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// RoleFor returns the explicit role string for a user, or "" when no row
// exists. Only genuine query failures produce a non-nil error.
func (r *RoleRepo) RoleFor(ctx context.Context, userID uint64) (string, error) {
	var role string
	err := r.DB.QueryRowContext(ctx,
		"SELECT role FROM user_roles WHERE user_id=? LIMIT 1", userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// Assign sets or replaces a user's explicit role.
func (r *RoleRepo) Assign(ctx context.Context, userID uint64, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role) VALUES (?,?) ON DUPLICATE KEY UPDATE role=VALUES(role)",
		userID, role)
	return err
}

// Remove deletes a user's explicit role row, returning the user to the
// inferred/none path.
func (r *RoleRepo) Remove(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id=?", userID)
	return err
}
