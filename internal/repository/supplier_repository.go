package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Supplier mirrors the 'suppliers' table.
type Supplier struct {
	ID          uint64
	Name        string
	ContactName string
	Email       string
	Phone       string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SupplierRepo struct{ DB *sql.DB }

func NewSupplierRepo(db *sql.DB) *SupplierRepo { return &SupplierRepo{DB: db} }

const supplierCols = "id,name,contact_name,email,phone,notes,created_at,updated_at"

// Create inserts a supplier and populates the generated ID.
func (r *SupplierRepo) Create(ctx context.Context, s *Supplier) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO suppliers (name,contact_name,email,phone,notes) VALUES (?,?,?,?,?)",
		s.Name, s.ContactName, s.Email, s.Phone, s.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a single supplier.
func (r *SupplierRepo) GetByID(ctx context.Context, id uint64) (Supplier, error) {
	var s Supplier
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+supplierCols+" FROM suppliers WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// List returns all suppliers ordered by name.
func (r *SupplierRepo) List(ctx context.Context) ([]Supplier, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+supplierCols+" FROM suppliers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update rewrites all mutable fields of a supplier.
func (r *SupplierRepo) Update(ctx context.Context, s *Supplier) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE suppliers SET name=?,contact_name=?,email=?,phone=?,notes=? WHERE id=?",
		s.Name, s.ContactName, s.Email, s.Phone, s.Notes, s.ID)
	return err
}

// Delete removes a supplier. Products keep a NULL supplier reference via
// ON DELETE SET NULL, so this never conflicts with the catalog.
func (r *SupplierRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM suppliers WHERE id=?", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
