package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Customer mirrors the 'customers' table: the retailer's client registry,
// maintained by the back office independently of storefront user accounts.
type Customer struct {
	ID        uint64
	Name      string
	Email     string
	Phone     string
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CustomerRepo struct{ DB *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{DB: db} }

const customerCols = "id,name,email,phone,address,notes,created_at,updated_at"

// Create inserts a customer and populates the generated ID.
func (r *CustomerRepo) Create(ctx context.Context, c *Customer) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO customers (name,email,phone,address,notes) VALUES (?,?,?,?,?)",
		c.Name, c.Email, c.Phone, c.Address, c.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a single customer.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (Customer, error) {
	var c Customer
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+customerCols+" FROM customers WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// List returns customers ordered by name, optionally filtered by a
// case-insensitive name/email substring.
func (r *CustomerRepo) List(ctx context.Context, search string) ([]Customer, error) {
	q := "SELECT " + customerCols + " FROM customers"
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		q += " WHERE name LIKE ? OR email LIKE ?"
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	q += " ORDER BY name"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites all mutable fields of a customer.
func (r *CustomerRepo) Update(ctx context.Context, c *Customer) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE customers SET name=?,email=?,phone=?,address=?,notes=? WHERE id=?",
		c.Name, c.Email, c.Phone, c.Address, c.Notes, c.ID)
	return err
}

// Delete removes a customer.
func (r *CustomerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM customers WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
