package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Product mirrors the 'products' table. Type is the extinguishing agent
// class (powder, foam, co2, water) and Capacity a free-form label such as
// "6kg" or "9l". Prices are stored in cents.
type Product struct {
	ID          uint64
	Name        string
	Type        string
	Capacity    string
	PriceCents  uint32
	Description string
	SupplierID  *uint64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productCols = "id,name,type,capacity,price_cents,description,supplier_id,is_active,created_at,updated_at"

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Capacity, &p.PriceCents,
		&p.Description, &p.SupplierID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a product and populates the generated ID.
func (r *ProductRepo) Create(ctx context.Context, p *Product) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO products (name,type,capacity,price_cents,description,supplier_id,is_active) VALUES (?,?,?,?,?,?,?)",
		p.Name, p.Type, p.Capacity, p.PriceCents, p.Description, p.SupplierID, p.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a single product.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListActive returns the public catalog: active products only, ordered by
// name. An optional type filter narrows to one agent class.
func (r *ProductRepo) ListActive(ctx context.Context, typ string) ([]Product, error) {
	q := "SELECT " + productCols + " FROM products WHERE is_active=1"
	args := []any{}
	if typ = strings.TrimSpace(typ); typ != "" {
		q += " AND type=?"
		args = append(args, typ)
	}
	q += " ORDER BY name"
	return r.list(ctx, q, args...)
}

// ListAll returns every product including inactive ones. Admin console only.
func (r *ProductRepo) ListAll(ctx context.Context) ([]Product, error) {
	return r.list(ctx, "SELECT "+productCols+" FROM products ORDER BY id DESC")
}

func (r *ProductRepo) list(ctx context.Context, q string, args ...any) ([]Product, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites all mutable fields of a product.
func (r *ProductRepo) Update(ctx context.Context, p *Product) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE products SET name=?,type=?,capacity=?,price_cents=?,description=?,supplier_id=?,is_active=? WHERE id=?",
		p.Name, p.Type, p.Capacity, p.PriceCents, p.Description, p.SupplierID, p.IsActive, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is also 0 when nothing changed; confirm existence.
		if _, gerr := r.GetByID(ctx, p.ID); gerr != nil {
			return gerr
		}
	}
	return nil
}

// Delete removes a product. Products referenced by quote items are kept
// for history and reported as a conflict instead.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1451") { // FK restraint
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
