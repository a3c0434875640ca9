package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Quote statuses. The lifecycle is pending -> approved/rejected, with
// completed and cancelled as terminal bookkeeping states. Approval is the
// transition that spawns a renewal reminder, so callers of UpdateStatus
// get the previous status back to detect it.
const (
	QuoteStatusPending   = "pending"
	QuoteStatusApproved  = "approved"
	QuoteStatusRejected  = "rejected"
	QuoteStatusCompleted = "completed"
	QuoteStatusCancelled = "cancelled"
)

// QuoteRepo provides CRUD operations for quotes and their line items.
// A quote groups the items a customer asked to be priced; items are stored
// in the quote_items table. All timestamp fields are stored in UTC.
type QuoteRepo struct {
	db *sql.DB
}

// NewQuoteRepo returns a new QuoteRepo bound to the given database.
func NewQuoteRepo(db *sql.DB) *QuoteRepo { return &QuoteRepo{db: db} }

// Quote mirrors the schema of the quotes table. CreatedBy is the storefront
// account that submitted the request; it is nullable because back-office
// staff may record quotes taken over the phone.
type Quote struct {
	ID            uint64
	Reference     string
	CreatedBy     *uint64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Status        string
	TotalCents    uint64
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuoteItem mirrors the quote_items table. Name, type and price are copied
// from the product at submission time so later catalog edits do not rewrite
// history.
type QuoteItem struct {
	ID         uint64
	QuoteID    uint64
	ProductID  uint64
	Name       string
	Type       string
	PriceCents uint32
	Quantity   uint32
}

// Create inserts a quote and its items in one transaction. The generated
// quote ID is populated on the provided record.
func (r *QuoteRepo) Create(ctx context.Context, q *Quote, items []QuoteItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	q.CustomerEmail = strings.ToLower(strings.TrimSpace(q.CustomerEmail))
	res, err := tx.ExecContext(ctx,
		"INSERT INTO quotes (reference, created_by, customer_name, customer_email, customer_phone, status, total_cents, notes) VALUES (?,?,?,?,?,?,?,?)",
		q.Reference, q.CreatedBy, q.CustomerName, q.CustomerEmail, q.CustomerPhone, q.Status, q.TotalCents, q.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)

	for i := range items {
		items[i].QuoteID = q.ID
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO quote_items (quote_id, product_id, name, type, price_cents, quantity) VALUES (?,?,?,?,?,?)",
			items[i].QuoteID, items[i].ProductID, items[i].Name, items[i].Type, items[i].PriceCents, items[i].Quantity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const quoteCols = "id,reference,created_by,customer_name,customer_email,customer_phone,status,total_cents,notes,created_at,updated_at"

func scanQuote(row interface{ Scan(...any) error }) (Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.Reference, &q.CreatedBy, &q.CustomerName, &q.CustomerEmail,
		&q.CustomerPhone, &q.Status, &q.TotalCents, &q.Notes, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// GetByID fetches a quote with its items.
func (r *QuoteRepo) GetByID(ctx context.Context, id uint64) (Quote, []QuoteItem, error) {
	q, err := scanQuote(r.db.QueryRowContext(ctx,
		"SELECT "+quoteCols+" FROM quotes WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return q, nil, ErrNotFound
	}
	if err != nil {
		return q, nil, err
	}
	items, err := r.itemsFor(ctx, id)
	return q, items, err
}

func (r *QuoteRepo) itemsFor(ctx context.Context, quoteID uint64) ([]QuoteItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,quote_id,product_id,name,type,price_cents,quantity FROM quote_items WHERE quote_id=? ORDER BY id",
		quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QuoteItem
	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.ProductID, &it.Name, &it.Type, &it.PriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListAll returns quotes newest first, optionally filtered by status.
func (r *QuoteRepo) ListAll(ctx context.Context, status string) ([]Quote, error) {
	q := "SELECT " + quoteCols + " FROM quotes"
	args := []any{}
	if status = strings.TrimSpace(status); status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY id DESC"
	return r.list(ctx, q, args...)
}

// ListBySeller returns quotes a seller may see: rows they created plus rows
// whose customer email matches their account email.
func (r *QuoteRepo) ListBySeller(ctx context.Context, userID uint64, email string) ([]Quote, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.list(ctx,
		"SELECT "+quoteCols+" FROM quotes WHERE created_by=? OR (customer_email=? AND ?<>'') ORDER BY id DESC",
		userID, email, email)
}

func (r *QuoteRepo) list(ctx context.Context, q string, args ...any) ([]Quote, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quote
	for rows.Next() {
		qu, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qu)
	}
	return out, rows.Err()
}

// HasQuoteFor reports whether at least one quote was created by the user or
// carries the user's email as customer email. Used by the role resolver's
// seller inference; limited to a single row probe.
func (r *QuoteRepo) HasQuoteFor(ctx context.Context, userID uint64, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM quotes WHERE created_by=? OR (customer_email=? AND ?<>'') LIMIT 1",
		userID, email, email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStatus moves a quote to a new status and returns the status it had
// before. The read and write happen in one transaction with a row lock so
// two concurrent approvals cannot both observe "pending" and spawn two
// renewal reminders.
func (r *QuoteRepo) UpdateStatus(ctx context.Context, id uint64, status string) (previous string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		"SELECT status FROM quotes WHERE id=? FOR UPDATE", id).Scan(&previous)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE quotes SET status=? WHERE id=?", status, id); err != nil {
		return "", err
	}
	return previous, tx.Commit()
}
