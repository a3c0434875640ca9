package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Reminder statuses. pending -> sent -> completed is the expected path,
// with cancelled reachable from any non-terminal state. The table does not
// enforce transition order; see the reminder package for the advisory rules.
const (
	ReminderStatusPending   = "pending"
	ReminderStatusSent      = "sent"
	ReminderStatusCompleted = "completed"
	ReminderStatusCancelled = "cancelled"
)

// Reminder mirrors the 'reminders' table: one annual-renewal follow-up per
// approved quote. reminder_date is when the retailer should reach out,
// renewal_date when the extinguisher service is actually due.
type Reminder struct {
	ID            uint64
	QuoteID       uint64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ReminderDate  time.Time
	RenewalDate   time.Time
	Status        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ReminderRepo struct{ db *sql.DB }

func NewReminderRepo(db *sql.DB) *ReminderRepo { return &ReminderRepo{db: db} }

const reminderCols = "id,quote_id,customer_name,customer_email,customer_phone,reminder_date,renewal_date,status,notes,created_at,updated_at"

func scanReminder(row interface{ Scan(...any) error }) (Reminder, error) {
	var m Reminder
	err := row.Scan(&m.ID, &m.QuoteID, &m.CustomerName, &m.CustomerEmail, &m.CustomerPhone,
		&m.ReminderDate, &m.RenewalDate, &m.Status, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts a reminder and populates the generated ID.
func (r *ReminderRepo) Create(ctx context.Context, m *Reminder) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reminders (quote_id, customer_name, customer_email, customer_phone, reminder_date, renewal_date, status, notes) VALUES (?,?,?,?,?,?,?,?)",
		m.QuoteID, m.CustomerName, m.CustomerEmail, m.CustomerPhone, m.ReminderDate, m.RenewalDate, m.Status, m.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID fetches a single reminder.
func (r *ReminderRepo) GetByID(ctx context.Context, id uint64) (Reminder, error) {
	m, err := scanReminder(r.db.QueryRowContext(ctx,
		"SELECT "+reminderCols+" FROM reminders WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

// ListAll returns reminders soonest first, optionally filtered by status.
func (r *ReminderRepo) ListAll(ctx context.Context, status string) ([]Reminder, error) {
	q := "SELECT " + reminderCols + " FROM reminders"
	args := []any{}
	if status = strings.TrimSpace(status); status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY reminder_date"
	return r.list(ctx, q, args...)
}

// ListBySeller returns reminders whose underlying quote belongs to the
// seller (created by them or matching their account email).
func (r *ReminderRepo) ListBySeller(ctx context.Context, userID uint64, email string) ([]Reminder, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.list(ctx,
		"SELECT r.id,r.quote_id,r.customer_name,r.customer_email,r.customer_phone,r.reminder_date,r.renewal_date,r.status,r.notes,r.created_at,r.updated_at "+
			"FROM reminders r JOIN quotes q ON q.id = r.quote_id "+
			"WHERE q.created_by=? OR (q.customer_email=? AND ?<>'') ORDER BY r.reminder_date",
		userID, email, email)
}

// ListDue returns pending reminders whose reminder_date has passed.
func (r *ReminderRepo) ListDue(ctx context.Context, now time.Time) ([]Reminder, error) {
	return r.list(ctx,
		"SELECT "+reminderCols+" FROM reminders WHERE status=? AND reminder_date<=? ORDER BY reminder_date",
		ReminderStatusPending, now.UTC())
}

func (r *ReminderRepo) list(ctx context.Context, q string, args ...any) ([]Reminder, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		m, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateStatus sets a reminder's status. Transition validity is advisory
// and checked at the handler layer; the table accepts any enum value.
func (r *ReminderRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reminders SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
	}
	return nil
}

// MarkSent flips a pending reminder to sent. The status guard makes the
// operation idempotent under duplicate queue deliveries.
func (r *ReminderRepo) MarkSent(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reminders SET status=? WHERE id=? AND status=?",
		ReminderStatusSent, id, ReminderStatusPending)
	return err
}

// UpdateNotes replaces the free-form notes on a reminder.
func (r *ReminderRepo) UpdateNotes(ctx context.Context, id uint64, notes string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE reminders SET notes=? WHERE id=?", notes, id)
	return err
}

// Delete removes a reminder. Admin action only.
func (r *ReminderRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reminders WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
