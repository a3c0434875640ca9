// Package reminder owns the renewal-reminder lifecycle: the date math that
// schedules a reminder when a quote is approved, the advisory status state
// machine, and the poller that feeds due reminders to the notification
// queue.
package reminder

import (
	"time"

	"github.com/firemart/storefront/internal/repository"
)

// ScheduleFromApproval computes the reminder dates for a quote approved at
// the given time: the renewal falls exactly one year out, and the reminder
// fires one month before the renewal.
func ScheduleFromApproval(approvedAt time.Time) (reminderDate, renewalDate time.Time) {
	renewalDate = approvedAt.AddDate(1, 0, 0)
	reminderDate = renewalDate.AddDate(0, -1, 0)
	return reminderDate, renewalDate
}

// FromApprovedQuote builds the single renewal reminder spawned by a quote's
// approval. One reminder per approval event; re-approving an already
// approved quote must not create another (the caller checks the previous
// status).
func FromApprovedQuote(q repository.Quote, approvedAt time.Time) repository.Reminder {
	remindAt, renewAt := ScheduleFromApproval(approvedAt)
	return repository.Reminder{
		QuoteID:       q.ID,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		CustomerPhone: q.CustomerPhone,
		ReminderDate:  remindAt,
		RenewalDate:   renewAt,
		Status:        repository.ReminderStatusPending,
	}
}

// CanTransition reports whether a status change follows the advisory
// lifecycle: pending -> sent -> completed, with cancelled reachable from
// any non-terminal state. The backend table accepts anything; this is the
// client-layer rule the status selector enforces.
func CanTransition(from, to string) bool {
	switch from {
	case repository.ReminderStatusPending:
		return to == repository.ReminderStatusSent || to == repository.ReminderStatusCancelled
	case repository.ReminderStatusSent:
		return to == repository.ReminderStatusCompleted || to == repository.ReminderStatusCancelled
	}
	return false
}
