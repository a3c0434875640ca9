// Package queue defines message payloads exchanged over the message broker.
package queue

// reminderDueQueueName is the durable queue carrying due renewal reminders.
const reminderDueQueueName = "reminder.due"

// ReminderDueEvent is published when a renewal reminder's date has passed
// and the customer should be contacted. It carries enough contact detail
// for downstream consumers to send the notification without querying the
// primary database.
type ReminderDueEvent struct {
	ReminderID    uint64 `json:"reminder_id"`
	QuoteID       uint64 `json:"quote_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
	ReminderDate  string `json:"reminder_date"`
	RenewalDate   string `json:"renewal_date"`
	Notes         string `json:"notes,omitempty"`
}
