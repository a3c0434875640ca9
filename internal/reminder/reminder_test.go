package reminder_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/queue"
	"github.com/firemart/storefront/internal/reminder"
	"github.com/firemart/storefront/internal/repository"
)

func TestScheduleFromApproval(t *testing.T) {
	approved := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	remindAt, renewAt := reminder.ScheduleFromApproval(approved)

	assert.Equal(t, time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), renewAt)
	assert.Equal(t, time.Date(2025, 12, 15, 10, 30, 0, 0, time.UTC), remindAt)
}

func TestFromApprovedQuote(t *testing.T) {
	approved := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	q := repository.Quote{
		ID:            42,
		CustomerName:  "Acme Warehousing",
		CustomerEmail: "ops@acme.test",
		CustomerPhone: "555-0101",
	}

	m := reminder.FromApprovedQuote(q, approved)

	assert.EqualValues(t, 42, m.QuoteID)
	assert.Equal(t, "Acme Warehousing", m.CustomerName)
	assert.Equal(t, repository.ReminderStatusPending, m.Status)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), m.RenewalDate)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), m.ReminderDate)
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{repository.ReminderStatusPending, repository.ReminderStatusSent},
		{repository.ReminderStatusPending, repository.ReminderStatusCancelled},
		{repository.ReminderStatusSent, repository.ReminderStatusCompleted},
		{repository.ReminderStatusSent, repository.ReminderStatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, reminder.CanTransition(tc[0], tc[1]), "%s -> %s", tc[0], tc[1])
	}

	denied := [][2]string{
		{repository.ReminderStatusPending, repository.ReminderStatusCompleted},
		{repository.ReminderStatusSent, repository.ReminderStatusPending},
		{repository.ReminderStatusCompleted, repository.ReminderStatusCancelled},
		{repository.ReminderStatusCancelled, repository.ReminderStatusPending},
		{repository.ReminderStatusCompleted, repository.ReminderStatusSent},
	}
	for _, tc := range denied {
		assert.False(t, reminder.CanTransition(tc[0], tc[1]), "%s -> %s", tc[0], tc[1])
	}
}

type MockDueStore struct {
	mock.Mock
}

func (m *MockDueStore) ListDue(ctx context.Context, now time.Time) ([]repository.Reminder, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Reminder), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishReminderDue(ctx context.Context, ev queue.ReminderDueEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func TestPollDue_PublishesEachDueReminder(t *testing.T) {
	store := new(MockDueStore)
	pub := new(MockPublisher)
	due := []repository.Reminder{
		{ID: 1, QuoteID: 10, CustomerName: "A", Status: repository.ReminderStatusPending},
		{ID: 2, QuoteID: 11, CustomerName: "B", Status: repository.ReminderStatusPending},
	}
	store.On("ListDue", mock.Anything, mock.Anything).Return(due, nil)
	pub.On("PublishReminderDue", mock.Anything, mock.Anything).Return(nil)

	p := reminder.NewPoller(store, pub, nil, zap.NewNop())
	p.PollDue(context.Background())

	pub.AssertNumberOfCalls(t, "PublishReminderDue", 2)
}

func TestPollDue_FetchFailureIsSwallowed(t *testing.T) {
	store := new(MockDueStore)
	pub := new(MockPublisher)
	store.On("ListDue", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	p := reminder.NewPoller(store, pub, nil, zap.NewNop())
	require.NotPanics(t, func() { p.PollDue(context.Background()) })

	pub.AssertNotCalled(t, "PublishReminderDue", mock.Anything, mock.Anything)
}

func TestPollDue_PublishFailureDoesNotStopTheBatch(t *testing.T) {
	store := new(MockDueStore)
	pub := new(MockPublisher)
	due := []repository.Reminder{{ID: 1}, {ID: 2}}
	store.On("ListDue", mock.Anything, mock.Anything).Return(due, nil)
	pub.On("PublishReminderDue", mock.Anything, mock.MatchedBy(func(ev queue.ReminderDueEvent) bool {
		return ev.ReminderID == 1
	})).Return(errors.New("broker down"))
	pub.On("PublishReminderDue", mock.Anything, mock.MatchedBy(func(ev queue.ReminderDueEvent) bool {
		return ev.ReminderID == 2
	})).Return(nil)

	p := reminder.NewPoller(store, pub, nil, zap.NewNop())
	p.PollDue(context.Background())

	pub.AssertNumberOfCalls(t, "PublishReminderDue", 2)
}
