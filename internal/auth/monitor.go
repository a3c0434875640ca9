package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/gateway"
)

// criticalFailureThreshold is how many consecutive inconsistent checks it
// takes before the monitor raises the critical signal.
const criticalFailureThreshold = 3

// SessionFetcher is the single gateway call the monitor needs.
type SessionFetcher interface {
	GetSession(ctx context.Context) (*gateway.Session, error)
}

// StateSource publishes the resolver's current snapshot.
type StateSource interface {
	State() StateView
}

// KnownGood is the last (user, role) pair the monitor observed in a fully
// consistent check.
type KnownGood struct {
	UserID uint64
	Role   Role
}

// Monitor periodically cross-checks the resolver's published state against
// the backend's ground-truth session. It observes and reports: it never
// signs the user out or rewrites the resolver's state. Its one repair path
// is a cheap role re-query when the only inconsistency is a missing role.
type Monitor struct {
	sessions SessionFetcher
	roles    RoleStore
	source   StateSource
	log      *zap.Logger

	mu       sync.Mutex
	failures int
	critical bool
	lastGood *KnownGood
}

func NewMonitor(sessions SessionFetcher, roles RoleStore, source StateSource, log *zap.Logger) *Monitor {
	return &Monitor{sessions: sessions, roles: roles, source: source, log: log}
}

// Check performs one consistency pass. It is scheduled on a fixed cadence
// by the shared scheduler but can be invoked directly (tests do).
func (m *Monitor) Check(ctx context.Context) {
	st := m.source.State()

	sess, err := m.sessions.GetSession(ctx)
	if err != nil {
		m.fail("session fetch failed", zap.Error(err))
		return
	}

	switch {
	case st.IsAuthenticated() && sess == nil:
		// The session disappeared without a sign-out event reaching the
		// resolver.
		m.fail("state claims authenticated but backend has no session",
			zap.Uint64("user_id", st.UserID))

	case sess != nil && !st.IsAuthenticated():
		// The resolver has not caught up with a live session yet.
		m.fail("backend has a session but state is unauthenticated",
			zap.Uint64("session_user_id", sess.UserID))

	case sess != nil && st.IsAuthenticated() && st.Role == RoleNone:
		// Narrow repair: re-query the role table directly. This does not
		// go through the full change handler; if the row is there the
		// check counts as consistent, otherwise it is a failure like the
		// others.
		raw, rerr := m.roles.RoleFor(ctx, st.UserID)
		if rerr != nil || raw == "" {
			m.fail("authenticated state has no role and re-query found none",
				zap.Uint64("user_id", st.UserID), zap.Error(rerr))
			return
		}
		role, perr := ParseRole(raw)
		if perr != nil || role == RoleNone {
			m.fail("role re-query returned an unusable value",
				zap.Uint64("user_id", st.UserID), zap.String("value", raw))
			return
		}
		m.log.Info("role repair succeeded",
			zap.Uint64("user_id", st.UserID), zap.String("role", role.String()))
		m.good(KnownGood{UserID: st.UserID, Role: role})

	case sess != nil && st.IsAuthenticated():
		// Fully consistent: session present, state authenticated, role
		// resolved.
		m.good(KnownGood{UserID: st.UserID, Role: st.Role})

	default:
		// Both sides agree there is no session. Benign, but not the fully
		// consistent state that resets the failure counter.
	}
}

func (m *Monitor) fail(msg string, fields ...zap.Field) {
	m.mu.Lock()
	m.failures++
	n := m.failures
	turnedCritical := false
	if n >= criticalFailureThreshold && !m.critical {
		m.critical = true
		turnedCritical = true
	}
	m.mu.Unlock()

	m.log.Warn(msg, append(fields, zap.Int("consecutive_failures", n))...)
	if turnedCritical {
		// Observability hook only; no automatic recovery is defined.
		m.log.Error("auth health critical: repeated state divergence",
			zap.Int("consecutive_failures", n))
	}
}

func (m *Monitor) good(kg KnownGood) {
	m.mu.Lock()
	m.failures = 0
	m.critical = false
	m.lastGood = &kg
	m.mu.Unlock()
}

// ConsecutiveFailures returns the current failure streak.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// Critical reports whether the failure streak reached the critical
// threshold without an intervening consistent check.
func (m *Monitor) Critical() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.critical
}

// LastKnownGood returns the most recent fully consistent (user, role) pair.
func (m *Monitor) LastKnownGood() (KnownGood, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastGood == nil {
		return KnownGood{}, false
	}
	return *m.lastGood, true
}
