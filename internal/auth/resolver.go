package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/gateway"
)

// SessionAPI is the slice of the backend gateway the resolver drives.
type SessionAPI interface {
	GetSession(ctx context.Context) (*gateway.Session, error)
	RefreshSession(ctx context.Context) (*gateway.Session, error)
	SignOut(ctx context.Context) error
}

// Resolver owns the authoritative authentication state. It reacts to
// session-change events from the gateway, derives the user's role through
// the RoleService, and publishes the result as a StateView. It is the only
// writer of that state.
//
// Concurrency: events may arrive from any goroutine. Two guards order them:
// a dedup guard drops redundant notifications for the session already
// processed, and a generation counter lets a genuinely newer event
// supersede an in-flight resolution: the older resolution's result is
// discarded instead of racing the newer one, so the most recent event
// always wins.
type Resolver struct {
	sessions SessionAPI
	roles    *RoleService
	log      *zap.Logger

	mu         sync.Mutex
	view       StateView
	lastUserID uint64
	hasLast    bool
	generation uint64
	cancel     context.CancelFunc // cancels the in-flight resolution, if any
}

func NewResolver(sessions SessionAPI, roles *RoleService, log *zap.Logger) *Resolver {
	return &Resolver{sessions: sessions, roles: roles, log: log}
}

// State returns the current read-only snapshot.
func (r *Resolver) State() StateView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Bind subscribes the resolver to the gateway's session-change stream.
func (r *Resolver) Bind(events interface {
	OnSessionChange(fn func(gateway.EventKind, *gateway.Session)) gateway.Subscription
}) gateway.Subscription {
	return events.OnSessionChange(func(kind gateway.EventKind, s *gateway.Session) {
		r.HandleSessionChange(context.Background(), s, kind)
	})
}

// Initialize fetches the current session once at startup. A fetch failure
// settles the state as signed out; an existing session flows through the
// normal change handler with the initial-load event kind.
func (r *Resolver) Initialize(ctx context.Context) {
	s, err := r.sessions.GetSession(ctx)
	if err != nil {
		r.log.Warn("initial session fetch failed; starting signed out", zap.Error(err))
		r.clear()
		return
	}
	if s == nil {
		r.clear()
		return
	}
	r.HandleSessionChange(ctx, s, gateway.EventInitialLoad)
}

// HandleSessionChange is the core state transition. With a nil session the
// state is cleared unconditionally. With a session, the role is resolved
// and published unless a newer event supersedes this one first.
func (r *Resolver) HandleSessionChange(ctx context.Context, s *gateway.Session, kind gateway.EventKind) {
	r.mu.Lock()
	// Dedup guard: the backend may re-announce the session it already
	// reported (token refreshes, initial load replays). Only explicit
	// sign-in/out events bypass it.
	if s != nil && r.hasLast && s.UserID == r.lastUserID &&
		kind != gateway.EventSignedIn && kind != gateway.EventSignedOut {
		r.mu.Unlock()
		return
	}

	if s == nil {
		r.generation++
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
		r.view = StateView{}
		r.lastUserID = 0
		r.hasLast = false
		r.mu.Unlock()
		return
	}

	// Supersede any resolution still in flight: bump the generation so its
	// completion is discarded, and cancel its context so it stops early.
	r.generation++
	gen := r.generation
	if r.cancel != nil {
		r.cancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.lastUserID = s.UserID
	r.hasLast = true
	r.view = StateView{UserID: s.UserID, Role: RoleNone, Loading: true}
	r.mu.Unlock()

	role := r.roles.Resolve(rctx, s.UserID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		// A newer event owns the state now; drop this result.
		return
	}
	cancel()
	r.cancel = nil
	// Loading always settles to false here, success or not: a failed
	// lookup resolved to RoleNone above rather than erroring.
	r.view = StateView{UserID: s.UserID, Role: role, Loading: false}
	r.log.Debug("auth state resolved",
		zap.Uint64("user_id", s.UserID),
		zap.String("role", role.String()),
		zap.String("event", string(kind)))
}

// RefreshAuth forces a fresh session fetch and re-runs the change handler.
// UI surfaces call it to recover from suspected staleness.
func (r *Resolver) RefreshAuth(ctx context.Context) {
	s, err := r.sessions.RefreshSession(ctx)
	if err != nil {
		r.log.Warn("manual session refresh failed", zap.Error(err))
		s = nil
	}
	r.HandleSessionChange(ctx, s, gateway.EventManualRefresh)
}

// SignOut requests backend sign-out and clears the state regardless of how
// the backend call fares, so the caller never appears authenticated after
// asking to leave.
func (r *Resolver) SignOut(ctx context.Context) {
	if err := r.sessions.SignOut(ctx); err != nil {
		r.log.Warn("backend sign-out failed; clearing local state anyway", zap.Error(err))
	}
	r.clear()
}

func (r *Resolver) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.view = StateView{}
	r.lastUserID = 0
	r.hasLast = false
}
