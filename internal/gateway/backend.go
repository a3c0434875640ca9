package gateway

// backend.go implements the Auth contract over the service's own storage:
// MySQL for accounts, JWT access tokens as the session credential, and a
// single durable Redis slot holding the serialized current session under a
// fixed namespaced key.  Session-change events are fanned out synchronously
// to registered callbacks so the resolver observes sign-in, sign-out and
// refresh in the order they happened.  When Redis is unavailable the slot
// degrades to process memory, which loses the session on restart but keeps
// every other behavior intact.

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/config"
	"github.com/firemart/storefront/internal/repository"
	"github.com/firemart/storefront/internal/utils"
)

// SessionSlotKey is the fixed namespaced key of the durable session slot.
// The version suffix exists so a breaking change to the serialized form can
// simply move to a new key instead of migrating stale payloads.
const SessionSlotKey = "storefront.auth.session.v1"

// resetKeyPrefix namespaces password-reset token hashes in Redis.
const resetKeyPrefix = "storefront.auth.reset.v1:"

// resetTokenTTL bounds how long a password-reset link stays valid.
const resetTokenTTL = time.Hour

// Backend is the concrete backend client.
type Backend struct {
	cfg   config.Config
	users *repository.UserRepo
	rdb   *redis.Client
	log   *zap.Logger

	mu      sync.Mutex
	subs    map[uint64]func(EventKind, *Session)
	nextSub uint64
	memSlot *Session // fallback slot when Redis is down
}

// NewBackend wires the backend client. rdb may be nil; the session slot
// then lives in process memory only.
func NewBackend(cfg config.Config, users *repository.UserRepo, rdb *redis.Client, log *zap.Logger) *Backend {
	return &Backend{
		cfg:   cfg,
		users: users,
		rdb:   rdb,
		log:   log,
		subs:  make(map[uint64]func(EventKind, *Session)),
	}
}

// OnSessionChange registers a callback invoked on every session lifecycle
// event. Callbacks run synchronously on the goroutine that triggered the
// event, preserving event order for the resolver.
func (b *Backend) OnSessionChange(fn func(EventKind, *Session)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	id := b.nextSub
	b.subs[id] = fn
	return &sessionSub{backend: b, id: id}
}

type sessionSub struct {
	backend *Backend
	id      uint64
	once    sync.Once
}

func (s *sessionSub) Unsubscribe() {
	s.once.Do(func() {
		s.backend.mu.Lock()
		delete(s.backend.subs, s.id)
		s.backend.mu.Unlock()
	})
}

func (b *Backend) emit(kind EventKind, s *Session) {
	b.mu.Lock()
	fns := make([]func(EventKind, *Session), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(kind, s)
	}
}

// GetSession returns the current session from the durable slot, or nil when
// no session exists. An expired session is cleared and reported as absent.
func (b *Backend) GetSession(ctx context.Context) (*Session, error) {
	s, err := b.loadSlot(ctx)
	if err != nil {
		return nil, err
	}
	if s != nil && s.Expired() {
		_ = b.clearSlot(ctx)
		return nil, nil
	}
	return s, nil
}

// SignInWithPassword verifies credentials, mints a fresh session, persists
// it to the slot and emits SIGNED_IN.
func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	u, err := b.users.GetByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	s, err := b.mintSession(ctx, u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	b.emit(EventSignedIn, s)
	return s, nil
}

// SignUp creates the account and signs it straight in. redirectURL is where
// the confirmation link would send the browser; account confirmation is not
// enforced here so it is only logged.
func (b *Backend) SignUp(ctx context.Context, email, password, redirectURL string) (*Session, error) {
	uid, err := b.users.Create(ctx, email, password, b.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	if redirectURL != "" {
		b.log.Info("signup confirmation redirect recorded",
			zap.Uint64("user_id", uid), zap.String("redirect_url", redirectURL))
	}
	s, err := b.mintSession(ctx, uid, email)
	if err != nil {
		return nil, err
	}
	b.emit(EventSignedIn, s)
	return s, nil
}

// RefreshSession reissues the credential for the current session and emits
// TOKEN_REFRESHED. When no session is active it returns (nil, nil) so the
// caller can propagate the signed-out state.
func (b *Backend) RefreshSession(ctx context.Context) (*Session, error) {
	cur, err := b.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, nil
	}
	s, err := b.mintSession(ctx, cur.UserID, cur.Email)
	if err != nil {
		return nil, err
	}
	b.emit(EventTokenRefreshed, s)
	return s, nil
}

// ResumeSession re-establishes the session slot for a user whose identity
// was proven out of band (a valid refresh token). It emits TOKEN_REFRESHED
// just like an in-place refresh so the resolver re-derives the role.
func (b *Backend) ResumeSession(ctx context.Context, userID uint64) (*Session, error) {
	u, err := b.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	s, err := b.mintSession(ctx, u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	b.emit(EventTokenRefreshed, s)
	return s, nil
}

// SignOut clears the durable slot and emits SIGNED_OUT. The event carries a
// nil session so subscribers tear their state down.
func (b *Backend) SignOut(ctx context.Context) error {
	err := b.clearSlot(ctx)
	b.emit(EventSignedOut, nil)
	return err
}

// ResetPasswordForEmail stores a short-lived reset token for the account
// and records where the reset link should return the browser. Unknown
// emails are deliberately a silent success so the endpoint cannot be used
// to enumerate accounts.
func (b *Backend) ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error {
	u, err := b.users.GetByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	token := uuid.NewString()
	if b.rdb != nil {
		key := resetKeyPrefix + utils.HashRefreshRaw(token)
		if err := b.rdb.SetEx(ctx, key, u.ID, resetTokenTTL).Err(); err != nil {
			return err
		}
	}
	// The mail integration is out of scope; the token is logged so the
	// reset flow can be driven manually in dev environments.
	b.log.Info("password reset issued",
		zap.Uint64("user_id", u.ID),
		zap.String("redirect_url", redirectURL),
		zap.String("token", token))
	return nil
}

// UserEmail exposes the account email for a user id; the role resolver uses
// it for the quote-ownership inference.
func (b *Backend) UserEmail(ctx context.Context, userID uint64) (string, error) {
	return b.users.EmailFor(ctx, userID)
}

func (b *Backend) mintSession(ctx context.Context, userID uint64, email string) (*Session, error) {
	tok, err := utils.NewAccessToken(b.cfg.JWTSecret, userID, email, b.cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	s := &Session{UserID: userID, Email: email, AccessToken: tok.Token, ExpiresAt: tok.Exp}
	if err := b.saveSlot(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *Backend) saveSlot(ctx context.Context, s *Session) error {
	if b.rdb == nil {
		b.mu.Lock()
		b.memSlot = s
		b.mu.Unlock()
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return b.rdb.SetEx(ctx, SessionSlotKey, raw, ttl).Err()
}

func (b *Backend) loadSlot(ctx context.Context) (*Session, error) {
	if b.rdb == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.memSlot, nil
	}
	raw, err := b.rdb.Get(ctx, SessionSlotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt slot is treated as signed out rather than an error
		// the resolver would have to interpret.
		b.log.Warn("discarding unreadable session slot", zap.Error(err))
		_ = b.clearSlot(ctx)
		return nil, nil
	}
	return &s, nil
}

func (b *Backend) clearSlot(ctx context.Context) error {
	if b.rdb == nil {
		b.mu.Lock()
		b.memSlot = nil
		b.mu.Unlock()
		return nil
	}
	return b.rdb.Del(ctx, SessionSlotKey).Err()
}
