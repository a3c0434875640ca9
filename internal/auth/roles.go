package auth

import (
	"context"

	"go.uber.org/zap"
)

// RoleStore looks up a user's explicit role row. Implementations return ""
// with a nil error when no row exists; a non-nil error means the query
// itself failed.
type RoleStore interface {
	RoleFor(ctx context.Context, userID uint64) (string, error)
}

// QuoteProbe reports whether a user owns at least one quote, either as its
// creator or through a matching customer email.
type QuoteProbe interface {
	HasQuoteFor(ctx context.Context, userID uint64, email string) (bool, error)
}

// EmailLookup resolves an account email for the quote probe.
type EmailLookup interface {
	EmailFor(ctx context.Context, userID uint64) (string, error)
}

// RoleService computes a user's effective Role. The same resolution path
// serves the session resolver and the per-request route guards so the two
// can never disagree about what a role means.
type RoleService struct {
	roles  RoleStore
	quotes QuoteProbe
	emails EmailLookup
	log    *zap.Logger
}

func NewRoleService(roles RoleStore, quotes QuoteProbe, emails EmailLookup, log *zap.Logger) *RoleService {
	return &RoleService{roles: roles, quotes: quotes, emails: emails, log: log}
}

// Resolve returns the effective role for a user id. The precedence is
// fixed: an explicit role-table row always wins; failing that, owning at
// least one quote makes the user a seller; everything else is RoleNone.
// Every failure on the way degrades to RoleNone rather than surfacing an
// error, so "backend unreachable" and "no role" are indistinguishable to
// callers. That equivalence is deliberate and covered by tests.
func (s *RoleService) Resolve(ctx context.Context, userID uint64) Role {
	raw, err := s.roles.RoleFor(ctx, userID)
	if err != nil {
		s.log.Warn("role lookup failed", zap.Uint64("user_id", userID), zap.Error(err))
		return RoleNone
	}
	if raw != "" {
		role, perr := ParseRole(raw)
		if perr != nil {
			s.log.Warn("rejecting unknown role value",
				zap.Uint64("user_id", userID), zap.String("value", raw))
			return RoleNone
		}
		return role
	}

	// No explicit role: infer seller from quote ownership. A failed email
	// lookup only narrows the probe to created_by; a failed probe is
	// swallowed entirely.
	email := ""
	if s.emails != nil {
		if e, eerr := s.emails.EmailFor(ctx, userID); eerr == nil {
			email = e
		}
	}
	has, qerr := s.quotes.HasQuoteFor(ctx, userID, email)
	if qerr != nil {
		s.log.Debug("seller inference probe failed", zap.Uint64("user_id", userID), zap.Error(qerr))
		return RoleNone
	}
	if has {
		return RoleSeller
	}
	return RoleNone
}
