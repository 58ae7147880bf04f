package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davrk/authkit/password"
	"github.com/davrk/authkit/provider"
)

// resetDecoySubject keeps RequestPasswordReset doing the same signing work
// whether or not the account exists.
const resetDecoySubject = "00000000-0000-0000-0000-000000000000"

// ValidatePassword runs the strength policy and returns the structured
// result — every violated rule at once, never an error — so UI layers can
// render the full rule list.
func (s *Service) ValidatePassword(candidate string) password.Result {
	return s.policy.Validate(candidate)
}

// ChangePassword re-verifies the current password, validates the new one
// against policy, stores the new hash, and revokes every session the
// principal holds.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return normalizeError(err)
	}
	if !s.hasher.Verify(currentPassword, u.PasswordHash) {
		s.metrics.Inc(MetricPasswordChangeInvalidOld)
		s.publish(ctx, Event{Type: EventPasswordChange, UserID: userID, Error: string(CodeInvalidCredentials)})
		return newError(CodeInvalidCredentials, "current password is incorrect", nil)
	}
	if res := s.policy.Validate(newPassword); !res.Valid {
		return newError(CodeWeakPassword, strings.Join(res.Errors, "; "), nil)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return normalizeError(err)
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		return normalizeError(err)
	}

	// Every previously issued session dies with the old password.
	if _, err := s.RevokeAllSessions(ctx, userID); err != nil {
		return err
	}

	s.metrics.Inc(MetricPasswordChangeSuccess)
	s.publish(ctx, Event{Type: EventPasswordChange, UserID: userID, Success: true})
	return nil
}

// RequestPasswordReset issues a reset token for the account. The returned
// token is handed to the mail layer by the caller; the error and timing are
// identical whether or not the account exists, and an empty token with nil
// error means "no such account — tell the user the mail was sent anyway".
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if !s.config.Features.PasswordReset {
		return "", newError(CodePermissionDenied, "password reset disabled", nil)
	}

	s.metrics.Inc(MetricPasswordResetRequest)
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, provider.ErrUserNotFound) {
			// Account existence stays hidden: same work, empty result.
			_, _ = s.reset.Generate(resetDecoySubject)
			return "", nil
		}
		return "", normalizeError(err)
	}

	tok, err := s.reset.Generate(u.ID)
	if err != nil {
		return "", normalizeError(err)
	}

	s.publish(ctx, Event{Type: EventPasswordReset, UserID: u.ID, Metadata: map[string]string{"phase": "requested"}})
	return fmt.Sprintf("%s.%s", u.ID, tok), nil
}

// ConfirmPasswordReset validates the reset token, applies the new password,
// and revokes all sessions. The token format is "<userID>.<reset token>" as
// produced by [Service.RequestPasswordReset].
//
// ConfirmPasswordReset may return an error when input validation, dependency calls, or security checks fail.
func (s *Service) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if !s.config.Features.PasswordReset {
		return newError(CodePermissionDenied, "password reset disabled", nil)
	}

	// The issuer's own token is "payload.sig"; the user id rides in front
	// and must match the subject baked into the signature.
	userID, tok, ok := strings.Cut(resetToken, ".")
	if !ok || !s.reset.Verify(userID, tok) {
		s.metrics.Inc(MetricPasswordResetConfirmFailure)
		s.publish(ctx, Event{Type: EventPasswordReset, Error: string(CodeTokenInvalid)})
		return newError(CodeTokenInvalid, "reset token invalid or expired", nil)
	}

	if res := s.policy.Validate(newPassword); !res.Valid {
		return newError(CodeWeakPassword, strings.Join(res.Errors, "; "), nil)
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.metrics.Inc(MetricPasswordResetConfirmFailure)
		return newError(CodeTokenInvalid, "reset token invalid or expired", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return normalizeError(err)
	}
	if err := s.users.SetPassword(ctx, u.ID, hash); err != nil {
		return normalizeError(err)
	}
	if _, err := s.RevokeAllSessions(ctx, u.ID); err != nil {
		return err
	}

	s.metrics.Inc(MetricPasswordResetConfirmSuccess)
	s.publish(ctx, Event{Type: EventPasswordReset, UserID: u.ID, Success: true, Metadata: map[string]string{"phase": "confirmed"}})
	return nil
}
