package authkit

import "time"

// SecurityReport summarizes the security posture of a built Service. It is
// safe to log: it carries configuration shape only, never secrets or token
// material.
//
// SecurityReport instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityReport struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Leeway             time.Duration
	Password           PasswordPolicyReport
	SessionMaxAge      time.Duration
	InactivityWindow   time.Duration
	RollingSessions    bool
	SingleDevice       bool
	RateLimitingActive bool
	AuditActive        bool
	MetricsActive      bool
	RegistrationOpen   bool
	PasswordResetOpen  bool
	SocialLoginOpen    bool
}

// PasswordPolicyReport mirrors the active password policy and hashing cost.
type PasswordPolicyReport struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSymbols   bool
	BcryptCost       int
	ResetTokenTTL    time.Duration
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) SecurityReport() SecurityReport {
	if s == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm: s.config.JWT.Algorithm,
		AccessTTL:        s.tokens.AccessTTL(),
		RefreshTTL:       s.tokens.RefreshTTL(),
		Leeway:           s.config.JWT.Leeway,
		Password: PasswordPolicyReport{
			MinLength:        s.config.Password.MinLength,
			RequireUppercase: s.config.Password.RequireUppercase,
			RequireLowercase: s.config.Password.RequireLowercase,
			RequireNumbers:   s.config.Password.RequireNumbers,
			RequireSymbols:   s.config.Password.RequireSymbols,
			BcryptCost:       s.config.Password.SaltRounds,
			ResetTokenTTL:    s.config.Password.ResetTokenTTL,
		},
		SessionMaxAge:      s.config.Session.MaxAge,
		InactivityWindow:   s.config.Session.InactivityWindow,
		RollingSessions:    s.config.Session.Rolling,
		SingleDevice:       !s.config.Features.MultipleDevices,
		RateLimitingActive: s.config.RateLimit.Enabled,
		AuditActive:        s.config.Audit.Enabled,
		MetricsActive:      s.config.Metrics.Enabled,
		RegistrationOpen:   s.config.Features.Registration,
		PasswordResetOpen:  s.config.Features.PasswordReset,
		SocialLoginOpen:    s.config.Features.SocialLogin,
	}
}
