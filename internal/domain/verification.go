package domain

import "time"

// VerificationCodeTTL is how long an e-mail verification code stays valid.
// The same window doubles as the resend cool-off.
const VerificationCodeTTL = 20 * time.Minute

// EmailVerification tracks the verification state of an e-mail address.
// One row per address; resends refresh the code and expiry in place.
type EmailVerification struct {
	ID        string
	Email     string
	Code      string
	Verified  bool
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the code can no longer be claimed.
func (v *EmailVerification) Expired(now time.Time) bool {
	return v.ExpiresAt == nil || now.After(*v.ExpiresAt)
}

// InCoolOff reports whether a resend request arrived while the previous
// code is still claimable. A new code is only minted once the old one
// expires.
func (v *EmailVerification) InCoolOff(now time.Time) bool {
	return !v.Expired(now)
}
