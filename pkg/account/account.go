// Package account holds the account domain model and the derived
// entitlement logic shared by the identity, user and aggregation services.
package account

import "time"

// Tier is the paid tier of an account. Trial accounts are governed by the
// trial window, lifetime accounts never expire, the rest are governed by
// the subscription window.
type Tier string

const (
	TierTrial    Tier = "trial"
	TierMonthly  Tier = "monthly"
	TierYearly   Tier = "yearly"
	TierLifetime Tier = "lifetime"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierTrial, TierMonthly, TierYearly, TierLifetime:
		return true
	}
	return false
}

// Status is the administrative lifecycle state of an account. It is
// orthogonal to tier expiry: a suspended account with a live subscription is
// still rejected, and an active account with an expired trial is rejected by
// the derived entitlement check, not by status.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

// OAuthIdentity is a linked OAuth provider identity.
type OAuthIdentity struct {
	Provider      string
	Subject       string
	EmailVerified bool
}

// Account represents the domain model for a registered user.
//
// Identity fields (Email, DeviceID, OAuth) are optional; any one of
// password, device id or OAuth identity is sufficient to authenticate.
// Username is always present and unique.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string

	Tier   Tier
	Status Status

	DeviceID  string
	UserAgent string
	IPAddress string

	OAuth OAuthIdentity

	TrialStart *time.Time
	TrialEnd   *time.Time

	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time

	MaxFollows     int
	CurrentFollows int

	EmailNotifications bool
	SMSNotifications   bool
	PushNotifications  bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// HasPassword reports whether the account can authenticate with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// HasOAuth reports whether an OAuth identity is linked.
func (a *Account) HasOAuth() bool {
	return a.OAuth.Provider != "" && a.OAuth.Subject != ""
}

// IsTrialExpired reports whether the trial window has lapsed. Only trial
// accounts expire this way; a trial account without an end date never does.
func (a *Account) IsTrialExpired(now time.Time) bool {
	if a.Tier != TierTrial {
		return false
	}
	if a.TrialEnd == nil {
		return false
	}
	return now.After(*a.TrialEnd)
}

// IsSubscriptionActive derives the entitlement governing subscription-gated
// endpoints. The stored Status field is deliberately not consulted here:
// derived expiry wins for access control, status only carries administrative
// suspension which the auth middleware checks separately.
func (a *Account) IsSubscriptionActive(now time.Time) bool {
	switch a.Tier {
	case TierTrial:
		return !a.IsTrialExpired(now)
	case TierLifetime:
		return true
	default:
		if a.SubscriptionEnd == nil {
			return false
		}
		return !now.After(*a.SubscriptionEnd)
	}
}

// CanAddFollow reports whether the follow quota admits one more target.
func (a *Account) CanAddFollow() bool {
	return a.CurrentFollows < a.MaxFollows
}

// GrantTrial resets the trial window to [now, now+days) and applies the
// trial follow quota. Called once at creation; re-grants are an
// administrative action.
func (a *Account) GrantTrial(now time.Time, days, maxFollows int) {
	end := now.Add(time.Duration(days) * 24 * time.Hour)
	a.Tier = TierTrial
	a.TrialStart = &now
	a.TrialEnd = &end
	a.MaxFollows = maxFollows
}
