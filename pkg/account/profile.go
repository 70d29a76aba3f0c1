package account

import "time"

// Profile is the public JSON projection of an account, returned by every
// endpoint that includes user data. Credential and device fields never
// appear here.
type Profile struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email,omitempty"`
	UserType       string     `json:"user_type"`
	Status         string     `json:"status"`
	OAuthProvider  string     `json:"oauth_provider,omitempty"`
	TrialStart     *time.Time `json:"trial_start_date,omitempty"`
	TrialEnd       *time.Time `json:"trial_end_date,omitempty"`
	MaxFollows     int        `json:"max_follows"`
	CurrentFollows int        `json:"current_follows"`

	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
	PushNotifications  bool `json:"push_notifications"`

	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// NewProfile builds the public projection of acc.
func NewProfile(acc *Account) *Profile {
	return &Profile{
		ID:                 acc.ID,
		Username:           acc.Username,
		Email:              acc.Email,
		UserType:           string(acc.Tier),
		Status:             string(acc.Status),
		OAuthProvider:      acc.OAuth.Provider,
		TrialStart:         acc.TrialStart,
		TrialEnd:           acc.TrialEnd,
		MaxFollows:         acc.MaxFollows,
		CurrentFollows:     acc.CurrentFollows,
		EmailNotifications: acc.EmailNotifications,
		SMSNotifications:   acc.SMSNotifications,
		PushNotifications:  acc.PushNotifications,
		CreatedAt:          acc.CreatedAt,
		LastLoginAt:        acc.LastLoginAt,
	}
}
