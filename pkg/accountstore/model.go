package accountstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
)

// AccountDao is a data access object that maps directly to the 'accounts' table in PostgreSQL.
type AccountDao struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           int64   `bun:"id,pk,autoincrement"`
	Username     string  `bun:"username,unique,notnull,type:varchar(64)"`
	Email        *string `bun:"email,unique,type:varchar(255)"`
	PasswordHash *string `bun:"password_hash,type:varchar(255)"`

	Tier   string `bun:"tier,notnull,type:varchar(16)"`
	Status string `bun:"status,notnull,type:varchar(16)"`

	DeviceID  *string `bun:"device_id,unique,type:varchar(255)"`
	UserAgent *string `bun:"user_agent,type:varchar(500)"`
	IPAddress *string `bun:"ip_address,type:varchar(45)"`

	OAuthProvider      *string `bun:"oauth_provider,type:varchar(32)"`
	OAuthSubject       *string `bun:"oauth_subject,type:varchar(255)"`
	OAuthEmailVerified bool    `bun:"oauth_email_verified,notnull,default:false"`

	TrialStart *time.Time `bun:"trial_start"`
	TrialEnd   *time.Time `bun:"trial_end"`

	SubscriptionStart *time.Time `bun:"subscription_start"`
	SubscriptionEnd   *time.Time `bun:"subscription_end"`

	MaxFollows     int `bun:"max_follows,notnull,default:0"`
	CurrentFollows int `bun:"current_follows,notnull,default:0"`

	EmailNotifications bool `bun:"email_notifications,notnull,default:true"`
	SMSNotifications   bool `bun:"sms_notifications,notnull,default:false"`
	PushNotifications  bool `bun:"push_notifications,notnull,default:true"`

	CreatedAt   time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,default:current_timestamp"`
	LastLoginAt *time.Time `bun:"last_login_at"`
}

// toAccountDao converts an account.Account to AccountDao.
func toAccountDao(acc *account.Account) *AccountDao {
	dao := &AccountDao{
		ID:                 acc.ID,
		Username:           acc.Username,
		Tier:               string(acc.Tier),
		Status:             string(acc.Status),
		OAuthEmailVerified: acc.OAuth.EmailVerified,
		MaxFollows:         acc.MaxFollows,
		CurrentFollows:     acc.CurrentFollows,
		EmailNotifications: acc.EmailNotifications,
		SMSNotifications:   acc.SMSNotifications,
		PushNotifications:  acc.PushNotifications,
	}

	if acc.Email != "" {
		dao.Email = &acc.Email
	}
	if acc.PasswordHash != "" {
		dao.PasswordHash = &acc.PasswordHash
	}
	if acc.DeviceID != "" {
		dao.DeviceID = &acc.DeviceID
	}
	if acc.UserAgent != "" {
		dao.UserAgent = &acc.UserAgent
	}
	if acc.IPAddress != "" {
		dao.IPAddress = &acc.IPAddress
	}
	if acc.OAuth.Provider != "" {
		dao.OAuthProvider = &acc.OAuth.Provider
	}
	if acc.OAuth.Subject != "" {
		dao.OAuthSubject = &acc.OAuth.Subject
	}
	if acc.TrialStart != nil {
		dao.TrialStart = acc.TrialStart
	}
	if acc.TrialEnd != nil {
		dao.TrialEnd = acc.TrialEnd
	}
	if acc.SubscriptionStart != nil {
		dao.SubscriptionStart = acc.SubscriptionStart
	}
	if acc.SubscriptionEnd != nil {
		dao.SubscriptionEnd = acc.SubscriptionEnd
	}
	if acc.LastLoginAt != nil {
		dao.LastLoginAt = acc.LastLoginAt
	}

	return dao
}

// toAccount converts an AccountDao to account.Account.
func toAccount(dao *AccountDao) *account.Account {
	acc := &account.Account{
		ID:                 dao.ID,
		Username:           dao.Username,
		Tier:               account.Tier(dao.Tier),
		Status:             account.Status(dao.Status),
		MaxFollows:         dao.MaxFollows,
		CurrentFollows:     dao.CurrentFollows,
		EmailNotifications: dao.EmailNotifications,
		SMSNotifications:   dao.SMSNotifications,
		PushNotifications:  dao.PushNotifications,
		CreatedAt:          dao.CreatedAt,
		UpdatedAt:          dao.UpdatedAt,
	}

	if dao.Email != nil {
		acc.Email = *dao.Email
	}
	if dao.PasswordHash != nil {
		acc.PasswordHash = *dao.PasswordHash
	}
	if dao.DeviceID != nil {
		acc.DeviceID = *dao.DeviceID
	}
	if dao.UserAgent != nil {
		acc.UserAgent = *dao.UserAgent
	}
	if dao.IPAddress != nil {
		acc.IPAddress = *dao.IPAddress
	}
	if dao.OAuthProvider != nil {
		acc.OAuth.Provider = *dao.OAuthProvider
	}
	if dao.OAuthSubject != nil {
		acc.OAuth.Subject = *dao.OAuthSubject
	}
	acc.OAuth.EmailVerified = dao.OAuthEmailVerified
	if dao.TrialStart != nil {
		acc.TrialStart = dao.TrialStart
	}
	if dao.TrialEnd != nil {
		acc.TrialEnd = dao.TrialEnd
	}
	if dao.SubscriptionStart != nil {
		acc.SubscriptionStart = dao.SubscriptionStart
	}
	if dao.SubscriptionEnd != nil {
		acc.SubscriptionEnd = dao.SubscriptionEnd
	}
	if dao.LastLoginAt != nil {
		acc.LastLoginAt = dao.LastLoginAt
	}

	return acc
}
