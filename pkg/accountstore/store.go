package accountstore

import (
	"context"
	"errors"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
)

// ErrAccountNotFound is returned when an account lookup finds no matching record.
var ErrAccountNotFound = errors.New("account not found")

// Store defines the interface for account data persistence
type Store interface {
	CreateAccount(ctx context.Context, acc *account.Account) error
	GetAccount(ctx context.Context, opts ...QueryOption) (*account.Account, error)
	AccountExists(ctx context.Context, opts ...QueryOption) (bool, error)
	UpdateAccount(ctx context.Context, acc *account.Account) error
	TouchLastLogin(ctx context.Context, id int64) error
	DeactivateAccount(ctx context.Context, id int64) error
}

// QueryOptions defines options for querying accounts
type QueryOptions struct {
	ID       *int64
	Username *string
	Email    *string
	DeviceID *string
	Provider *string
	Subject  *string
}

// QueryOption is a functional option for querying accounts
type QueryOption func(*QueryOptions)

// WithID sets the primary key filter
func WithID(id int64) QueryOption {
	return func(opts *QueryOptions) {
		opts.ID = &id
	}
}

// WithUsername sets the username filter
func WithUsername(username string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Username = &username
	}
}

// WithEmail sets the email filter
func WithEmail(email string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Email = &email
	}
}

// WithDeviceID sets the device identifier filter
func WithDeviceID(deviceID string) QueryOption {
	return func(opts *QueryOptions) {
		opts.DeviceID = &deviceID
	}
}

// WithOAuth sets the OAuth provider and subject filter
func WithOAuth(provider, subject string) QueryOption {
	return func(opts *QueryOptions) {
		opts.Provider = &provider
		opts.Subject = &subject
	}
}
