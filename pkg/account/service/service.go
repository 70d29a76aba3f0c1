// Package service implements the authenticated account management surface:
// profile, password management, entitlement reporting and deletion.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/accountstore"
	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPasswordAlreadySet = errors.New("account already has a password")
)

// Store is the narrow data-access interface for the account service.
type Store interface {
	GetAccount(ctx context.Context, opts ...accountstore.QueryOption) (*account.Account, error)
	AccountExists(ctx context.Context, opts ...accountstore.QueryOption) (bool, error)
	UpdateAccount(ctx context.Context, acc *account.Account) error
	DeactivateAccount(ctx context.Context, id int64) error
}

// UpdateProfileRequest carries the mutable profile fields. Nil pointers
// leave the current value untouched.
type UpdateProfileRequest struct {
	Username           *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email              *string `json:"email" validate:"omitempty,email"`
	EmailNotifications *bool   `json:"email_notifications"`
	SMSNotifications   *bool   `json:"sms_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
}

// SubscriptionStatus is the derived entitlement report.
type SubscriptionStatus struct {
	UserType             string     `json:"user_type"`
	Status               string     `json:"status"`
	IsTrial              bool       `json:"is_trial"`
	IsTrialExpired       bool       `json:"is_trial_expired"`
	IsSubscriptionActive bool       `json:"is_subscription_active"`
	TrialStart           *time.Time `json:"trial_start_date,omitempty"`
	TrialEnd             *time.Time `json:"trial_end_date,omitempty"`
	SubscriptionStart    *time.Time `json:"subscription_start_date,omitempty"`
	SubscriptionEnd      *time.Time `json:"subscription_end_date,omitempty"`
	MaxFollows           int        `json:"max_follows"`
	CurrentFollows       int        `json:"current_follows"`
	CanAddFollows        bool       `json:"can_add_follows"`
}

// Service defines the account management business logic
type Service interface {
	GetProfile(ctx context.Context, accountID int64) (*account.Profile, error)
	UpdateProfile(ctx context.Context, accountID int64, req *UpdateProfileRequest) (*account.Profile, error)
	ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword string) error
	SetPassword(ctx context.Context, accountID int64, newPassword string) error
	SubscriptionStatus(ctx context.Context, accountID int64) (*SubscriptionStatus, error)
	DeleteAccount(ctx context.Context, accountID int64) error
}

type accountService struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new account service
func NewService(store Store, logger *zap.Logger) Service {
	return &accountService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *accountService) load(ctx context.Context, accountID int64) (*account.Account, error) {
	acc, err := s.store.GetAccount(ctx, accountstore.WithID(accountID))
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "account not found")
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return acc, nil
}

func (s *accountService) GetProfile(ctx context.Context, accountID int64) (*account.Profile, error) {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.NewProfile(acc), nil
}

// UpdateProfile applies the requested changes after checking that a new
// username or email is not bound to another account.
func (s *accountService) UpdateProfile(ctx context.Context, accountID int64, req *UpdateProfileRequest) (*account.Profile, error) {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != acc.Username {
		taken, err := s.store.AccountExists(ctx, accountstore.WithUsername(*req.Username))
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, apperrors.ConflictError(ErrUsernameTaken, "username already registered")
		}
		acc.Username = *req.Username
	}

	if req.Email != nil && *req.Email != acc.Email {
		taken, err := s.store.AccountExists(ctx, accountstore.WithEmail(*req.Email))
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, apperrors.ConflictError(ErrEmailTaken, "email already registered")
		}
		acc.Email = *req.Email
	}

	if req.EmailNotifications != nil {
		acc.EmailNotifications = *req.EmailNotifications
	}
	if req.SMSNotifications != nil {
		acc.SMSNotifications = *req.SMSNotifications
	}
	if req.PushNotifications != nil {
		acc.PushNotifications = *req.PushNotifications
	}

	if err := s.store.UpdateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account.NewProfile(acc), nil
}

// ChangePassword verifies the current password before replacing it.
func (s *accountService) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword string) error {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(acc.PasswordHash, currentPassword) {
		return apperrors.UnAuthorizedError(ErrWrongPassword, "current password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash

	if err := s.store.UpdateAccount(ctx, acc); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetPassword gives a password to an account that has none (device or
// pure-OAuth accounts). Accounts with a password must use ChangePassword.
func (s *accountService) SetPassword(ctx context.Context, accountID int64, newPassword string) error {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}

	if acc.HasPassword() && acc.DeviceID == "" {
		return apperrors.ConflictError(ErrPasswordAlreadySet, "account already has a password")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash

	if err := s.store.UpdateAccount(ctx, acc); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return nil
}

// SubscriptionStatus reports the derived entitlement for the account.
func (s *accountService) SubscriptionStatus(ctx context.Context, accountID int64) (*SubscriptionStatus, error) {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &SubscriptionStatus{
		UserType:             string(acc.Tier),
		Status:               string(acc.Status),
		IsTrial:              acc.Tier == account.TierTrial,
		IsTrialExpired:       acc.IsTrialExpired(now),
		IsSubscriptionActive: acc.IsSubscriptionActive(now),
		TrialStart:           acc.TrialStart,
		TrialEnd:             acc.TrialEnd,
		SubscriptionStart:    acc.SubscriptionStart,
		SubscriptionEnd:      acc.SubscriptionEnd,
		MaxFollows:           acc.MaxFollows,
		CurrentFollows:       acc.CurrentFollows,
		CanAddFollows:        acc.CanAddFollow(),
	}, nil
}

// DeleteAccount soft-deletes: status goes inactive and the unique identity
// columns are cleared so they can be registered again.
func (s *accountService) DeleteAccount(ctx context.Context, accountID int64) error {
	if err := s.store.DeactivateAccount(ctx, accountID); err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return apperrors.ResourceNotFoundError(err, "account not found")
		}
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	return nil
}
