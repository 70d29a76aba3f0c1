package accountstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the account store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func applyFilters(query *bun.SelectQuery, options *QueryOptions) *bun.SelectQuery {
	if options.ID != nil {
		query = query.Where("a.id = ?", *options.ID)
	}
	if options.Username != nil {
		query = query.Where("a.username = ?", *options.Username)
	}
	if options.Email != nil {
		query = query.Where("a.email = ?", *options.Email)
	}
	if options.DeviceID != nil {
		query = query.Where("a.device_id = ?", *options.DeviceID)
	}
	if options.Provider != nil {
		query = query.Where("a.oauth_provider = ?", *options.Provider)
	}
	if options.Subject != nil {
		query = query.Where("a.oauth_subject = ?", *options.Subject)
	}
	return query
}

func (s *pgStore) CreateAccount(ctx context.Context, acc *account.Account) error {
	dao := toAccountDao(acc)
	dao.ID = 0

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("id, created_at, updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	acc.ID = dao.ID
	acc.CreatedAt = dao.CreatedAt
	acc.UpdatedAt = dao.UpdatedAt
	return nil
}

func (s *pgStore) GetAccount(ctx context.Context, opts ...QueryOption) (*account.Account, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dao := new(AccountDao)
	query := s.db.NewSelect().Model(dao)
	query = applyFilters(query, options)

	err := query.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return toAccount(dao), nil
}

func (s *pgStore) AccountExists(ctx context.Context, opts ...QueryOption) (bool, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	query := s.db.NewSelect().Model((*AccountDao)(nil))
	query = applyFilters(query, options)

	exists, err := query.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check account exists: %w", err)
	}
	return exists, nil
}

func (s *pgStore) UpdateAccount(ctx context.Context, acc *account.Account) error {
	dao := toAccountDao(acc)

	res, err := s.db.NewUpdate().
		Model(dao).
		Set("updated_at = NOW()").
		Column("username", "email", "password_hash", "tier", "status",
			"device_id", "user_agent", "ip_address",
			"oauth_provider", "oauth_subject", "oauth_email_verified",
			"trial_start", "trial_end", "subscription_start", "subscription_end",
			"max_follows", "current_follows",
			"email_notifications", "sms_notifications", "push_notifications").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *pgStore) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.NewUpdate().
		Model((*AccountDao)(nil)).
		Set("last_login_at = NOW()").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to touch last login: %w", err)
	}
	return nil
}

// DeactivateAccount soft-deletes the account: identity fields that must stay
// unique are cleared so they can be reused by a future registration.
func (s *pgStore) DeactivateAccount(ctx context.Context, id int64) error {
	res, err := s.db.NewUpdate().
		Model((*AccountDao)(nil)).
		Set("status = ?", string(account.StatusInactive)).
		Set("email = NULL").
		Set("device_id = NULL").
		Set("oauth_provider = NULL").
		Set("oauth_subject = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
