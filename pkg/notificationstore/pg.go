package notificationstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/uptrace/bun"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notification"
)

const defaultPageSize = 20

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the notification store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func applyFilters(query *bun.SelectQuery, accountID int64, options *QueryOptions) *bun.SelectQuery {
	query = query.Where("n.account_id = ?", accountID)
	if options.Status != "" {
		query = query.Where("n.status = ?", string(options.Status))
	}
	if options.Type != "" {
		query = query.Where("n.type = ?", string(options.Type))
	}
	return query
}

func (s *pgStore) CreateNotification(ctx context.Context, n *notification.Notification) error {
	dao := toNotificationDao(n)
	dao.ID = 0

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	n.ID = dao.ID
	n.CreatedAt = dao.CreatedAt
	return nil
}

// ListNotifications returns one page of the account's notifications, newest
// first, together with the total count for the same filters.
func (s *pgStore) ListNotifications(ctx context.Context, accountID int64, opts ...QueryOption) ([]notification.Notification, int, error) {
	options := &QueryOptions{Limit: defaultPageSize}
	for _, opt := range opts {
		opt(options)
	}
	if options.Limit <= 0 {
		options.Limit = defaultPageSize
	}

	var daos []NotificationDao
	query := s.db.NewSelect().Model(&daos)
	query = applyFilters(query, accountID, options)

	total, err := query.
		Order("n.created_at DESC", "n.id DESC").
		Offset(options.Offset).
		Limit(options.Limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]notification.Notification, 0, len(daos))
	for i := range daos {
		notifications = append(notifications, *toNotification(&daos[i]))
	}
	return notifications, total, nil
}

func (s *pgStore) UnreadCount(ctx context.Context, accountID int64) (int, error) {
	count, err := s.db.NewSelect().
		Model((*NotificationDao)(nil)).
		Where("n.account_id = ?", accountID).
		Where("n.status = ?", string(notification.StatusUnread)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead is idempotent: marking an already-read notification succeeds and
// keeps the original read_at.
func (s *pgStore) MarkRead(ctx context.Context, accountID, notificationID int64) error {
	res, err := s.db.NewUpdate().
		Model((*NotificationDao)(nil)).
		Set("status = ?", string(notification.StatusRead)).
		Set("read_at = COALESCE(read_at, NOW())").
		Where("id = ?", notificationID).
		Where("account_id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *pgStore) MarkAllRead(ctx context.Context, accountID int64) (int64, error) {
	res, err := s.db.NewUpdate().
		Model((*NotificationDao)(nil)).
		Set("status = ?", string(notification.StatusRead)).
		Set("read_at = COALESCE(read_at, NOW())").
		Where("account_id = ?", accountID).
		Where("status = ?", string(notification.StatusUnread)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// BatchSetStatus updates only the caller's rows; ids owned by other accounts
// are skipped without error.
func (s *pgStore) BatchSetStatus(ctx context.Context, accountID int64, ids []int64, status notification.Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := s.db.NewUpdate().
		Model((*NotificationDao)(nil)).
		Set("status = ?", string(status)).
		Where("account_id = ?", accountID).
		Where("id IN (?)", bun.In(ids))
	if status == notification.StatusRead {
		query = query.Set("read_at = COALESCE(read_at, NOW())")
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to batch update notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (s *pgStore) DeleteNotification(ctx context.Context, accountID, notificationID int64) error {
	res, err := s.db.NewDelete().
		Model((*NotificationDao)(nil)).
		Where("id = ?", notificationID).
		Where("account_id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *pgStore) Stats(ctx context.Context, accountID int64) (*notification.Stats, error) {
	var rows []struct {
		Status   string `bun:"status"`
		Type     string `bun:"type"`
		Priority string `bun:"priority"`
		Count    int64  `bun:"count"`
	}

	err := s.db.NewSelect().
		Model((*NotificationDao)(nil)).
		ColumnExpr("n.status, n.type, n.priority, count(*) AS count").
		Where("n.account_id = ?", accountID).
		Group("n.status", "n.type", "n.priority").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notification stats: %w", err)
	}

	stats := &notification.Stats{
		ByStatus:   make(map[notification.Status]int64),
		ByType:     make(map[notification.Type]int64),
		ByPriority: make(map[notification.Priority]int64),
	}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByStatus[notification.Status(row.Status)] += row.Count
		stats.ByType[notification.Type(row.Type)] += row.Count
		stats.ByPriority[notification.Priority(row.Priority)] += row.Count
	}
	return stats, nil
}

func (s *pgStore) CreateRule(ctx context.Context, rule *notification.Rule) error {
	dao := toRuleDao(rule)
	dao.ID = 0

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("id, created_at, updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create notification rule: %w", err)
	}

	rule.ID = dao.ID
	rule.CreatedAt = dao.CreatedAt
	rule.UpdatedAt = dao.UpdatedAt
	return nil
}

func (s *pgStore) ListRules(ctx context.Context, accountID int64, active *bool) ([]notification.Rule, error) {
	var daos []RuleDao
	query := s.db.NewSelect().
		Model(&daos).
		Where("nr.account_id = ?", accountID).
		Order("nr.created_at DESC", "nr.id DESC")
	if active != nil {
		query = query.Where("nr.active = ?", *active)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list notification rules: %w", err)
	}

	rules := make([]notification.Rule, 0, len(daos))
	for i := range daos {
		rules = append(rules, *toRule(&daos[i]))
	}
	return rules, nil
}

func (s *pgStore) GetRule(ctx context.Context, accountID, ruleID int64) (*notification.Rule, error) {
	dao := new(RuleDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("nr.id = ?", ruleID).
		Where("nr.account_id = ?", accountID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get notification rule: %w", err)
	}
	return toRule(dao), nil
}

func (s *pgStore) UpdateRule(ctx context.Context, rule *notification.Rule) error {
	dao := toRuleDao(rule)

	res, err := s.db.NewUpdate().
		Model(dao).
		Set("updated_at = NOW()").
		Column("name", "type", "condition", "action",
			"max_per_hour", "max_per_day", "active").
		WherePK().
		Where("nr.account_id = ?", rule.AccountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update notification rule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *pgStore) DeleteRule(ctx context.Context, accountID, ruleID int64) error {
	res, err := s.db.NewDelete().
		Model((*RuleDao)(nil)).
		Where("id = ?", ruleID).
		Where("account_id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete notification rule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// GetSettings returns the account's settings, materializing a defaults row on
// first access. The insert uses ON CONFLICT DO NOTHING so concurrent first
// reads converge on one row.
func (s *pgStore) GetSettings(ctx context.Context, accountID int64) (*notification.Settings, error) {
	seed := &notification.Settings{AccountID: accountID}
	if err := defaults.Set(seed); err != nil {
		return nil, fmt.Errorf("failed to build default settings: %w", err)
	}

	_, err := s.db.NewInsert().
		Model(toSettingsDao(seed)).
		On("CONFLICT (account_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed notification settings: %w", err)
	}

	dao := new(SettingsDao)
	err = s.db.NewSelect().
		Model(dao).
		Where("ns.account_id = ?", accountID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return toSettings(dao), nil
}

func (s *pgStore) UpdateSettings(ctx context.Context, settings *notification.Settings) error {
	dao := toSettingsDao(settings)

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (account_id) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("twitter_enabled = EXCLUDED.twitter_enabled").
		Set("wallet_enabled = EXCLUDED.wallet_enabled").
		Set("blackrock_enabled = EXCLUDED.blackrock_enabled").
		Set("system_enabled = EXCLUDED.system_enabled").
		Set("quiet_hours_start = EXCLUDED.quiet_hours_start").
		Set("quiet_hours_end = EXCLUDED.quiet_hours_end").
		Set("max_per_hour = EXCLUDED.max_per_hour").
		Set("max_per_day = EXCLUDED.max_per_day").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update notification settings: %w", err)
	}
	return nil
}
