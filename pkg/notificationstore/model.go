package notificationstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notification"
)

// NotificationDao is a data access object that maps directly to the 'notifications' table in PostgreSQL.
type NotificationDao struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID        int64  `bun:"id,pk,autoincrement"`
	AccountID int64  `bun:"account_id,notnull"`
	Type      string `bun:"type,notnull,type:varchar(16)"`
	Title     string `bun:"title,notnull,type:varchar(255)"`
	Content   string `bun:"content,notnull"`
	Priority  string `bun:"priority,notnull,type:varchar(16)"`
	Status    string `bun:"status,notnull,type:varchar(16)"`

	Related json.RawMessage `bun:"related_data,type:jsonb"`

	CreatedAt time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	ReadAt    *time.Time `bun:"read_at"`
}

// RuleDao is a data access object that maps directly to the 'notification_rules' table in PostgreSQL.
type RuleDao struct {
	bun.BaseModel `bun:"table:notification_rules,alias:nr"`

	ID        int64  `bun:"id,pk,autoincrement"`
	AccountID int64  `bun:"account_id,notnull"`
	Name      string `bun:"name,notnull,type:varchar(128)"`
	Type      string `bun:"type,notnull,type:varchar(16)"`

	Condition json.RawMessage `bun:"condition,notnull,type:jsonb"`
	Action    json.RawMessage `bun:"action,notnull,type:jsonb"`

	MaxPerHour int  `bun:"max_per_hour,notnull,default:0"`
	MaxPerDay  int  `bun:"max_per_day,notnull,default:0"`
	Active     bool `bun:"active,notnull,default:true"`

	TriggerCount    int64      `bun:"trigger_count,notnull,default:0"`
	LastTriggeredAt *time.Time `bun:"last_triggered_at"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// SettingsDao is a data access object that maps directly to the 'notification_settings' table in PostgreSQL.
type SettingsDao struct {
	bun.BaseModel `bun:"table:notification_settings,alias:ns"`

	AccountID int64 `bun:"account_id,pk"`

	Enabled          bool `bun:"enabled,notnull,default:true"`
	TwitterEnabled   bool `bun:"twitter_enabled,notnull,default:true"`
	WalletEnabled    bool `bun:"wallet_enabled,notnull,default:true"`
	BlackrockEnabled bool `bun:"blackrock_enabled,notnull,default:true"`
	SystemEnabled    bool `bun:"system_enabled,notnull,default:true"`

	QuietHoursStart *string `bun:"quiet_hours_start,type:varchar(5)"`
	QuietHoursEnd   *string `bun:"quiet_hours_end,type:varchar(5)"`

	MaxPerHour int `bun:"max_per_hour,notnull,default:20"`
	MaxPerDay  int `bun:"max_per_day,notnull,default:100"`

	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// toNotificationDao converts a notification.Notification to NotificationDao.
func toNotificationDao(n *notification.Notification) *NotificationDao {
	dao := &NotificationDao{
		ID:        n.ID,
		AccountID: n.AccountID,
		Type:      string(n.Type),
		Title:     n.Title,
		Content:   n.Content,
		Priority:  string(n.Priority),
		Status:    string(n.Status),
		Related:   n.Related,
	}

	if n.ReadAt != nil {
		dao.ReadAt = n.ReadAt
	}

	return dao
}

// toNotification converts a NotificationDao to notification.Notification.
func toNotification(dao *NotificationDao) *notification.Notification {
	n := &notification.Notification{
		ID:        dao.ID,
		AccountID: dao.AccountID,
		Type:      notification.Type(dao.Type),
		Title:     dao.Title,
		Content:   dao.Content,
		Priority:  notification.Priority(dao.Priority),
		Status:    notification.Status(dao.Status),
		Related:   dao.Related,
		CreatedAt: dao.CreatedAt,
	}

	if dao.ReadAt != nil {
		n.ReadAt = dao.ReadAt
	}

	return n
}

// toRuleDao converts a notification.Rule to RuleDao.
func toRuleDao(rule *notification.Rule) *RuleDao {
	dao := &RuleDao{
		ID:           rule.ID,
		AccountID:    rule.AccountID,
		Name:         rule.Name,
		Type:         string(rule.Type),
		Condition:    rule.Condition,
		Action:       rule.Action,
		MaxPerHour:   rule.MaxPerHour,
		MaxPerDay:    rule.MaxPerDay,
		Active:       rule.Active,
		TriggerCount: rule.TriggerCount,
	}

	if rule.LastTriggeredAt != nil {
		dao.LastTriggeredAt = rule.LastTriggeredAt
	}

	return dao
}

// toRule converts a RuleDao to notification.Rule.
func toRule(dao *RuleDao) *notification.Rule {
	rule := &notification.Rule{
		ID:           dao.ID,
		AccountID:    dao.AccountID,
		Name:         dao.Name,
		Type:         notification.Type(dao.Type),
		Condition:    dao.Condition,
		Action:       dao.Action,
		MaxPerHour:   dao.MaxPerHour,
		MaxPerDay:    dao.MaxPerDay,
		Active:       dao.Active,
		TriggerCount: dao.TriggerCount,
		CreatedAt:    dao.CreatedAt,
		UpdatedAt:    dao.UpdatedAt,
	}

	if dao.LastTriggeredAt != nil {
		rule.LastTriggeredAt = dao.LastTriggeredAt
	}

	return rule
}

// toSettingsDao converts a notification.Settings to SettingsDao.
func toSettingsDao(settings *notification.Settings) *SettingsDao {
	dao := &SettingsDao{
		AccountID:        settings.AccountID,
		Enabled:          settings.Enabled,
		TwitterEnabled:   settings.TwitterEnabled,
		WalletEnabled:    settings.WalletEnabled,
		BlackrockEnabled: settings.BlackrockEnabled,
		SystemEnabled:    settings.SystemEnabled,
		MaxPerHour:       settings.MaxPerHour,
		MaxPerDay:        settings.MaxPerDay,
	}

	if settings.QuietHoursStart != "" {
		dao.QuietHoursStart = &settings.QuietHoursStart
	}
	if settings.QuietHoursEnd != "" {
		dao.QuietHoursEnd = &settings.QuietHoursEnd
	}

	return dao
}

// toSettings converts a SettingsDao to notification.Settings.
func toSettings(dao *SettingsDao) *notification.Settings {
	settings := &notification.Settings{
		AccountID:        dao.AccountID,
		Enabled:          dao.Enabled,
		TwitterEnabled:   dao.TwitterEnabled,
		WalletEnabled:    dao.WalletEnabled,
		BlackrockEnabled: dao.BlackrockEnabled,
		SystemEnabled:    dao.SystemEnabled,
		MaxPerHour:       dao.MaxPerHour,
		MaxPerDay:        dao.MaxPerDay,
		UpdatedAt:        dao.UpdatedAt,
	}

	if dao.QuietHoursStart != nil {
		settings.QuietHoursStart = *dao.QuietHoursStart
	}
	if dao.QuietHoursEnd != nil {
		settings.QuietHoursEnd = *dao.QuietHoursEnd
	}

	return settings
}
