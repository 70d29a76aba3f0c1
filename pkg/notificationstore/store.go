// Package notificationstore persists notifications, rules and settings.
package notificationstore

import (
	"context"
	"errors"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notification"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRuleNotFound         = errors.New("notification rule not found")
)

// Store is the persistence interface for the notification inbox. Every
// operation that touches an existing row is scoped to the owning account;
// rows owned by other accounts behave as if they do not exist.
type Store interface {
	CreateNotification(ctx context.Context, n *notification.Notification) error
	ListNotifications(ctx context.Context, accountID int64, options ...QueryOption) ([]notification.Notification, int, error)
	UnreadCount(ctx context.Context, accountID int64) (int, error)
	MarkRead(ctx context.Context, accountID, notificationID int64) error
	MarkAllRead(ctx context.Context, accountID int64) (int64, error)
	BatchSetStatus(ctx context.Context, accountID int64, ids []int64, status notification.Status) (int64, error)
	DeleteNotification(ctx context.Context, accountID, notificationID int64) error
	Stats(ctx context.Context, accountID int64) (*notification.Stats, error)

	CreateRule(ctx context.Context, rule *notification.Rule) error
	ListRules(ctx context.Context, accountID int64, active *bool) ([]notification.Rule, error)
	GetRule(ctx context.Context, accountID, ruleID int64) (*notification.Rule, error)
	UpdateRule(ctx context.Context, rule *notification.Rule) error
	DeleteRule(ctx context.Context, accountID, ruleID int64) error

	GetSettings(ctx context.Context, accountID int64) (*notification.Settings, error)
	UpdateSettings(ctx context.Context, settings *notification.Settings) error
}

type QueryOptions struct {
	Status notification.Status
	Type   notification.Type
	Limit  int
	Offset int
}

type QueryOption func(*QueryOptions)

func WithStatus(status notification.Status) QueryOption {
	return func(o *QueryOptions) {
		o.Status = status
	}
}

func WithType(notificationType notification.Type) QueryOption {
	return func(o *QueryOptions) {
		o.Type = notificationType
	}
}

func WithPage(offset, limit int) QueryOption {
	return func(o *QueryOptions) {
		o.Offset = offset
		o.Limit = limit
	}
}
