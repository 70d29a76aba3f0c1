// Package service implements the notification inbox business logic: listing
// and read-state management, per-account rules and per-account settings.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/internal/metrics"
	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notification"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notificationstore"
)

const maxPageSize = 100

var (
	ErrUnknownType     = errors.New("unknown notification type")
	ErrUnknownStatus   = errors.New("unknown notification status")
	ErrUnknownPriority = errors.New("unknown notification priority")
)

// Store is the narrow data-access interface for the notification service.
type Store interface {
	CreateNotification(ctx context.Context, n *notification.Notification) error
	ListNotifications(ctx context.Context, accountID int64, options ...notificationstore.QueryOption) ([]notification.Notification, int, error)
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

// ListRequest selects one page of an account's inbox. Empty filter fields
// match everything.
type ListRequest struct {
	Status   string `json:"status" validate:"omitempty,oneof=unread read archived"`
	Type     string `json:"type" validate:"omitempty,oneof=twitter wallet blackrock system"`
	Page     int    `json:"page" validate:"omitempty,gte=1"`
	PageSize int    `json:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ListResult is one inbox page plus the totals the client paginates by.
type ListResult struct {
	Notifications []notification.Notification `json:"notifications"`
	Total         int                         `json:"total"`
	UnreadCount   int                         `json:"unread_count"`
	Page          int                         `json:"page"`
	PageSize      int                         `json:"page_size"`
}

// CreateRequest describes a notification produced by an internal source.
type CreateRequest struct {
	AccountID int64           `json:"account_id" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=twitter wallet blackrock system"`
	Title     string          `json:"title" validate:"required,max=255"`
	Content   string          `json:"content" validate:"required"`
	Priority  string          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Related   json.RawMessage `json:"related_data"`
}

// RuleRequest carries the full definition of a rule; updates replace the
// stored definition.
type RuleRequest struct {
	Name       string          `json:"name" validate:"required,min=1,max=128"`
	Type       string          `json:"type" validate:"required,oneof=twitter wallet blackrock system"`
	Condition  json.RawMessage `json:"condition" validate:"required"`
	Action     json.RawMessage `json:"action" validate:"required"`
	MaxPerHour int             `json:"max_per_hour" validate:"gte=0"`
	MaxPerDay  int             `json:"max_per_day" validate:"gte=0"`
	Active     *bool           `json:"active"`
}

// SettingsRequest carries the mutable settings fields. Nil pointers leave
// the current value untouched.
type SettingsRequest struct {
	Enabled          *bool `json:"enabled"`
	TwitterEnabled   *bool `json:"twitter_enabled"`
	WalletEnabled    *bool `json:"wallet_enabled"`
	BlackrockEnabled *bool `json:"blackrock_enabled"`
	SystemEnabled    *bool `json:"system_enabled"`

	QuietHoursStart *string `json:"quiet_hours_start" validate:"omitempty,datetime=15:04"`
	QuietHoursEnd   *string `json:"quiet_hours_end" validate:"omitempty,datetime=15:04"`

	MaxPerHour *int `json:"max_per_hour" validate:"omitempty,gte=1,lte=1000"`
	MaxPerDay  *int `json:"max_per_day" validate:"omitempty,gte=1,lte=10000"`
}

// Service defines the notification inbox business logic
type Service interface {
	Create(ctx context.Context, req *CreateRequest) (*notification.Notification, error)
	List(ctx context.Context, accountID int64, req *ListRequest) (*ListResult, error)
	UnreadCount(ctx context.Context, accountID int64) (int, error)
	MarkRead(ctx context.Context, accountID, notificationID int64) error
	MarkAllRead(ctx context.Context, accountID int64) (int64, error)
	BatchUpdateStatus(ctx context.Context, accountID int64, ids []int64, status string) (int64, error)
	Delete(ctx context.Context, accountID, notificationID int64) error
	Stats(ctx context.Context, accountID int64) (*notification.Stats, error)

	CreateRule(ctx context.Context, accountID int64, req *RuleRequest) (*notification.Rule, error)
	ListRules(ctx context.Context, accountID int64, active *bool) ([]notification.Rule, error)
	GetRule(ctx context.Context, accountID, ruleID int64) (*notification.Rule, error)
	UpdateRule(ctx context.Context, accountID, ruleID int64, req *RuleRequest) (*notification.Rule, error)
	DeleteRule(ctx context.Context, accountID, ruleID int64) error

	GetSettings(ctx context.Context, accountID int64) (*notification.Settings, error)
	UpdateSettings(ctx context.Context, accountID int64, req *SettingsRequest) (*notification.Settings, error)
}

type notificationService struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new notification service
func NewService(store Store, logger *zap.Logger) Service {
	return &notificationService{
		store:  store,
		logger: logger,
	}
}

func (s *notificationService) Create(ctx context.Context, req *CreateRequest) (*notification.Notification, error) {
	priority := notification.Priority(req.Priority)
	if priority == "" {
		priority = notification.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.BadRequestError(ErrUnknownPriority, "unknown notification priority")
	}
	notificationType := notification.Type(req.Type)
	if !notificationType.Valid() {
		return nil, apperrors.BadRequestError(ErrUnknownType, "unknown notification type")
	}

	n := &notification.Notification{
		AccountID: req.AccountID,
		Type:      notificationType,
		Title:     req.Title,
		Content:   req.Content,
		Priority:  priority,
		Status:    notification.StatusUnread,
		Related:   req.Related,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	metrics.NotificationsCreatedTotal.WithLabelValues(string(n.Type)).Inc()
	return n, nil
}

func (s *notificationService) List(ctx context.Context, accountID int64, req *ListRequest) (*ListResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	opts := []notificationstore.QueryOption{
		notificationstore.WithPage((page-1)*pageSize, pageSize),
	}
	if req.Status != "" {
		opts = append(opts, notificationstore.WithStatus(notification.Status(req.Status)))
	}
	if req.Type != "" {
		opts = append(opts, notificationstore.WithType(notification.Type(req.Type)))
	}

	notifications, total, err := s.store.ListNotifications(ctx, accountID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.store.UnreadCount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread: %w", err)
	}

	return &ListResult{
		Notifications: notifications,
		Total:         total,
		UnreadCount:   unread,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, accountID int64) (int, error) {
	count, err := s.store.UnreadCount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, accountID, notificationID int64) error {
	if err := s.store.MarkRead(ctx, accountID, notificationID); err != nil {
		if errors.Is(err, notificationstore.ErrNotificationNotFound) {
			return apperrors.ResourceNotFoundError(err, "notification not found")
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, accountID int64) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all read: %w", err)
	}
	return n, nil
}

// BatchUpdateStatus applies the status to the caller's rows among ids. Ids
// the caller does not own are skipped, and the returned count reflects only
// the rows actually changed.
func (s *notificationService) BatchUpdateStatus(ctx context.Context, accountID int64, ids []int64, status string) (int64, error) {
	target := notification.Status(status)
	if !target.Valid() {
		return 0, apperrors.BadRequestError(ErrUnknownStatus, "unknown notification status")
	}

	n, err := s.store.BatchSetStatus(ctx, accountID, ids, target)
	if err != nil {
		return 0, fmt.Errorf("failed to batch update notifications: %w", err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, accountID, notificationID int64) error {
	if err := s.store.DeleteNotification(ctx, accountID, notificationID); err != nil {
		if errors.Is(err, notificationstore.ErrNotificationNotFound) {
			return apperrors.ResourceNotFoundError(err, "notification not found")
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (s *notificationService) Stats(ctx context.Context, accountID int64) (*notification.Stats, error) {
	stats, err := s.store.Stats(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification stats: %w", err)
	}
	return stats, nil
}

func (s *notificationService) CreateRule(ctx context.Context, accountID int64, req *RuleRequest) (*notification.Rule, error) {
	rule, err := ruleFromRequest(accountID, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

func (s *notificationService) ListRules(ctx context.Context, accountID int64, active *bool) ([]notification.Rule, error) {
	rules, err := s.store.ListRules(ctx, accountID, active)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

func (s *notificationService) GetRule(ctx context.Context, accountID, ruleID int64) (*notification.Rule, error) {
	rule, err := s.store.GetRule(ctx, accountID, ruleID)
	if err != nil {
		if errors.Is(err, notificationstore.ErrRuleNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "notification rule not found")
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func (s *notificationService) UpdateRule(ctx context.Context, accountID, ruleID int64, req *RuleRequest) (*notification.Rule, error) {
	rule, err := ruleFromRequest(accountID, req)
	if err != nil {
		return nil, err
	}
	rule.ID = ruleID

	if err := s.store.UpdateRule(ctx, rule); err != nil {
		if errors.Is(err, notificationstore.ErrRuleNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "notification rule not found")
		}
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return s.GetRule(ctx, accountID, ruleID)
}

func (s *notificationService) DeleteRule(ctx context.Context, accountID, ruleID int64) error {
	if err := s.store.DeleteRule(ctx, accountID, ruleID); err != nil {
		if errors.Is(err, notificationstore.ErrRuleNotFound) {
			return apperrors.ResourceNotFoundError(err, "notification rule not found")
		}
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

func (s *notificationService) GetSettings(ctx context.Context, accountID int64) (*notification.Settings, error) {
	settings, err := s.store.GetSettings(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

func (s *notificationService) UpdateSettings(ctx context.Context, accountID int64, req *SettingsRequest) (*notification.Settings, error) {
	settings, err := s.store.GetSettings(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.TwitterEnabled != nil {
		settings.TwitterEnabled = *req.TwitterEnabled
	}
	if req.WalletEnabled != nil {
		settings.WalletEnabled = *req.WalletEnabled
	}
	if req.BlackrockEnabled != nil {
		settings.BlackrockEnabled = *req.BlackrockEnabled
	}
	if req.SystemEnabled != nil {
		settings.SystemEnabled = *req.SystemEnabled
	}
	if req.QuietHoursStart != nil {
		settings.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		settings.QuietHoursEnd = *req.QuietHoursEnd
	}
	if req.MaxPerHour != nil {
		settings.MaxPerHour = *req.MaxPerHour
	}
	if req.MaxPerDay != nil {
		settings.MaxPerDay = *req.MaxPerDay
	}

	if err := s.store.UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}

func ruleFromRequest(accountID int64, req *RuleRequest) (*notification.Rule, error) {
	notificationType := notification.Type(req.Type)
	if !notificationType.Valid() {
		return nil, apperrors.BadRequestError(ErrUnknownType, "unknown notification type")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return &notification.Rule{
		AccountID:  accountID,
		Name:       req.Name,
		Type:       notificationType,
		Condition:  req.Condition,
		Action:     req.Action,
		MaxPerHour: req.MaxPerHour,
		MaxPerDay:  req.MaxPerDay,
		Active:     active,
	}, nil
}
