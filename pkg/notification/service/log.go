package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/notification"
)

const serviceName = "NotificationService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the notification Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{svc: svc, logger: logger}
}

func (ls *logService) logCall(method string, accountID int64, start time.Time, err error) {
	if err != nil {
		ls.logger.Error(method+" failed",
			zap.String("service", serviceName),
			zap.Int64("account_id", accountID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	ls.logger.Info(method+" completed",
		zap.String("service", serviceName),
		zap.Int64("account_id", accountID),
		zap.Duration("duration", time.Since(start)),
	)
}

func (ls *logService) Create(ctx context.Context, req *CreateRequest) (n *notification.Notification, err error) {
	start := time.Now()
	defer func() { ls.logCall("Create", req.AccountID, start, err) }()
	return ls.svc.Create(ctx, req)
}

func (ls *logService) List(ctx context.Context, accountID int64, req *ListRequest) (res *ListResult, err error) {
	start := time.Now()
	defer func() { ls.logCall("List", accountID, start, err) }()
	return ls.svc.List(ctx, accountID, req)
}

func (ls *logService) UnreadCount(ctx context.Context, accountID int64) (n int, err error) {
	start := time.Now()
	defer func() { ls.logCall("UnreadCount", accountID, start, err) }()
	return ls.svc.UnreadCount(ctx, accountID)
}

func (ls *logService) MarkRead(ctx context.Context, accountID, notificationID int64) (err error) {
	start := time.Now()
	defer func() { ls.logCall("MarkRead", accountID, start, err) }()
	return ls.svc.MarkRead(ctx, accountID, notificationID)
}

func (ls *logService) MarkAllRead(ctx context.Context, accountID int64) (n int64, err error) {
	start := time.Now()
	defer func() { ls.logCall("MarkAllRead", accountID, start, err) }()
	return ls.svc.MarkAllRead(ctx, accountID)
}

func (ls *logService) BatchUpdateStatus(ctx context.Context, accountID int64, ids []int64, status string) (n int64, err error) {
	start := time.Now()
	defer func() { ls.logCall("BatchUpdateStatus", accountID, start, err) }()
	return ls.svc.BatchUpdateStatus(ctx, accountID, ids, status)
}

func (ls *logService) Delete(ctx context.Context, accountID, notificationID int64) (err error) {
	start := time.Now()
	defer func() { ls.logCall("Delete", accountID, start, err) }()
	return ls.svc.Delete(ctx, accountID, notificationID)
}

func (ls *logService) Stats(ctx context.Context, accountID int64) (st *notification.Stats, err error) {
	start := time.Now()
	defer func() { ls.logCall("Stats", accountID, start, err) }()
	return ls.svc.Stats(ctx, accountID)
}

func (ls *logService) CreateRule(ctx context.Context, accountID int64, req *RuleRequest) (rule *notification.Rule, err error) {
	start := time.Now()
	defer func() { ls.logCall("CreateRule", accountID, start, err) }()
	return ls.svc.CreateRule(ctx, accountID, req)
}

func (ls *logService) ListRules(ctx context.Context, accountID int64, active *bool) (rules []notification.Rule, err error) {
	start := time.Now()
	defer func() { ls.logCall("ListRules", accountID, start, err) }()
	return ls.svc.ListRules(ctx, accountID, active)
}

func (ls *logService) GetRule(ctx context.Context, accountID, ruleID int64) (rule *notification.Rule, err error) {
	start := time.Now()
	defer func() { ls.logCall("GetRule", accountID, start, err) }()
	return ls.svc.GetRule(ctx, accountID, ruleID)
}

func (ls *logService) UpdateRule(ctx context.Context, accountID, ruleID int64, req *RuleRequest) (rule *notification.Rule, err error) {
	start := time.Now()
	defer func() { ls.logCall("UpdateRule", accountID, start, err) }()
	return ls.svc.UpdateRule(ctx, accountID, ruleID, req)
}

func (ls *logService) DeleteRule(ctx context.Context, accountID, ruleID int64) (err error) {
	start := time.Now()
	defer func() { ls.logCall("DeleteRule", accountID, start, err) }()
	return ls.svc.DeleteRule(ctx, accountID, ruleID)
}

func (ls *logService) GetSettings(ctx context.Context, accountID int64) (settings *notification.Settings, err error) {
	start := time.Now()
	defer func() { ls.logCall("GetSettings", accountID, start, err) }()
	return ls.svc.GetSettings(ctx, accountID)
}

func (ls *logService) UpdateSettings(ctx context.Context, accountID int64, req *SettingsRequest) (settings *notification.Settings, err error) {
	start := time.Now()
	defer func() { ls.logCall("UpdateSettings", accountID, start, err) }()
	return ls.svc.UpdateSettings(ctx, accountID, req)
}
