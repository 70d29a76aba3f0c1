package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
)

const serviceName = "AccountService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the account Service.
// Passwords are never logged.
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

func (ls *logService) GetProfile(ctx context.Context, accountID int64) (p *account.Profile, err error) {
	start := time.Now()
	defer func() { ls.logCall("GetProfile", accountID, start, err) }()
	return ls.svc.GetProfile(ctx, accountID)
}

func (ls *logService) UpdateProfile(ctx context.Context, accountID int64, req *UpdateProfileRequest) (p *account.Profile, err error) {
	start := time.Now()
	defer func() { ls.logCall("UpdateProfile", accountID, start, err) }()
	return ls.svc.UpdateProfile(ctx, accountID, req)
}

func (ls *logService) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword string) (err error) {
	start := time.Now()
	defer func() { ls.logCall("ChangePassword", accountID, start, err) }()
	return ls.svc.ChangePassword(ctx, accountID, currentPassword, newPassword)
}

func (ls *logService) SetPassword(ctx context.Context, accountID int64, newPassword string) (err error) {
	start := time.Now()
	defer func() { ls.logCall("SetPassword", accountID, start, err) }()
	return ls.svc.SetPassword(ctx, accountID, newPassword)
}

func (ls *logService) SubscriptionStatus(ctx context.Context, accountID int64) (st *SubscriptionStatus, err error) {
	start := time.Now()
	defer func() { ls.logCall("SubscriptionStatus", accountID, start, err) }()
	return ls.svc.SubscriptionStatus(ctx, accountID)
}

func (ls *logService) DeleteAccount(ctx context.Context, accountID int64) (err error) {
	start := time.Now()
	defer func() { ls.logCall("DeleteAccount", accountID, start, err) }()
	return ls.svc.DeleteAccount(ctx, accountID)
}
