package identity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
)

const serviceName = "IdentityService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the identity Service.
// It logs method entry/exit, duration and errors. Passwords, codes and
// tokens are never logged.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) RegisterWithPassword(ctx context.Context, req *RegisterRequest) (res *AuthResult, err error) {
	start := time.Now()
	ls.logger.Info("RegisterWithPassword started",
		zap.String("service", serviceName),
		zap.String("username", req.Username),
		zap.String("email", redactEmail(req.Email)),
	)

	defer func() {
		if err != nil {
			ls.logger.Error("RegisterWithPassword failed",
				zap.String("service", serviceName),
				zap.String("username", req.Username),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("RegisterWithPassword completed",
				zap.String("service", serviceName),
				zap.Int64("account_id", res.Account.ID),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}()

	return ls.svc.RegisterWithPassword(ctx, req)
}

func (ls *logService) AuthenticatePassword(ctx context.Context, identifier, password string) (res *AuthResult, err error) {
	start := time.Now()

	defer func() {
		if err != nil {
			// failed logins log at warn, they are routine
			ls.logger.Warn("AuthenticatePassword failed",
				zap.String("service", serviceName),
				zap.String("identifier", redactEmail(identifier)),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("AuthenticatePassword completed",
				zap.String("service", serviceName),
				zap.Int64("account_id", res.Account.ID),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}()

	return ls.svc.AuthenticatePassword(ctx, identifier, password)
}

func (ls *logService) RegisterOrResumeByDevice(ctx context.Context, req *DeviceRequest) (res *AuthResult, err error) {
	start := time.Now()

	defer func() {
		if err != nil {
			ls.logger.Error("RegisterOrResumeByDevice failed",
				zap.String("service", serviceName),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("RegisterOrResumeByDevice completed",
				zap.String("service", serviceName),
				zap.Int64("account_id", res.Account.ID),
				zap.Bool("is_new_account", res.IsNewAccount),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}()

	return ls.svc.RegisterOrResumeByDevice(ctx, req)
}

func (ls *logService) ResolveOAuth(ctx context.Context, claim *OAuthClaim) (res *AuthResult, err error) {
	start := time.Now()
	ls.logger.Info("ResolveOAuth started",
		zap.String("service", serviceName),
		zap.String("provider", claim.Provider),
		zap.String("email", redactEmail(claim.Email)),
	)

	defer func() {
		if err != nil {
			ls.logger.Error("ResolveOAuth failed",
				zap.String("service", serviceName),
				zap.String("provider", claim.Provider),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("ResolveOAuth completed",
				zap.String("service", serviceName),
				zap.String("provider", claim.Provider),
				zap.Int64("account_id", res.Account.ID),
				zap.Bool("is_new_account", res.IsNewAccount),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}()

	return ls.svc.ResolveOAuth(ctx, claim)
}

func (ls *logService) Refresh(ctx context.Context, refreshToken string) (pair *auth.TokenPair, err error) {
	start := time.Now()

	defer func() {
		if err != nil {
			ls.logger.Warn("Refresh failed",
				zap.String("service", serviceName),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Refresh completed",
				zap.String("service", serviceName),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}()

	return ls.svc.Refresh(ctx, refreshToken)
}

func (ls *logService) SendVerificationCode(ctx context.Context, email string) (code string, err error) {
	start := time.Now()

	defer func() {
		if err != nil {
			ls.logger.Warn("SendVerificationCode failed",
				zap.String("service", serviceName),
				zap.String("email", redactEmail(email)),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("SendVerificationCode completed",
				zap.String("service", serviceName),
				zap.String("email", redactEmail(email)),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}()

	return ls.svc.SendVerificationCode(ctx, email)
}

// redactEmail keeps the first two characters of the local part and the
// domain, enough to correlate log lines without storing the address.
func redactEmail(email string) string {
	if email == "" {
		return "<empty>"
	}
	at := -1
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at <= 2 {
		return "***" + email[at+1:]
	}
	return email[:2] + "***" + email[at:]
}
