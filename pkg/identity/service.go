// Package identity implements account registration, credential
// authentication and OAuth identity resolution.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/internal/metrics"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/accountstore"
	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/verification"
)

const (
	// usernameSuffixLength is the number of random characters appended to the
	// "user_" prefix when a username is synthesized.
	usernameSuffixLength = 8

	// maxUsernameAttempts bounds collision retries during synthesis.
	maxUsernameAttempts = 10

	// generatedPasswordLength is the length of the throwaway password given
	// to device-registered accounts. It is never revealed to the user.
	generatedPasswordLength = 12
)

var (
	ErrUsernameTaken           = errors.New("username already registered")
	ErrEmailTaken              = errors.New("email already registered")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
)

// Store is the narrow data-access interface for the identity service.
// Defined here to keep the service decoupled from accountstore implementation details.
type Store interface {
	CreateAccount(ctx context.Context, acc *account.Account) error
	GetAccount(ctx context.Context, opts ...accountstore.QueryOption) (*account.Account, error)
	AccountExists(ctx context.Context, opts ...accountstore.QueryOption) (bool, error)
	UpdateAccount(ctx context.Context, acc *account.Account) error
	TouchLastLogin(ctx context.Context, id int64) error
}

// Codes issues and redeems email verification codes.
type Codes interface {
	Issue(ctx context.Context, destination string) (string, error)
	Consume(ctx context.Context, destination, code string) error
}

// RegisterRequest is a password registration.
type RegisterRequest struct {
	Username         string `json:"username" validate:"required,min=3,max=64"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8,max=128"`
	VerificationCode string `json:"verification_code" validate:"required,len=6,numeric"`
}

// DeviceRequest is an anonymous device registration.
type DeviceRequest struct {
	DeviceID  string `json:"device_id" validate:"required,min=8,max=255"`
	UserAgent string `json:"user_agent" validate:"max=500"`
	ClientIP  string `json:"-"`
}

// OAuthClaim is the verified identity extracted from a provider id token.
type OAuthClaim struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
}

// AuthResult couples a resolved account with the token pair issued for it.
type AuthResult struct {
	Account      *account.Account
	Tokens       *auth.TokenPair
	IsNewAccount bool
}

// Service defines the identity resolution business logic
type Service interface {
	RegisterWithPassword(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	AuthenticatePassword(ctx context.Context, identifier, password string) (*AuthResult, error)
	RegisterOrResumeByDevice(ctx context.Context, req *DeviceRequest) (*AuthResult, error)
	ResolveOAuth(ctx context.Context, claim *OAuthClaim) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	SendVerificationCode(ctx context.Context, email string) (string, error)
}

type identityService struct {
	store   Store
	codes   Codes
	codec   *auth.TokenCodec
	limiter *verification.SendLimiter
	trial   config.TrialConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new identity service
func NewService(
	store Store,
	codes Codes,
	codec *auth.TokenCodec,
	limiter *verification.SendLimiter,
	trial config.TrialConfig,
	logger *zap.Logger,
) Service {
	return &identityService{
		store:   store,
		codes:   codes,
		codec:   codec,
		limiter: limiter,
		trial:   trial,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterWithPassword creates a password account after redeeming the email
// verification code. The email conflict is reported before the username
// conflict so a caller retrying with a fresh username sees a stable error.
func (s *identityService) RegisterWithPassword(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	emailTaken, err := s.store.AccountExists(ctx, accountstore.WithEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if emailTaken {
		return nil, apperrors.ConflictError(ErrEmailTaken, "email already registered")
	}

	usernameTaken, err := s.store.AccountExists(ctx, accountstore.WithUsername(req.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if usernameTaken {
		return nil, apperrors.ConflictError(ErrUsernameTaken, "username already registered")
	}

	if err := s.codes.Consume(ctx, req.Email, req.VerificationCode); err != nil {
		if errors.Is(err, verification.ErrCodeMismatch) {
			return nil, apperrors.BadRequestError(ErrInvalidVerificationCode, "invalid or expired verification code")
		}
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	acc := &account.Account{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Status:       account.StatusActive,
	}
	acc.GrantTrial(s.now().UTC(), s.trial.PeriodDays, s.trial.MaxFollows)

	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	metrics.RegistrationsTotal.WithLabelValues("password").Inc()

	return s.finishLogin(ctx, acc, true)
}

// AuthenticatePassword resolves the identifier as username or email. Unknown
// identifiers and wrong passwords are indistinguishable: both paths run a
// bcrypt comparison and both return the same error.
func (s *identityService) AuthenticatePassword(ctx context.Context, identifier, password string) (*AuthResult, error) {
	acc, err := s.store.GetAccount(ctx, accountstore.WithUsername(identifier))
	if errors.Is(err, accountstore.ErrAccountNotFound) {
		acc, err = s.store.GetAccount(ctx, accountstore.WithEmail(identifier))
	}
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			auth.CheckPassword("", password)
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid username or password")
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if !auth.CheckPassword(acc.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid username or password")
	}
	if acc.Status == account.StatusSuspended {
		return nil, apperrors.ForbiddenError(nil, "account is suspended")
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return s.finishLogin(ctx, acc, false)
}

// RegisterOrResumeByDevice is idempotent per device id: a known device
// resumes its account, an unknown one gets a fresh trial account with a
// synthesized username and an unrecoverable random password.
func (s *identityService) RegisterOrResumeByDevice(ctx context.Context, req *DeviceRequest) (*AuthResult, error) {
	// UUID device ids arrive in mixed case from some clients; normalize so
	// the same physical device maps to one row.
	if parsed, err := uuid.Parse(req.DeviceID); err == nil {
		req.DeviceID = parsed.String()
	}

	acc, err := s.store.GetAccount(ctx, accountstore.WithDeviceID(req.DeviceID))
	if err == nil {
		return s.finishLogin(ctx, acc, false)
	}
	if !errors.Is(err, accountstore.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}

	username, err := s.synthesizeUsername(ctx)
	if err != nil {
		return nil, err
	}

	password, err := randomString(generatedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	acc = &account.Account{
		Username:     username,
		PasswordHash: hash,
		Status:       account.StatusActive,
		DeviceID:     req.DeviceID,
		UserAgent:    req.UserAgent,
		IPAddress:    req.ClientIP,
	}
	acc.GrantTrial(s.now().UTC(), s.trial.PeriodDays, s.trial.MaxFollows)

	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to create device account: %w", err)
	}
	metrics.RegistrationsTotal.WithLabelValues("device").Inc()

	return s.finishLogin(ctx, acc, true)
}

// ResolveOAuth resolves a verified provider identity to an account. Lookup
// order is (provider, subject), then email linking, then fresh creation.
// Linking only adds OAuth attributes, it never overwrites username,
// password or any other identity field of the matched account.
func (s *identityService) ResolveOAuth(ctx context.Context, claim *OAuthClaim) (*AuthResult, error) {
	acc, err := s.store.GetAccount(ctx, accountstore.WithOAuth(claim.Provider, claim.Subject))
	if err == nil {
		return s.finishLogin(ctx, acc, false)
	}
	if !errors.Is(err, accountstore.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to look up oauth identity: %w", err)
	}

	// Only provider-verified emails may claim an existing account; an
	// attacker-controlled provider account with someone else's address must
	// not take over the password account holding it.
	if claim.Email != "" && claim.EmailVerified {
		acc, err = s.store.GetAccount(ctx, accountstore.WithEmail(claim.Email))
		if err == nil {
			acc.OAuth = account.OAuthIdentity{
				Provider:      claim.Provider,
				Subject:       claim.Subject,
				EmailVerified: claim.EmailVerified,
			}
			if err := s.store.UpdateAccount(ctx, acc); err != nil {
				return nil, fmt.Errorf("failed to link oauth identity: %w", err)
			}
			return s.finishLogin(ctx, acc, false)
		}
		if !errors.Is(err, accountstore.ErrAccountNotFound) {
			return nil, fmt.Errorf("failed to look up email: %w", err)
		}
	}

	username, err := s.synthesizeUsername(ctx)
	if err != nil {
		return nil, err
	}

	email := ""
	if claim.EmailVerified {
		email = claim.Email
	}
	acc = &account.Account{
		Username: username,
		Email:    email,
		Status:   account.StatusActive,
		OAuth: account.OAuthIdentity{
			Provider:      claim.Provider,
			Subject:       claim.Subject,
			EmailVerified: claim.EmailVerified,
		},
	}
	acc.GrantTrial(s.now().UTC(), s.trial.PeriodDays, s.trial.MaxFollows)

	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to create oauth account: %w", err)
	}
	metrics.RegistrationsTotal.WithLabelValues(claim.Provider).Inc()

	return s.finishLogin(ctx, acc, true)
}

// Refresh exchanges a refresh token for a fresh token pair.
func (s *identityService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	accountID, err := s.codec.Verify(refreshToken, auth.PurposeRefresh)
	if err != nil {
		return nil, apperrors.UnAuthorizedError(err, "invalid refresh token")
	}

	acc, err := s.store.GetAccount(ctx, accountstore.WithID(accountID))
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return nil, apperrors.UnAuthorizedError(err, "account no longer exists")
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if acc.Status == account.StatusSuspended || acc.Status == account.StatusInactive {
		return nil, apperrors.ForbiddenError(nil, "account is not active")
	}

	pair, err := s.codec.IssuePair(acc.ID, s.now())
	if err != nil {
		return nil, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(auth.PurposeAccess).Inc()
	metrics.TokensIssuedTotal.WithLabelValues(auth.PurposeRefresh).Inc()
	return pair, nil
}

// SendVerificationCode issues a fresh code for the email. The code is
// returned to the caller only for delivery; the HTTP layer never echoes it.
func (s *identityService) SendVerificationCode(ctx context.Context, email string) (string, error) {
	if !s.limiter.Allow(email) {
		return "", apperrors.BadRequestError(nil, "verification code requested too frequently")
	}

	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to issue verification code: %w", err)
	}
	return code, nil
}

func (s *identityService) finishLogin(ctx context.Context, acc *account.Account, isNew bool) (*AuthResult, error) {
	if err := s.store.TouchLastLogin(ctx, acc.ID); err != nil {
		// login still succeeds, the stamp is best effort
		s.logger.Warn("failed to stamp last login",
			zap.Int64("account_id", acc.ID),
			zap.Error(err))
	}

	pair, err := s.codec.IssuePair(acc.ID, s.now())
	if err != nil {
		return nil, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(auth.PurposeAccess).Inc()
	metrics.TokensIssuedTotal.WithLabelValues(auth.PurposeRefresh).Inc()

	return &AuthResult{Account: acc, Tokens: pair, IsNewAccount: isNew}, nil
}

func (s *identityService) synthesizeUsername(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		suffix, err := randomString(usernameSuffixLength)
		if err != nil {
			return "", err
		}
		username := "user_" + suffix

		taken, err := s.store.AccountExists(ctx, accountstore.WithUsername(username))
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if !taken {
			return username, nil
		}
	}
	return "", fmt.Errorf("failed to synthesize a unique username after %d attempts", maxUsernameAttempts)
}

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomString(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(randomAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		out[i] = randomAlphabet[n.Int64()]
	}
	return string(out), nil
}
