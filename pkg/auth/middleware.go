package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/accountstore"
	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
	apphttp "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/http"
)

// AccountLoader loads the account an access token was issued for.
type AccountLoader interface {
	GetAccount(ctx context.Context, opts ...accountstore.QueryOption) (*account.Account, error)
}

// Middleware authenticates requests with bearer access tokens and resolves
// the owning account into the request context.
type Middleware struct {
	codec  *TokenCodec
	loader AccountLoader
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(codec *TokenCodec, loader AccountLoader) *Middleware {
	return &Middleware{codec: codec, loader: loader}
}

// RequireAccount rejects requests without a valid access token or whose
// account is suspended or inactive.
func (m *Middleware) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, err := m.resolve(r)
		if err != nil {
			apphttp.DefaultErrorHandler(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
	})
}

// RequireActiveSubscription additionally rejects accounts whose derived
// entitlement has lapsed. Use on subscription-gated content routes.
func (m *Middleware) RequireActiveSubscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, err := m.resolve(r)
		if err != nil {
			apphttp.DefaultErrorHandler(w, err)
			return
		}
		if !acc.IsSubscriptionActive(time.Now()) {
			apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "subscription required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
	})
}

func (m *Middleware) resolve(r *http.Request) (*account.Account, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, apperrors.UnAuthorizedError(nil, "missing bearer token")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	accountID, err := m.codec.Verify(token, PurposeAccess)
	if err != nil {
		return nil, apperrors.UnAuthorizedError(err, "invalid access token")
	}

	acc, err := m.loader.GetAccount(r.Context(), accountstore.WithID(accountID))
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return nil, apperrors.UnAuthorizedError(err, "account no longer exists")
		}
		return nil, apperrors.GeneralError(err)
	}

	switch acc.Status {
	case account.StatusSuspended:
		return nil, apperrors.ForbiddenError(nil, "account is suspended")
	case account.StatusInactive:
		return nil, apperrors.UnAuthorizedError(nil, "account is deactivated")
	}

	return acc, nil
}
