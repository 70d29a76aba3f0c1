package auth

import (
	"context"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyAccount is the context key for the authenticated account
	ContextKeyAccount contextKey = "account"
)

// WithAccount adds the authenticated account to the context
func WithAccount(ctx context.Context, acc *account.Account) context.Context {
	return context.WithValue(ctx, ContextKeyAccount, acc)
}

// AccountFromContext retrieves the authenticated account from the context
func AccountFromContext(ctx context.Context) (*account.Account, bool) {
	acc, ok := ctx.Value(ContextKeyAccount).(*account.Account)
	return acc, ok
}

// AccountIDFromContext retrieves the authenticated account's id from the context
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	acc, ok := AccountFromContext(ctx)
	if !ok {
		return 0, false
	}
	return acc.ID, true
}
