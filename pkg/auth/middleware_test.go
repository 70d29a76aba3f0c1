package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/accountstore"
)

type fakeLoader struct {
	accounts map[int64]*account.Account
}

func (f *fakeLoader) GetAccount(_ context.Context, opts ...accountstore.QueryOption) (*account.Account, error) {
	options := &accountstore.QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.ID != nil {
		if acc, ok := f.accounts[*options.ID]; ok {
			return acc, nil
		}
	}
	return nil, accountstore.ErrAccountNotFound
}

func okHandler(t *testing.T, wantID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, ok := AccountFromContext(r.Context())
		if !ok {
			t.Errorf("expected account in request context")
		} else if acc.ID != wantID {
			t.Errorf("context account id = %d, want %d", acc.ID, wantID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func trialAccount(id int64, status account.Status, trialEnd time.Time) *account.Account {
	return &account.Account{
		ID:       id,
		Username: "user_mw",
		Tier:     account.TierTrial,
		Status:   status,
		TrialEnd: &trialEnd,
	}
}

func TestMiddleware_RequireAccount(t *testing.T) {
	codec := testCodec()
	loader := &fakeLoader{accounts: map[int64]*account.Account{
		1: trialAccount(1, account.StatusActive, time.Now().Add(time.Hour)),
		2: trialAccount(2, account.StatusSuspended, time.Now().Add(time.Hour)),
	}}
	mw := NewMiddleware(codec, loader)
	h := mw.RequireAccount(okHandler(t, 1))

	pair, err := codec.IssuePair(1, time.Now())
	if err != nil {
		t.Fatalf("IssuePair() failed: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + pair.AccessToken, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"refresh token rejected", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}

	t.Run("unknown account", func(t *testing.T) {
		stale, err := codec.IssuePair(99, time.Now())
		if err != nil {
			t.Fatalf("IssuePair() failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+stale.AccessToken)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("suspended account", func(t *testing.T) {
		suspended, err := codec.IssuePair(2, time.Now())
		if err != nil {
			t.Fatalf("IssuePair() failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+suspended.AccessToken)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}

func TestMiddleware_RequireActiveSubscription(t *testing.T) {
	codec := testCodec()
	loader := &fakeLoader{accounts: map[int64]*account.Account{
		1: trialAccount(1, account.StatusActive, time.Now().Add(time.Hour)),
		2: trialAccount(2, account.StatusActive, time.Now().Add(-time.Hour)),
	}}
	mw := NewMiddleware(codec, loader)
	h := mw.RequireActiveSubscription(okHandler(t, 1))

	live, err := codec.IssuePair(1, time.Now())
	if err != nil {
		t.Fatalf("IssuePair() failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/gated", nil)
	req.Header.Set("Authorization", "Bearer "+live.AccessToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("live trial status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	expired, err := codec.IssuePair(2, time.Now())
	if err != nil {
		t.Fatalf("IssuePair() failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/gated", nil)
	req.Header.Set("Authorization", "Bearer "+expired.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expired trial status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
