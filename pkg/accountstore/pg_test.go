package accountstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/pgutil"
	mghelper "github.com/CETANGZHI/crypto-monitor-backend/pkg/pgutil/migrations"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()
	pgutil.RequireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := mghelper.CreateSchema(ctx, db, &AccountDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return ctx, NewStore(db)
}

func newTestAccount(username, email string) *account.Account {
	acc := &account.Account{
		Username: username,
		Email:    email,
		Status:   account.StatusActive,
	}
	acc.GrantTrial(time.Now().UTC(), 3, 5)
	return acc
}

func TestAccountPGStore_CreateAndGet(t *testing.T) {
	ctx, s := setupStore(t)

	acc := newTestAccount("user_alice001", "alice@example.com")
	acc.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	if acc.ID == 0 {
		t.Fatalf("expected generated id to be populated")
	}

	got, err := s.GetAccount(ctx, WithUsername("user_alice001"))
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Fatalf("email = %q, want %q", got.Email, "alice@example.com")
	}
	if got.Tier != account.TierTrial {
		t.Fatalf("tier = %q, want %q", got.Tier, account.TierTrial)
	}
	if got.TrialEnd == nil {
		t.Fatalf("expected trial end to round-trip")
	}
	if got.MaxFollows != 5 {
		t.Fatalf("max follows = %d, want 5", got.MaxFollows)
	}

	byEmail, err := s.GetAccount(ctx, WithEmail("alice@example.com"))
	if err != nil {
		t.Fatalf("GetAccount(WithEmail) failed: %v", err)
	}
	if byEmail.ID != acc.ID {
		t.Fatalf("lookup by email returned id %d, want %d", byEmail.ID, acc.ID)
	}

	if _, err := s.GetAccount(ctx, WithUsername("user_nobody")); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got: %v", err)
	}
}

func TestAccountPGStore_UniqueConstraints(t *testing.T) {
	ctx, s := setupStore(t)

	acc := newTestAccount("user_bob00001", "bob@example.com")
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	dup := newTestAccount("user_bob00001", "other@example.com")
	err := s.CreateAccount(ctx, dup)
	if err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected postgres error type, got: %v", err)
	}
	if !pgErr.IntegrityViolation() {
		t.Fatalf("expected unique violation SQLSTATE=23505, got %s (%v)", pgErr.Field('C'), err)
	}

	dupEmail := newTestAccount("user_carol0001", "bob@example.com")
	err = s.CreateAccount(ctx, dupEmail)
	if err == nil {
		t.Fatalf("expected duplicate email to fail")
	}
	if !errors.As(err, &pgErr) || !pgErr.IntegrityViolation() {
		t.Fatalf("expected unique violation, got: %v", err)
	}
}

func TestAccountPGStore_DeviceAndOAuthLookup(t *testing.T) {
	ctx, s := setupStore(t)

	acc := newTestAccount("user_dev000001", "")
	acc.DeviceID = "device-xyz-123"
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	byDevice, err := s.GetAccount(ctx, WithDeviceID("device-xyz-123"))
	if err != nil {
		t.Fatalf("GetAccount(WithDeviceID) failed: %v", err)
	}
	if byDevice.ID != acc.ID {
		t.Fatalf("device lookup returned id %d, want %d", byDevice.ID, acc.ID)
	}

	oauthAcc := newTestAccount("user_goo000001", "goo@example.com")
	oauthAcc.OAuth = account.OAuthIdentity{Provider: "google", Subject: "sub-42", EmailVerified: true}
	if err := s.CreateAccount(ctx, oauthAcc); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	byOAuth, err := s.GetAccount(ctx, WithOAuth("google", "sub-42"))
	if err != nil {
		t.Fatalf("GetAccount(WithOAuth) failed: %v", err)
	}
	if byOAuth.ID != oauthAcc.ID {
		t.Fatalf("oauth lookup returned id %d, want %d", byOAuth.ID, oauthAcc.ID)
	}
	if !byOAuth.OAuth.EmailVerified {
		t.Fatalf("expected oauth email verified flag to round-trip")
	}

	if _, err := s.GetAccount(ctx, WithOAuth("apple", "sub-42")); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for mismatched provider, got: %v", err)
	}
}

func TestAccountPGStore_UpdateAccount(t *testing.T) {
	ctx, s := setupStore(t)

	acc := newTestAccount("user_upd000001", "upd@example.com")
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	end := now.Add(30 * 24 * time.Hour)
	acc.Tier = account.TierMonthly
	acc.SubscriptionStart = &now
	acc.SubscriptionEnd = &end
	acc.MaxFollows = 50
	acc.SMSNotifications = true
	if err := s.UpdateAccount(ctx, acc); err != nil {
		t.Fatalf("UpdateAccount() failed: %v", err)
	}

	got, err := s.GetAccount(ctx, WithID(acc.ID))
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Tier != account.TierMonthly {
		t.Fatalf("tier = %q, want %q", got.Tier, account.TierMonthly)
	}
	if got.SubscriptionEnd == nil || !got.SubscriptionEnd.Equal(end) {
		t.Fatalf("subscription end = %v, want %v", got.SubscriptionEnd, end)
	}
	if got.MaxFollows != 50 {
		t.Fatalf("max follows = %d, want 50", got.MaxFollows)
	}
	if !got.SMSNotifications {
		t.Fatalf("expected sms notifications to be enabled")
	}

	missing := newTestAccount("user_ghost0001", "")
	missing.ID = 999999
	if err := s.UpdateAccount(ctx, missing); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for missing row, got: %v", err)
	}
}

func TestAccountPGStore_TouchLastLogin(t *testing.T) {
	ctx, s := setupStore(t)

	acc := newTestAccount("user_log000001", "")
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	if acc.LastLoginAt != nil {
		t.Fatalf("expected last login to start unset")
	}

	if err := s.TouchLastLogin(ctx, acc.ID); err != nil {
		t.Fatalf("TouchLastLogin() failed: %v", err)
	}

	got, err := s.GetAccount(ctx, WithID(acc.ID))
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.LastLoginAt == nil {
		t.Fatalf("expected last login to be set")
	}
}

func TestAccountPGStore_DeactivateAccount(t *testing.T) {
	ctx, s := setupStore(t)

	acc := newTestAccount("user_del000001", "del@example.com")
	acc.DeviceID = "device-del-1"
	if err := s.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	if err := s.DeactivateAccount(ctx, acc.ID); err != nil {
		t.Fatalf("DeactivateAccount() failed: %v", err)
	}

	got, err := s.GetAccount(ctx, WithID(acc.ID))
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if got.Status != account.StatusInactive {
		t.Fatalf("status = %q, want %q", got.Status, account.StatusInactive)
	}
	if got.Email != "" || got.DeviceID != "" {
		t.Fatalf("expected unique identity fields to be cleared, got email=%q device=%q", got.Email, got.DeviceID)
	}

	// cleared identity can be reused by a fresh registration
	again := newTestAccount("user_del000002", "del@example.com")
	again.DeviceID = "device-del-1"
	if err := s.CreateAccount(ctx, again); err != nil {
		t.Fatalf("expected cleared email/device to be reusable: %v", err)
	}

	if err := s.DeactivateAccount(ctx, 999999); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got: %v", err)
	}
}
