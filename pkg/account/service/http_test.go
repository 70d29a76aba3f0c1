package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
)

// withAccount injects the authenticated account the way the auth middleware
// would, without running token verification.
func withAccount(acc *account.Account, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), acc)))
	})
}

func newTestRouter(t *testing.T) (*fakeStore, http.Handler) {
	t.Helper()
	store := newFakeStore(seedAccount(t, 1, "alice", "alice@x.com", "pw123456"))
	svc := NewService(store, zap.NewNop())

	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())

	caller := &account.Account{ID: 1, Username: "alice"}
	return store, withAccount(caller, r)
}

func TestHTTP_ProfileRoundTrip(t *testing.T) {
	_, h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile status = %d, body %s", rec.Code, rec.Body.String())
	}

	var profile map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile["username"] != "alice" {
		t.Fatalf("username = %v, want alice", profile["username"])
	}

	body, _ := json.Marshal(map[string]any{"username": "alice2", "push_notifications": false})
	req = httptest.NewRequest(http.MethodPut, "/users/profile", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile status = %d, body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile["username"] != "alice2" {
		t.Fatalf("username after update = %v, want alice2", profile["username"])
	}
	if profile["push_notifications"] != false {
		t.Fatalf("push_notifications = %v, want false", profile["push_notifications"])
	}
}

func TestHTTP_ChangePassword(t *testing.T) {
	store, h := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{
		"current_password": "pw123456",
		"new_password":     "new-password",
	})
	req := httptest.NewRequest(http.MethodPost, "/users/change-password", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !auth.CheckPassword(store.accounts[1].PasswordHash, "new-password") {
		t.Fatalf("new password does not verify after change")
	}

	// short new password is rejected before the service runs
	body, _ = json.Marshal(map[string]string{
		"current_password": "new-password",
		"new_password":     "short",
	})
	req = httptest.NewRequest(http.MethodPost, "/users/change-password", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// wrong current password
	body, _ = json.Marshal(map[string]string{
		"current_password": "pw123456",
		"new_password":     "another-password",
	})
	req = httptest.NewRequest(http.MethodPost, "/users/change-password", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHTTP_SubscriptionStatusAndDelete(t *testing.T) {
	store, h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/users/subscription-status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("subscription status = %d, body %s", rec.Code, rec.Body.String())
	}
	var st map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if st["user_type"] != "trial" {
		t.Fatalf("user_type = %v, want trial", st["user_type"])
	}

	req = httptest.NewRequest(http.MethodDelete, "/users/account", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.accounts[1].Status != account.StatusInactive {
		t.Fatalf("account not deactivated")
	}
}
