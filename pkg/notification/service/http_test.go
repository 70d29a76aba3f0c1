package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
)

func withAccount(accountID int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc := &account.Account{ID: accountID, Status: account.StatusActive}
		ctx := auth.WithAccount(r.Context(), acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter(t *testing.T, accountID int64) (Service, http.Handler) {
	t.Helper()
	_, svc := newTestService(t)
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	return svc, withAccount(accountID, r)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_ListAndMarkRead(t *testing.T) {
	svc, handler := newTestRouter(t, 1)
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		n, err := svc.Create(ctx, &CreateRequest{
			AccountID: 1, Type: "twitter", Title: "t", Content: "c",
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		last = n.ID
	}

	rec := doJSON(t, handler, http.MethodGet, "/notifications?page=1&page_size=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var listed ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if listed.Total != 3 || len(listed.Notifications) != 2 {
		t.Fatalf("total = %d len = %d, want 3/2", listed.Total, len(listed.Notifications))
	}
	if listed.Notifications[0].ID != last {
		t.Fatalf("expected newest first")
	}

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/notifications/%d/read", last), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/notifications/unread-count", nil)
	var counted struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &counted); err != nil {
		t.Fatalf("failed to decode count: %v", err)
	}
	if counted.UnreadCount != 2 {
		t.Fatalf("unread = %d, want 2", counted.UnreadCount)
	}

	rec = doJSON(t, handler, http.MethodPost, "/notifications/read/abc", nil)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusBadRequest && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bogus path status = %d", rec.Code)
	}
}

func TestHTTP_ListValidation(t *testing.T) {
	_, handler := newTestRouter(t, 1)

	rec := doJSON(t, handler, http.MethodGet, "/notifications?status=junk", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestHTTP_BatchStatus(t *testing.T) {
	svc, handler := newTestRouter(t, 1)
	ctx := context.Background()

	n, err := svc.Create(ctx, &CreateRequest{AccountID: 1, Type: "wallet", Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	other, err := svc.Create(ctx, &CreateRequest{AccountID: 2, Type: "wallet", Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/notifications/batch-status", map[string]any{
		"notification_ids": []int64{n.ID, other.ID},
		"status":           "archived",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Updated != 1 {
		t.Fatalf("updated = %d, want 1 (foreign id skipped)", resp.Updated)
	}

	rec = doJSON(t, handler, http.MethodPost, "/notifications/batch-status", map[string]any{
		"notification_ids": []int64{},
		"status":           "read",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty ids status = %d, want 400", rec.Code)
	}
}

func TestHTTP_RuleCRUD(t *testing.T) {
	_, handler := newTestRouter(t, 1)

	rec := doJSON(t, handler, http.MethodPost, "/notifications/rules", map[string]any{
		"name":      "doge mentions",
		"type":      "twitter",
		"condition": map[string]any{"keywords": []string{"doge"}},
		"action":    map[string]any{"channels": []string{"push"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     int64 `json:"id"`
		Active bool  `json:"active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !created.Active {
		t.Fatalf("expected active by default")
	}

	rec = doJSON(t, handler, http.MethodPut, fmt.Sprintf("/notifications/rules/%d", created.ID), map[string]any{
		"name":      "renamed",
		"type":      "twitter",
		"condition": map[string]any{"keywords": []string{"doge"}},
		"action":    map[string]any{"channels": []string{"email"}},
		"active":    false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/notifications/rules/%d", created.ID), nil)
	var got struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got.Name != "renamed" || got.Active {
		t.Fatalf("update did not stick: %+v", got)
	}

	// the rule is inactive now, so the active filter excludes it
	var listed struct {
		Rules []json.RawMessage `json:"rules"`
	}
	rec = doJSON(t, handler, http.MethodGet, "/notifications/rules?active=true", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(listed.Rules) != 0 {
		t.Fatalf("active=true returned %d rules, want 0", len(listed.Rules))
	}
	rec = doJSON(t, handler, http.MethodGet, "/notifications/rules?active=false", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(listed.Rules) != 1 {
		t.Fatalf("active=false returned %d rules, want 1", len(listed.Rules))
	}
	rec = doJSON(t, handler, http.MethodGet, "/notifications/rules?active=junk", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad active filter status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/notifications/rules", map[string]any{
		"name": "missing everything",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid rule status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, fmt.Sprintf("/notifications/rules/%d", created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/notifications/rules/%d", created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestHTTP_Settings(t *testing.T) {
	_, handler := newTestRouter(t, 1)

	rec := doJSON(t, handler, http.MethodGet, "/notifications/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPut, "/notifications/settings", map[string]any{
		"quiet_hours_start": "25:99",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid quiet hours status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, "/notifications/settings", map[string]any{
		"quiet_hours_start": "22:30",
		"max_per_hour":      3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var settings struct {
		QuietHoursStart string `json:"quiet_hours_start"`
		MaxPerHour      int    `json:"max_per_hour"`
		Enabled         bool   `json:"enabled"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if settings.QuietHoursStart != "22:30" || settings.MaxPerHour != 3 {
		t.Fatalf("update not reflected: %+v", settings)
	}
	if !settings.Enabled {
		t.Fatalf("untouched toggle lost its default")
	}
}
