package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
	apphttp "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/http"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
)

// HTTP wraps the Service to provide the /notifications endpoints
type HTTP struct {
	service  Service
	validate *validator.Validate
	logger   *zap.Logger
}

// RegisterRoutes registers the /notifications endpoints on the given chi
// router. All routes require an authenticated account in the request context.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.list))
		r.Get("/unread-count", apphttp.HandleError(h.unreadCount))
		r.Get("/stats", apphttp.HandleError(h.stats))
		r.Post("/read-all", apphttp.HandleError(h.markAllRead))
		r.Post("/batch-status", apphttp.HandleError(h.batchStatus))
		r.Post("/{id}/read", apphttp.HandleError(h.markRead))
		r.Delete("/{id}", apphttp.HandleError(h.delete))

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", apphttp.HandleError(h.listRules))
			r.Post("/", apphttp.HandleError(h.createRule))
			r.Get("/{id}", apphttp.HandleError(h.getRule))
			r.Put("/{id}", apphttp.HandleError(h.updateRule))
			r.Delete("/{id}", apphttp.HandleError(h.deleteRule))
		})

		r.Get("/settings", apphttp.HandleError(h.getSettings))
		r.Put("/settings", apphttp.HandleError(h.updateSettings))
	})
}

func callerID(r *http.Request) (int64, error) {
	id, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return 0, apperrors.UnAuthorizedError(nil, "not authenticated")
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperrors.BadRequestError(err, "invalid id")
	}
	return id, nil
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	q := r.URL.Query()
	req := ListRequest{
		Status: q.Get("status"),
		Type:   q.Get("type"),
	}
	if v := q.Get("page"); v != "" {
		req.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("page_size"); v != "" {
		req.PageSize, _ = strconv.Atoi(v)
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "validation failed: "+err.Error())
	}

	result, err := h.service.List(r.Context(), accountID, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) unreadCount(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	count, err := h.service.UnreadCount(r.Context(), accountID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"unread_count": count})
	return nil
}

func (h *HTTP) stats(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(r.Context(), accountID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, stats)
	return nil
}

func (h *HTTP) markRead(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if err := h.service.MarkRead(r.Context(), accountID, id); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	return nil
}

func (h *HTTP) markAllRead(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	n, err := h.service.MarkAllRead(r.Context(), accountID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
	return nil
}

func (h *HTTP) batchStatus(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	var req struct {
		IDs    []int64 `json:"notification_ids" validate:"required,min=1,max=500"`
		Status string  `json:"status" validate:"required,oneof=unread read archived"`
	}
	if err := h.decode(r, &req); err != nil {
		return err
	}

	n, err := h.service.BatchUpdateStatus(r.Context(), accountID, req.IDs, req.Status)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
	return nil
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if err := h.service.Delete(r.Context(), accountID, id); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	return nil
}

func (h *HTTP) listRules(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	var active *bool
	if raw := r.URL.Query().Get("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.BadRequestError(err, "invalid active filter")
		}
		active = &parsed
	}

	rules, err := h.service.ListRules(r.Context(), accountID, active)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"rules": rules})
	return nil
}

func (h *HTTP) createRule(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	var req RuleRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	rule, err := h.service.CreateRule(r.Context(), accountID, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, rule)
	return nil
}

func (h *HTTP) getRule(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}

	rule, err := h.service.GetRule(r.Context(), accountID, id)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, rule)
	return nil
}

func (h *HTTP) updateRule(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var req RuleRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	rule, err := h.service.UpdateRule(r.Context(), accountID, id, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, rule)
	return nil
}

func (h *HTTP) deleteRule(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if err := h.service.DeleteRule(r.Context(), accountID, id); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	return nil
}

func (h *HTTP) getSettings(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	settings, err := h.service.GetSettings(r.Context(), accountID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, settings)
	return nil
}

func (h *HTTP) updateSettings(w http.ResponseWriter, r *http.Request) error {
	accountID, err := callerID(r)
	if err != nil {
		return err
	}

	var req SettingsRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	settings, err := h.service.UpdateSettings(r.Context(), accountID, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, settings)
	return nil
}

func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequestError(err, "validation failed: "+err.Error())
	}
	return nil
}
