package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
	apphttp "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/http"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
)

// HTTP wraps the Service to provide the /users endpoints
type HTTP struct {
	service  Service
	validate *validator.Validate
	logger   *zap.Logger
}

// RegisterRoutes registers the /users endpoints on the given chi router.
// All routes require an authenticated account in the request context.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}

	r.Route("/users", func(r chi.Router) {
		r.Get("/profile", apphttp.HandleError(h.getProfile))
		r.Put("/profile", apphttp.HandleError(h.updateProfile))
		r.Post("/change-password", apphttp.HandleError(h.changePassword))
		r.Post("/set-password", apphttp.HandleError(h.setPassword))
		r.Get("/subscription-status", apphttp.HandleError(h.subscriptionStatus))
		r.Delete("/account", apphttp.HandleError(h.deleteAccount))
	})
}

func callerID(r *http.Request) (int64, error) {
	id, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return 0, apperrors.UnAuthorizedError(nil, "not authenticated")
	}
	return id, nil
}

func (h *HTTP) getProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := callerID(r)
	if err != nil {
		return err
	}

	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, profile)
	return nil
}

func (h *HTTP) updateProfile(w http.ResponseWriter, r *http.Request) error {
	id, err := callerID(r)
	if err != nil {
		return err
	}

	var req UpdateProfileRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	profile, err := h.service.UpdateProfile(r.Context(), id, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, profile)
	return nil
}

func (h *HTTP) changePassword(w http.ResponseWriter, r *http.Request) error {
	id, err := callerID(r)
	if err != nil {
		return err
	}

	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	}
	if err := h.decode(r, &req); err != nil {
		return err
	}

	if err := h.service.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	return nil
}

func (h *HTTP) setPassword(w http.ResponseWriter, r *http.Request) error {
	id, err := callerID(r)
	if err != nil {
		return err
	}

	var req struct {
		NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
	}
	if err := h.decode(r, &req); err != nil {
		return err
	}

	if err := h.service.SetPassword(r.Context(), id, req.NewPassword); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	return nil
}

func (h *HTTP) subscriptionStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := callerID(r)
	if err != nil {
		return err
	}

	status, err := h.service.SubscriptionStatus(r.Context(), id)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, status)
	return nil
}

func (h *HTTP) deleteAccount(w http.ResponseWriter, r *http.Request) error {
	id, err := callerID(r)
	if err != nil {
		return err
	}

	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
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
