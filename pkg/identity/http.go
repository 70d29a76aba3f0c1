package identity

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	apperrors "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/errors"
	apphttp "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/http"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	validate *validator.Validate
	logger   *zap.Logger
}

// RegisterRoutes registers the /auth endpoints on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", apphttp.HandleError(h.register))
		r.Post("/login", apphttp.HandleError(h.login))
		r.Post("/refresh_token", apphttp.HandleError(h.refresh))
		r.Post("/auto_register", apphttp.HandleError(h.autoRegister))
		r.Post("/send_verification_code", apphttp.HandleError(h.sendVerificationCode))
	})
}

// tokenEnvelope is the response body of every endpoint that logs a user in.
type tokenEnvelope struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int64            `json:"expires_in"`
	User         *account.Profile `json:"user"`
	IsNewUser    bool             `json:"is_new_user"`
}

func newTokenEnvelope(res *AuthResult) *tokenEnvelope {
	return &tokenEnvelope{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		TokenType:    res.Tokens.TokenType,
		ExpiresIn:    res.Tokens.ExpiresIn,
		User:         account.NewProfile(res.Account),
		IsNewUser:    res.IsNewAccount,
	}
}

func (h *HTTP) register(w http.ResponseWriter, r *http.Request) error {
	var req RegisterRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	res, err := h.service.RegisterWithPassword(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, newTokenEnvelope(res))
	return nil
}

// login accepts OAuth2-style form credentials: username + password.
func (h *HTTP) login(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return apperrors.BadRequestError(err, "invalid form data")
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		return apperrors.BadRequestError(nil, "username and password are required")
	}

	res, err := h.service.AuthenticatePassword(r.Context(), username, password)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, newTokenEnvelope(res))
	return nil
}

func (h *HTTP) refresh(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		return err
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, pair)
	return nil
}

func (h *HTTP) autoRegister(w http.ResponseWriter, r *http.Request) error {
	var req DeviceRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	req.ClientIP = clientIP(r)

	res, err := h.service.RegisterOrResumeByDevice(r.Context(), &req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.IsNewAccount {
		status = http.StatusCreated
	}
	apphttp.WriteJSON(w, status, newTokenEnvelope(res))
	return nil
}

func (h *HTTP) sendVerificationCode(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := h.decode(r, &req); err != nil {
		return err
	}

	code, err := h.service.SendVerificationCode(r.Context(), req.Email)
	if err != nil {
		return err
	}

	// Delivery is a collaborator this service does not own; the code is
	// logged for operators until a mail sender is wired in.
	h.logger.Info("verification code issued",
		zap.String("email", redactEmail(req.Email)),
		zap.Int("code_length", len(code)))

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "verification code sent",
	})
	return nil
}

func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
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

// clientIP trusts chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
