package oauth

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
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/identity"
)

// HTTP exposes the provider login endpoints
type HTTP struct {
	identities identity.Service
	verifiers  map[string]Verifier
	validate   *validator.Validate
	logger     *zap.Logger
}

// RegisterRoutes registers POST /oauth/{provider}/login for every configured
// verifier on the given chi router
func RegisterRoutes(r chi.Router, identities identity.Service, verifiers map[string]Verifier, logger *zap.Logger) {
	h := &HTTP{
		identities: identities,
		verifiers:  verifiers,
		validate:   validator.New(),
		logger:     logger,
	}

	r.Route("/oauth", func(r chi.Router) {
		for provider := range verifiers {
			r.Post("/"+provider+"/login", apphttp.HandleError(h.login(provider)))
		}
	})
}

type loginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type loginResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int64            `json:"expires_in"`
	User         *account.Profile `json:"user"`
	IsNewUser    bool             `json:"is_new_user"`
}

func (h *HTTP) login(provider string) apphttp.HandlerFunc {
	verifier := h.verifiers[provider]

	return func(w http.ResponseWriter, r *http.Request) error {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return apperrors.BadRequestError(err, "failed to read request")
		}
		var req loginRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return apperrors.BadRequestError(err, "invalid JSON")
		}
		if err := h.validate.Struct(&req); err != nil {
			return apperrors.BadRequestError(err, "id_token is required")
		}

		claim, err := verifier.Verify(r.Context(), req.IDToken)
		if err != nil {
			// token-info failures during exchange surface as 500 with detail
			h.logger.Error("oauth token verification failed",
				zap.String("provider", provider),
				zap.Error(err))
			return apperrors.GeneralError(err)
		}

		res, err := h.identities.ResolveOAuth(r.Context(), claim)
		if err != nil {
			return err
		}

		apphttp.WriteJSON(w, http.StatusOK, &loginResponse{
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
			TokenType:    res.Tokens.TokenType,
			ExpiresIn:    res.Tokens.ExpiresIn,
			User:         account.NewProfile(res.Account),
			IsNewUser:    res.IsNewAccount,
		})
		return nil
	}
}
