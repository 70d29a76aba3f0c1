package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/http"
)

// HTTP wraps the Service to provide the wallet endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the wallet endpoints on the given chi router.
// The caller mounts this behind the subscription gate.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{service: service, logger: logger}

	r.Get("/wallet/{address}/balance", apphttp.HandleError(h.balance))
	r.Get("/wallet/{address}/holdings", apphttp.HandleError(h.holdings))
	r.Get("/blackrock/holdings", apphttp.HandleError(h.blackrockHoldings))
}

func (h *HTTP) balance(w http.ResponseWriter, r *http.Request) error {
	balance, err := h.service.Balance(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, balance)
	return nil
}

func (h *HTTP) holdings(w http.ResponseWriter, r *http.Request) error {
	holdings, err := h.service.Holdings(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, holdings)
	return nil
}

func (h *HTTP) blackrockHoldings(w http.ResponseWriter, r *http.Request) error {
	holdings, err := h.service.BlackrockHoldings(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, holdings)
	return nil
}
