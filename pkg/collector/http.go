package collector

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/CETANGZHI/crypto-monitor-backend/pkg/app/http"
)

// HTTP wraps the Service to provide the aggregation endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the aggregation endpoints on the given chi
// router. The caller mounts this behind the subscription gate.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{service: service, logger: logger}

	r.Get("/twitter/posts", apphttp.HandleError(h.posts))
	r.Get("/twitter/influencers", apphttp.HandleError(h.influencers))
	r.Get("/news", apphttp.HandleError(h.news))
}

func (h *HTTP) posts(w http.ResponseWriter, r *http.Request) error {
	response, err := h.service.Posts(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, response)
	return nil
}

func (h *HTTP) influencers(w http.ResponseWriter, r *http.Request) error {
	infos, err := h.service.Influencers(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"influencers": infos})
	return nil
}

func (h *HTTP) news(w http.ResponseWriter, r *http.Request) error {
	response, err := h.service.News(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, response)
	return nil
}
