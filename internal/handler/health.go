package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/store"
)

type HealthHandler struct {
	store     store.AccessKeyStore
	startTime time.Time
}

func NewHealthHandler(s store.AccessKeyStore) *HealthHandler {
	return &HealthHandler{store: s, startTime: time.Now()}
}

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	TotalKeys     int    `json:"total_access_keys"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.CountAccessKeys(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count access keys")
		total = 0
	}

	RespondJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       "1.0.0",
		TotalKeys:     total,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}
