package admin

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/handler"
	"github.com/keyword-alchemist-service/internal/middleware"
	"github.com/keyword-alchemist-service/internal/store"
)

// ClearAnalyticsHandler truncates the usage and attempt logs. Access keys
// and payment logs are untouched.
type ClearAnalyticsHandler struct {
	store store.UsageLogStore
}

func NewClearAnalyticsHandler(s store.UsageLogStore) *ClearAnalyticsHandler {
	return &ClearAnalyticsHandler{store: s}
}

func (h *ClearAnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAnalytics(r.Context()); err != nil {
		log.Error().Err(err).Msg("failed to clear analytics")
		handler.RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to clear analytics")
		return
	}

	log.Warn().Str("admin", middleware.GetAdminEmail(r.Context())).Msg("analytics cleared")
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// DeleteAllKeysHandler removes every access key. Destructive; admin-only
// and intended for staging resets.
type DeleteAllKeysHandler struct {
	store store.AccessKeyStore
}

func NewDeleteAllKeysHandler(s store.AccessKeyStore) *DeleteAllKeysHandler {
	return &DeleteAllKeysHandler{store: s}
}

func (h *DeleteAllKeysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAllAccessKeys(r.Context()); err != nil {
		log.Error().Err(err).Msg("failed to delete access keys")
		handler.RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to delete access keys")
		return
	}

	log.Warn().Str("admin", middleware.GetAdminEmail(r.Context())).Msg("all access keys deleted")
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
