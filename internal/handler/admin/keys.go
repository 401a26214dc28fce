package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/handler"
	"github.com/keyword-alchemist-service/internal/httputil"
	"github.com/keyword-alchemist-service/internal/middleware"
	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/service"
	"github.com/keyword-alchemist-service/internal/store"
)

// --- List Access Keys ---

type ListKeysHandler struct {
	store store.AccessKeyStore
}

func NewListKeysHandler(s store.AccessKeyStore) *ListKeysHandler {
	return &ListKeysHandler{store: s}
}

type listKeysResponse struct {
	AccessKeys []accessKeyItem `json:"access_keys"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
}

type accessKeyItem struct {
	Key              string `json:"access_key"`
	Plan             string `json:"plan"`
	CreditsTotal     int    `json:"credits_total"`
	CreditsUsed      int    `json:"credits_used"`
	CreditsRemaining int    `json:"credits_remaining"`
	Status           string `json:"status"`
	Email            string `json:"email,omitempty"`
	CreatedAt        string `json:"created_at"`
}

func (h *ListKeysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := httputil.ParsePagination(r.URL.Query().Get("page"), r.URL.Query().Get("per_page"))
	if err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	keys, total, err := h.store.ListAccessKeys(r.Context(), page, perPage)
	if err != nil {
		log.Error().Err(err).Msg("failed to list access keys")
		handler.RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to list access keys")
		return
	}

	items := make([]accessKeyItem, 0, len(keys))
	for _, key := range keys {
		items = append(items, toAccessKeyItem(key))
	}

	handler.RespondJSON(w, http.StatusOK, listKeysResponse{
		AccessKeys: items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
	})
}

func toAccessKeyItem(key *model.AccessKey) accessKeyItem {
	return accessKeyItem{
		Key:              key.Key,
		Plan:             string(key.Plan),
		CreditsTotal:     key.CreditsTotal,
		CreditsUsed:      key.CreditsUsed,
		CreditsRemaining: key.CreditsRemaining(),
		Status:           string(key.Status),
		Email:            key.Email,
		CreatedAt:        key.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// --- Create Access Key ---

type CreateKeyHandler struct {
	keys *service.KeyService
}

func NewCreateKeyHandler(keys *service.KeyService) *CreateKeyHandler {
	return &CreateKeyHandler{keys: keys}
}

type createKeyRequest struct {
	Plan  string `json:"plan"`
	Email string `json:"email"`
}

type createKeyResponse struct {
	AccessKey string `json:"access_key"`
	Plan      string `json:"plan"`
	Credits   int    `json:"credits"`
}

func (h *CreateKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	result, err := h.keys.Create(r.Context(), model.Plan(req.Plan), req.Email)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	log.Info().
		Str("access_key", result.AccessKey).
		Str("plan", string(result.Plan)).
		Str("admin", middleware.GetAdminEmail(r.Context())).
		Msg("access key created by admin")

	handler.RespondJSON(w, http.StatusCreated, createKeyResponse{
		AccessKey: result.AccessKey,
		Plan:      string(result.Plan),
		Credits:   result.Credits,
	})
}

// --- Update Access Key Status ---

type UpdateKeyStatusHandler struct {
	keys *service.KeyService
}

func NewUpdateKeyStatusHandler(keys *service.KeyService) *UpdateKeyStatusHandler {
	return &UpdateKeyStatusHandler{keys: keys}
}

type updateKeyStatusRequest struct {
	Status string `json:"status"`
}

func (h *UpdateKeyStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accessKey := chi.URLParam(r, "key")

	var req updateKeyStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	if err := h.keys.SetStatus(r.Context(), accessKey, model.AccessKeyStatus(req.Status)); err != nil {
		service.RespondError(w, err)
		return
	}

	log.Info().
		Str("access_key", accessKey).
		Str("status", req.Status).
		Str("admin", middleware.GetAdminEmail(r.Context())).
		Msg("access key status updated")

	handler.RespondJSON(w, http.StatusOK, map[string]string{
		"access_key": accessKey,
		"status":     req.Status,
	})
}
