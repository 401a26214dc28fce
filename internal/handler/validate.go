package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/keyword-alchemist-service/internal/middleware"
	"github.com/keyword-alchemist-service/internal/service"
)

// ValidateHandler answers "is this key good, and for how much" without
// spending anything. Repeated failures from one IP are blocked via the
// attempt limiter so the endpoint cannot be used to enumerate keys.
type ValidateHandler struct {
	processor *service.KeywordProcessor
	attempts  *middleware.AuthAttemptLimiter
}

func NewValidateHandler(processor *service.KeywordProcessor, attempts *middleware.AuthAttemptLimiter) *ValidateHandler {
	return &ValidateHandler{processor: processor, attempts: attempts}
}

type ValidateRequest struct {
	AccessKey string `json:"accessKey"`
}

type ValidateResponse struct {
	Valid            bool   `json:"valid"`
	Plan             string `json:"plan"`
	CreditsTotal     int    `json:"creditsTotal"`
	CreditsUsed      int    `json:"creditsUsed"`
	CreditsRemaining int    `json:"creditsRemaining"`
	Status           string `json:"status"`
}

func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ipKey := middleware.ClientIPKey(r, "validate")
	if !h.attempts.Allow(ipKey) {
		RespondError(w, http.StatusTooManyRequests, "too_many_attempts",
			"Too many failed validation attempts. Try again later.")
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if req.AccessKey == "" {
		RespondError(w, http.StatusBadRequest, "missing_access_key", "accessKey is required")
		return
	}

	key, err := h.processor.ValidateKey(r.Context(), req.AccessKey)
	if err != nil {
		var svcErr *service.Error
		if errors.As(err, &svcErr) && svcErr.Kind == service.ErrUnauthorized {
			h.attempts.RegisterFailure(ipKey)
		}
		service.RespondError(w, err)
		return
	}
	h.attempts.RegisterSuccess(ipKey)

	RespondJSON(w, http.StatusOK, ValidateResponse{
		Valid:            true,
		Plan:             string(key.Plan),
		CreditsTotal:     key.CreditsTotal,
		CreditsUsed:      key.CreditsUsed,
		CreditsRemaining: key.CreditsRemaining(),
		Status:           string(key.Status),
	})
}
