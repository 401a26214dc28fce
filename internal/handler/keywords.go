package handler

import (
	"encoding/json"
	"net/http"

	"github.com/keyword-alchemist-service/internal/service"
	"github.com/keyword-alchemist-service/internal/validation"
)

type KeywordsHandler struct {
	processor *service.KeywordProcessor
}

func NewKeywordsHandler(processor *service.KeywordProcessor) *KeywordsHandler {
	return &KeywordsHandler{processor: processor}
}

type ProcessRequest struct {
	AccessKey string   `json:"accessKey"`
	Keywords  []string `json:"keywords"`
}

type ProcessResponse struct {
	Success          bool                       `json:"success"`
	Processed        []service.ProcessedKeyword `json:"processed"`
	Failed           []service.FailedKeyword    `json:"failed,omitempty"`
	CreditsRemaining int                        `json:"creditsRemaining"`
}

// InsufficientCreditsResponse reports the allowed/rejected split when a batch
// exceeds the remaining credits. Nothing was generated or billed.
type InsufficientCreditsResponse struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error"`
	Message          string   `json:"message"`
	AllowedKeywords  []string `json:"allowedKeywords"`
	RejectedKeywords []string `json:"rejectedKeywords"`
	CreditsRemaining int      `json:"creditsRemaining"`
}

func (h *KeywordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if req.AccessKey == "" {
		RespondError(w, http.StatusBadRequest, "missing_access_key", "accessKey is required")
		return
	}

	keywords, err := validation.Keywords(req.Keywords)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_keywords", err.Error())
		return
	}

	result, err := h.processor.Process(r.Context(), req.AccessKey, keywords)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	// The split is a normal outcome, not a failure: the caller resubmits
	// the allowed prefix or tops up, so it ships as 200 with success=false.
	if result.Partial != nil {
		RespondJSON(w, http.StatusOK, InsufficientCreditsResponse{
			Success:          false,
			Error:            "insufficient_credits",
			Message:          "Not enough credits for the full batch. Resubmit the allowed keywords or top up.",
			AllowedKeywords:  result.Partial.AllowedKeywords,
			RejectedKeywords: result.Partial.RejectedKeywords,
			CreditsRemaining: result.Partial.CreditsRemaining,
		})
		return
	}

	RespondJSON(w, http.StatusOK, ProcessResponse{
		Success:          true,
		Processed:        result.Processed,
		Failed:           result.Failed,
		CreditsRemaining: result.CreditsRemaining,
	})
}
