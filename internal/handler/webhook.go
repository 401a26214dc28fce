package handler

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/service"
)

// maxWebhookBody bounds the raw payload read for signature verification.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment-provider events. The raw body is read
// before any parsing because the signature covers the exact bytes sent.
type WebhookHandler struct {
	processor *service.WebhookProcessor
}

func NewWebhookHandler(processor *service.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "unreadable_body", "failed to read request body")
		return
	}

	outcome, err := h.processor.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		service.RespondError(w, err)
		return
	}

	if outcome != nil && outcome.Failed != nil {
		log.Warn().Str("reason", outcome.Failed.Reason).Msg("payment event recorded as failed")
	}

	// The provider retries on anything but 2xx; failures recorded above are
	// our problem to reconcile, not the provider's to resend.
	RespondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
