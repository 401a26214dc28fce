package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type CheckoutRequest struct {
	Plan          string `json:"plan"`
	CustomerEmail string `json:"customerEmail"`
}

type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}

	result, err := h.checkout.Checkout(r.Context(), model.Plan(req.Plan), req.CustomerEmail)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, CheckoutResponse{
		SessionID:   result.SessionID,
		CheckoutURL: result.CheckoutURL,
	})
}

// SessionHandler serves the post-payment success page, which polls until
// the webhook has minted the access key.
type SessionHandler struct {
	checkout *service.CheckoutService
}

func NewSessionHandler(checkout *service.CheckoutService) *SessionHandler {
	return &SessionHandler{checkout: checkout}
}

type SessionResponse struct {
	Status    string `json:"status"`
	AccessKey string `json:"accessKey,omitempty"`
	Plan      string `json:"plan,omitempty"`
	Credits   int    `json:"credits,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		RespondError(w, http.StatusBadRequest, "invalid_request", "session ID is required")
		return
	}

	status, err := h.checkout.Session(r.Context(), sessionID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, SessionResponse{
		Status:    status.Status,
		AccessKey: status.AccessKey,
		Plan:      string(status.Plan),
		Credits:   status.Credits,
		Email:     status.Email,
	})
}
