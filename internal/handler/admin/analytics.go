package admin

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/handler"
	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
)

// recentPaymentsWindow bounds the payments list on the dashboard.
const recentPaymentsWindow = 30 * 24 * time.Hour

const recentPaymentsLimit = 50

type AnalyticsHandler struct {
	store store.Store
}

func NewAnalyticsHandler(s store.Store) *AnalyticsHandler {
	return &AnalyticsHandler{store: s}
}

type analyticsResponse struct {
	Summary        *store.AnalyticsSummary `json:"summary"`
	RecentPayments []paymentItem           `json:"recent_payments"`
}

type paymentItem struct {
	SessionID     string `json:"session_id"`
	AccessKey     string `json:"access_key,omitempty"`
	Plan          string `json:"plan"`
	Credits       int    `json:"credits"`
	AmountPaid    int64  `json:"amount_paid"`
	CustomerEmail string `json:"customer_email,omitempty"`
	PaymentStatus string `json:"payment_status"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *AnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.AnalyticsSummary(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load analytics summary")
		handler.RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to load analytics")
		return
	}

	since := time.Now().Add(-recentPaymentsWindow)
	payments, err := h.store.ListRecentPayments(r.Context(), since, recentPaymentsLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list recent payments")
		handler.RespondError(w, http.StatusInternalServerError, "internal_error", "Failed to load analytics")
		return
	}

	items := make([]paymentItem, 0, len(payments))
	for _, p := range payments {
		items = append(items, toPaymentItem(p))
	}

	handler.RespondJSON(w, http.StatusOK, analyticsResponse{
		Summary:        summary,
		RecentPayments: items,
	})
}

func toPaymentItem(p *model.PaymentRecord) paymentItem {
	return paymentItem{
		SessionID:     p.SessionID,
		AccessKey:     p.AccessKey,
		Plan:          string(p.Plan),
		Credits:       p.Credits,
		AmountPaid:    p.AmountPaid,
		CustomerEmail: p.CustomerEmail,
		PaymentStatus: string(p.PaymentStatus),
		ErrorMessage:  p.ErrorMessage,
		CreatedAt:     p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
