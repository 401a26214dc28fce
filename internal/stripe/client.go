// Package stripe is a minimal client for the payment provider's checkout
// and webhook surfaces. Only the calls this service makes are implemented.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/keyword-alchemist-service/internal/model"
)

const defaultAPIBase = "https://api.stripe.com/v1"

// Client calls the payment provider's REST API.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		baseURL:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL overrides the API base URL. Used in tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// CheckoutSessionParams describes a one-time payment session for a plan.
type CheckoutSessionParams struct {
	Plan          model.Plan
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CreatedSession is the provider's response to a session create call.
type CreatedSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession creates a redirectable payment session tagged with
// the plan and credit metadata that the webhook consumes later.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CreatedSession, error) {
	cfg, ok := PlanConfigFor(params.Plan)
	if !ok {
		return nil, fmt.Errorf("unknown plan %q", params.Plan)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer_email", params.CustomerEmail)
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(cfg.PriceCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", cfg.Name)
	form.Set("line_items[0][price_data][product_data][description]",
		fmt.Sprintf("%s - %d keyword credits", cfg.Description, cfg.Credits))
	form.Set("metadata[plan]", string(params.Plan))
	form.Set("metadata[credits]", strconv.Itoa(cfg.Credits))
	form.Set("metadata[service]", "keyword-alchemist")

	var session CreatedSession
	if err := c.postForm(ctx, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RetrieveCheckoutSession fetches a session by ID.
func (c *Client) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.secretKey, "")

	var session CheckoutSession
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read payment provider response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("payment provider error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("payment provider error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode payment provider response: %w", err)
	}
	return nil
}
