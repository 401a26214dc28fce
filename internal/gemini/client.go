// Package gemini calls the generative-text provider that turns a keyword
// into a blog post. The ledger treats this as an opaque collaborator that
// can fail or time out; every call consumes a credit regardless.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBase = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"

	// minBodyWords is the floor the prompt demands; shorter bodies are
	// treated as generation failures.
	minBodyWords = 400
)

// BlogPost is the structured output of one generation call.
type BlogPost struct {
	Title     string `json:"title"`
	TLDR      string `json:"tldr"`
	Body      string `json:"body"`
	WordCount int    `json:"-"`
}

// Client calls the generation provider's REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// WithBaseURL overrides the API base URL. Used in tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateBlogPost produces a blog post for one keyword.
func (c *Client) GenerateBlogPost(ctx context.Context, keyword string) (*BlogPost, error) {
	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(keyword)}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation provider error: status %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("generation response contained no candidates")
	}

	return ParseBlogPost(genResp.Candidates[0].Content.Parts[0].Text)
}

// ParseBlogPost decodes the model's JSON output, tolerating the Markdown
// code fences models like to wrap JSON in, and enforces the structural
// contract (all three fields present, body at least 400 words).
func ParseBlogPost(raw string) (*BlogPost, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var post BlogPost
	if err := json.Unmarshal([]byte(cleaned), &post); err != nil {
		return nil, fmt.Errorf("parse blog post response: %w", err)
	}
	if post.Title == "" || post.TLDR == "" || post.Body == "" {
		return nil, fmt.Errorf("blog post response missing title, tldr, or body")
	}

	post.WordCount = len(strings.Fields(post.Body))
	if post.WordCount < minBodyWords {
		return nil, fmt.Errorf("blog post body too short: %d words, minimum %d", post.WordCount, minBodyWords)
	}
	return &post, nil
}
