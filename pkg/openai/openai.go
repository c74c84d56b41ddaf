package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable wraps every transport, HTTP and reply-parsing failure, so
// callers can treat the collaborator as a single unreliable dependency and
// apply their own fallback policy.
var ErrUnavailable = errors.New("collaborator unavailable")

// Config holds connection details for an OpenAI-compatible chat API.
type Config struct {
	APIKey  string
	BaseURL string // e.g. https://api.openai.com/v1
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat-completions endpoint. It backs the
// drink verifier and the roast generator.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string, or []contentPart for vision input
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// verdict is the structured reply demanded from the verification prompt.
// The model is instructed to answer with this JSON object and nothing else;
// anything unparsable counts as an unavailable collaborator, never as a
// guessed accept or reject.
type verdict struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

const verifySystemPrompt = `You are a strict but fair beer-verification AI. ` +
	`The user sends a photo and the beverage they claim it shows. ` +
	`Decide whether the photo plausibly shows that beverage. ` +
	`Reply ONLY with a JSON object of the form {"accepted": true/false, "message": "short verdict for the drinker"}.`

// VerifyDrink asks the model whether the photo supports the claimed
// beverage. Returns the structured verdict, or an error wrapping
// ErrUnavailable on any transport or parse failure.
func (c *Client) VerifyDrink(ctx context.Context, photoDataURL, claimedLabel string) (bool, string, error) {
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: verifySystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: fmt.Sprintf("Claimed beverage: %q", claimedLabel)},
				{Type: "image_url", ImageURL: &imageURL{URL: photoDataURL}},
			}},
		},
		MaxTokens:      150,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := c.chatCompletion(ctx, req)
	if err != nil {
		return false, "", err
	}

	var v verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &v); err != nil {
		return false, "", fmt.Errorf("%w: unparsable verification reply: %v", ErrUnavailable, err)
	}
	return v.Accepted, v.Message, nil
}

const roastSystemPrompt = `You are a snarky bartender AI. Generate a SHORT ` +
	`(1-2 sentences max) funny, roast-style comment about someone logging a beer. ` +
	`Be playful and teasing but not mean. Include the beer type and/or their ` +
	`drink count in the joke. Keep it PG-13.`

// GenerateRoast produces a short roast for a freshly logged drink.
func (c *Client) GenerateRoast(ctx context.Context, displayName, beerType string, count, remaining int) (string, error) {
	prompt := fmt.Sprintf(
		"%s just logged their beer #%d: %q. There are %d beers left until the group hits the goal. Roast them!",
		displayName, count, beerType, remaining,
	)
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: roastSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   100,
		Temperature: 0.9,
	}
	return c.chatCompletion(ctx, req)
}

// chatCompletion performs one chat-completions round trip and returns the
// first choice's content.
func (c *Client) chatCompletion(ctx context.Context, reqBody chatRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrUnavailable)
	}
	return chatResp.Choices[0].Message.Content, nil
}
