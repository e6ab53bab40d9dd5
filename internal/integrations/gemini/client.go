package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"travel-assistant/internal/integrations/upstream"
)

const defaultModel = "gemini-2.5-flash"

// ErrEmptyResponse reports a 2xx generation call whose payload carried no
// usable text. The orchestration layer treats it as a distinct failure.
var ErrEmptyResponse = errors.New("gemini: no response content")

// generateRequest is the generateContent body. The generation config and
// safety settings are a fixed contract, not tunables.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// tokenPayload is the expected JSON shape stored in SSM for the API key.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client is a focused generateContent client.
type Client struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = strings.TrimSpace(model)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a generative-text client. The API key is fetched from
// SSM on the first Generate call and cached for the process lifetime.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("gemini: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("gemini: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     "https://generativelanguage.googleapis.com/v1beta",
		model:       defaultModel,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = fetchKey(ctx, c.getter, c.paramPrefix+"/gemini-api-key")
	})
	return c.apiKey, c.keyErr
}

// Generate sends one prompt and returns the first candidate's text. When
// systemPrompt is non-empty it is prepended, separated from the user
// query by the fixed delimiter the downstream templates expect.
func (c *Client) Generate(ctx context.Context, userQuery, systemPrompt string) (string, error) {
	if strings.TrimSpace(userQuery) == "" {
		return "", errors.New("gemini: user query must not be empty")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	fullPrompt := userQuery
	if systemPrompt != "" {
		fullPrompt = systemPrompt + "\n\nUser Query: " + userQuery
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: fullPrompt}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: 8192,
			Temperature:     0.9,
			TopP:            1,
		},
		SafetySettings: []safetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := upstream.DoJSON(c.httpClient, req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}

	var payload generateResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := payload.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func fetchKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch key from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("gemini: unmarshal paramstore key value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("gemini: API key is empty")
	}
	return tp.Token, nil
}
