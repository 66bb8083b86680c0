// Package openrouter implements translation and clip ranking on top of the
// OpenRouter chat completions API, which speaks the OpenAI wire format.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 90 * time.Second
	DefaultModel   = "meta-llama/llama-4-scout"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referrer and SiteName become the HTTP-Referer and X-Title attribution
	// headers.
	Referrer string
	SiteName string
	// RequestsPerMinute paces calls; zero disables pacing.
	RequestsPerMinute int
	HTTPClient        *http.Client
}

type Adapter struct {
	key     string
	model   string
	client  *openai.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Adapter {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc = &http.Client{
		Timeout:   hc.Timeout,
		Transport: &attribution{referrer: cfg.Referrer, title: cfg.SiteName, next: base},
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = endpoint(cfg.BaseURL) + "/api/v1"
	oc.HTTPClient = hc

	a := &Adapter{key: cfg.APIKey, model: model, client: openai.NewClientWithConfig(oc)}
	if cfg.RequestsPerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return a
}

type attribution struct {
	referrer string
	title    string
	next     http.RoundTripper
}

func (t *attribution) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.referrer == "" && t.title == "" {
		return t.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	if t.referrer != "" {
		r.Header.Set("HTTP-Referer", t.referrer)
	}
	if t.title != "" {
		r.Header.Set("X-Title", t.title)
	}
	return t.next.RoundTrip(r)
}

func (a *Adapter) complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := a.client.CreateChatCompletion(reqCtx, req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openrouter status %d: %s", apiErr.HTTPStatusCode, truncate(redactSecrets(apiErr.Message, a.key), 400))
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", fmt.Errorf("openrouter status %d: %s", reqErr.HTTPStatusCode, truncate(redactSecrets(string(reqErr.Body), a.key), 400))
		}
		return "", fmt.Errorf("openrouter: %s", redactSecrets(err.Error(), a.key))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: empty choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openrouter: empty content")
	}
	return content, nil
}
