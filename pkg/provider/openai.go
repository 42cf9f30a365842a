package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/jdgilhuly/go_fence/pkg/messages"
	"github.com/jdgilhuly/go_fence/pkg/metrics"
	"github.com/jdgilhuly/go_fence/pkg/prompt"
)

const (
	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

	// APIKeyEnv is the environment variable read when no API key is given.
	APIKeyEnv = "OPENAI_API_KEY"

	maxTemperature = 2.0
)

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithAPIKey sets the API key. When empty, the key is read from APIKeyEnv.
func WithAPIKey(key string) OpenAIOption {
	return func(p *OpenAIProvider) { p.apiKey = strings.TrimSpace(key) }
}

// WithTemperature overrides the model's sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(p *OpenAIProvider) { p.model.Temperature = &t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) OpenAIOption {
	return func(p *OpenAIProvider) { p.model.MaxTokens = &n }
}

// WithHTTPClient sets the HTTP client used for requests. Deadlines and
// transport-level timeouts belong to this client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = c }
}

// WithBaseURL overrides the Chat Completions endpoint URL.
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.url = url }
}

// WithMetricsHook registers the hook that receives usage records.
func WithMetricsHook(h metrics.Hook) OpenAIOption {
	return func(p *OpenAIProvider) { p.hook = h }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) OpenAIOption {
	return func(p *OpenAIProvider) { p.logger = l }
}

// WithSource records where the model is used from (e.g. a feature name).
// It is attached to every metrics record.
func WithSource(source string) OpenAIOption {
	return func(p *OpenAIProvider) { p.source = source }
}

// WithTags adds tags attached to every metrics record.
func WithTags(tags map[string]string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if p.tags == nil {
			p.tags = make(map[string]string, len(tags))
		}
		maps.Copy(p.tags, tags)
	}
}

// OpenAIProvider invokes a model through the OpenAI Chat Completions API.
// Its configuration is fixed at construction, so one provider may serve
// concurrent Invoke calls.
type OpenAIProvider struct {
	model  Model
	apiKey string
	url    string
	client *http.Client
	hook   metrics.Hook
	logger *slog.Logger
	source string
	tags   map[string]string
}

var _ Invoker = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider bound to model. It returns a
// *ConfigurationError when no API key is available or a parameter is out of
// range.
func NewOpenAIProvider(model Model, opts ...OpenAIOption) (*OpenAIProvider, error) {
	p := &OpenAIProvider{
		model:  model,
		url:    defaultOpenAIURL,
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.apiKey == "" {
		p.apiKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.model.Name == "" {
		p.model.Name = DisplayName(p.model.ID)
	}
	p.model = p.model.clone()

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *OpenAIProvider) validate() error {
	switch {
	case p.apiKey == "":
		return &ConfigurationError{
			Field: "api_key",
			Err:   fmt.Errorf("OpenAI API key must be provided, either as an option or in the environment variable %s", APIKeyEnv),
		}
	case strings.TrimSpace(p.model.ID) == "":
		return &ConfigurationError{Field: "model", Err: errors.New("model id is required")}
	case *p.model.Temperature < 0 || *p.model.Temperature > maxTemperature:
		return &ConfigurationError{Field: "temperature", Err: fmt.Errorf("must be between 0 and %g, got %g", maxTemperature, *p.model.Temperature)}
	case p.model.MaxTokens != nil && *p.model.MaxTokens <= 0:
		return &ConfigurationError{Field: "max_tokens", Err: fmt.Errorf("must be > 0, got %d", *p.model.MaxTokens)}
	case strings.TrimSpace(p.url) == "":
		return &ConfigurationError{Field: "base_url", Err: errors.New("endpoint URL is required")}
	}
	return nil
}

// Model returns the model identity and parameters in effect.
func (p *OpenAIProvider) Model() Model { return p.model.clone() }

// Name returns the model display name, e.g. "GPT 4o".
func (p *OpenAIProvider) Name() string { return p.model.Name }

// openaiRequest is the Chat Completions request body.
type openaiRequest struct {
	Temperature float64                  `json:"temperature"`
	MaxTokens   *int                     `json:"max_tokens,omitempty"`
	Messages    []messages.OpenAIMessage `json:"messages"`
	Model       string                   `json:"model"`
}

// openaiResponse holds the Chat Completions response fields in use.
type openaiResponse struct {
	ID      string         `json:"id"`
	Choices []openaiChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openaiChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Invoke sends p to the model and returns the completion text.
//
// Invalid prompts fail with *InvalidPromptError before any request is sent.
// Transport failures and non-2xx responses fail with *ProviderRequestError,
// malformed 2xx responses with *ProviderResponseError. Nothing is retried.
// On success the usage record is delivered to the metrics hook; hook
// failures are logged and do not affect the result.
func (p *OpenAIProvider) Invoke(ctx context.Context, pr prompt.Prompt) (string, error) {
	normalized, err := prompt.Normalize(pr)
	if err != nil {
		var invalid *prompt.InvalidError
		if errors.As(err, &invalid) {
			return "", &InvalidPromptError{Err: invalid}
		}
		return "", err
	}

	requestID := uuid.NewString()
	body, err := p.buildRequestBody(normalized.Messages)
	if err != nil {
		return "", fmt.Errorf("building request body: %w", err)
	}
	p.logger.DebugContext(ctx, "sending chat completion request",
		"request_id", requestID,
		"model", p.model.ID,
		"body", string(body),
	)

	resp, err := p.doRequest(ctx, body)
	if err != nil {
		return "", err
	}

	completion := resp.Choices[0].Message.Content
	rec := metrics.Record{
		Model:            p.model.ID,
		Source:           p.source,
		RequestID:        requestID,
		Tags:             maps.Clone(p.tags),
		InputTokenCount:  resp.Usage.PromptTokens,
		OutputTokenCount: resp.Usage.CompletionTokens,
		InputWordCount:   normalized.WordCount,
		OutputWordCount:  prompt.CountWords(completion),
		EstimatedCostUSD: EstimateCost(p.model.ID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}
	p.logger.DebugContext(ctx, "chat completion received",
		"request_id", requestID,
		"completion_id", resp.ID,
		"finish_reason", resp.Choices[0].FinishReason,
		"model", p.model.ID,
		"input_tokens", rec.InputTokenCount,
		"output_tokens", rec.OutputTokenCount,
	)

	p.report(ctx, rec)
	return completion, nil
}

func (p *OpenAIProvider) buildRequestBody(msgs []messages.OpenAIMessage) ([]byte, error) {
	return json.Marshal(openaiRequest{
		Temperature: *p.model.Temperature,
		MaxTokens:   p.model.MaxTokens,
		Messages:    msgs,
		Model:       p.model.ID,
	})
}

func (p *OpenAIProvider) doRequest(ctx context.Context, body []byte) (*openaiResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderRequestError{Err: fmt.Errorf("creating HTTP request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderRequestError{Err: fmt.Errorf("sending HTTP request: %w", err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ProviderRequestError{
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("reading response body: %w", err),
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &ProviderRequestError{
			StatusCode: httpResp.StatusCode,
			Body:       string(respBody),
			Err:        fmt.Errorf("unexpected status %s", httpResp.Status),
		}
	}

	if err := validateResponse(respBody); err != nil {
		return nil, &ProviderResponseError{Body: string(respBody), Err: err}
	}

	var or openaiResponse
	if err := json.Unmarshal(respBody, &or); err != nil {
		return nil, &ProviderResponseError{Body: string(respBody), Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &or, nil
}

// report delivers rec to the metrics hook. Errors and panics raised by the
// hook are logged and swallowed.
func (p *OpenAIProvider) report(ctx context.Context, rec metrics.Record) {
	if p.hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.WarnContext(ctx, "metrics hook panicked",
				"request_id", rec.RequestID,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	if err := p.hook.Record(ctx, rec); err != nil {
		p.logger.WarnContext(ctx, "metrics hook failed",
			"request_id", rec.RequestID,
			"error", err,
		)
	}
}
