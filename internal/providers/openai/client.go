package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrModelNotFound      = errors.New("model not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrEmptyResponse      = errors.New("empty response")
)

const defaultBaseURL = "https://api.openai.com"

// Client implementa un client OpenAI-compatible
type Client struct {
	*providers.BaseProvider
	httpClient *resty.Client
}

// NewClient crea un nuovo client OpenAI. baseURL vuota usa l'endpoint
// ufficiale
func NewClient(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := &Client{
		BaseProvider: providers.NewBaseProvider("openai", baseURL, apiKey, model),
		httpClient:   resty.New(),
	}

	client.configureHTTPClient()
	return client
}

// configureHTTPClient configura il client HTTP con retry e timeout
func (c *Client) configureHTTPClient() {
	c.httpClient.
		SetBaseURL(c.BaseURL()).
		SetTimeout(c.Timeout()).
		SetRetryCount(c.MaxRetries()).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return true
			}
			return r.StatusCode() >= 500 ||
				r.StatusCode() == 429 ||
				r.StatusCode() == 408
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Bearer "+c.APIKey())

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("provider", c.Name()).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("OpenAI API response")
		return nil
	})
}

// Invoke esegue una richiesta di chat completion
func (c *Client) Invoke(ctx context.Context, messages []providers.Message) (*providers.Completion, error) {
	req := &ChatCompletionRequest{
		Model:    c.Model(),
		Messages: make([]ChatMessage, len(messages)),
	}
	for i, msg := range messages {
		req.Messages[i] = ChatMessage{Role: msg.Role, Content: msg.Content}
	}

	var result ChatCompletionResponse
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post("/v1/chat/completions")

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, c.handleErrorResponse(resp.StatusCode(), &errResp)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}

	return &providers.Completion{
		Content:  content,
		Model:    result.Model,
		Provider: c.Name(),
		Usage: providers.Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}, nil
}

// HealthCheck verifica lo stato del provider
func (c *Client) HealthCheck(ctx context.Context) error {
	var result ModelsResponse
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&errResp).
		Get("/v1/models")

	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.IsError() {
		return c.handleErrorResponse(resp.StatusCode(), &errResp)
	}
	return nil
}

// handleErrorResponse gestisce gli errori dalla risposta API
func (c *Client) handleErrorResponse(statusCode int, errResp *ErrorResponse) error {
	if errResp.Error.Message == "" {
		return fmt.Errorf("API error: status %d", statusCode)
	}

	baseErr := fmt.Errorf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)

	switch statusCode {
	case 401:
		return fmt.Errorf("%w: %v", ErrInvalidAPIKey, baseErr)
	case 429:
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, baseErr)
	case 404:
		return fmt.Errorf("%w: %v", ErrModelNotFound, baseErr)
	case 400:
		return fmt.Errorf("%w: %v", ErrInvalidRequest, baseErr)
	case 503:
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, baseErr)
	default:
		return baseErr
	}
}
