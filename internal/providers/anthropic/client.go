package anthropic

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
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrServiceOverloaded = errors.New("service overloaded")
	ErrEmptyResponse     = errors.New("empty response")
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

// Client implementa un client per la Messages API di Anthropic
type Client struct {
	*providers.BaseProvider
	httpClient *resty.Client
}

// NewClient crea un nuovo client Anthropic
func NewClient(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	client := &Client{
		BaseProvider: providers.NewBaseProvider("anthropic", baseURL, apiKey, model),
		httpClient:   resty.New(),
	}

	client.configureHTTPClient()
	return client
}

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
			return r.StatusCode() >= 500 || r.StatusCode() == 429
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.APIKey()).
		SetHeader("anthropic-version", apiVersion)

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("provider", c.Name()).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("Anthropic API response")
		return nil
	})
}

// Invoke esegue una richiesta sulla Messages API. I messaggi di sistema
// vengono spostati nel campo system come richiede l'API.
func (c *Client) Invoke(ctx context.Context, messages []providers.Message) (*providers.Completion, error) {
	req := &MessagesRequest{
		Model:     c.Model(),
		MaxTokens: defaultMaxTokens,
	}

	var systemParts []string
	for _, msg := range messages {
		if msg.Role == "system" {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		req.Messages = append(req.Messages, InputMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	req.System = strings.Join(systemParts, "\n\n")

	var result MessagesResponse
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post("/v1/messages")

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, c.handleErrorResponse(resp.StatusCode(), &errResp)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}

	return &providers.Completion{
		Content:  content,
		Model:    result.Model,
		Provider: c.Name(),
		Usage: providers.Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
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
	case 400:
		return fmt.Errorf("%w: %v", ErrInvalidRequest, baseErr)
	case 529:
		return fmt.Errorf("%w: %v", ErrServiceOverloaded, baseErr)
	default:
		return baseErr
	}
}
