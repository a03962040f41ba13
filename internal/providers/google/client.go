package google

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
	ErrEmptyResponse     = errors.New("empty response")
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client implementa un client per l'API Gemini
type Client struct {
	*providers.BaseProvider
	httpClient *resty.Client
}

// NewClient crea un nuovo client Google Gemini
func NewClient(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client := &Client{
		BaseProvider: providers.NewBaseProvider("google", baseURL, apiKey, model),
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
		SetQueryParam("key", c.APIKey())

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("provider", c.Name()).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("Gemini API response")
		return nil
	})
}

// Invoke esegue una richiesta generateContent. I messaggi di sistema
// diventano systemInstruction, i ruoli assistant diventano model.
func (c *Client) Invoke(ctx context.Context, messages []providers.Message) (*providers.Completion, error) {
	req := &GenerateContentRequest{}

	var systemParts []Part
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemParts = append(systemParts, Part{Text: msg.Content})
		case "assistant":
			req.Contents = append(req.Contents, Content{
				Role:  "model",
				Parts: []Part{{Text: msg.Content}},
			})
		default:
			req.Contents = append(req.Contents, Content{
				Role:  "user",
				Parts: []Part{{Text: msg.Content}},
			})
		}
	}
	if len(systemParts) > 0 {
		req.SystemInstruction = &Content{Parts: systemParts}
	}

	var result GenerateContentResponse
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.Model()))

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, c.handleErrorResponse(resp.StatusCode(), &errResp)
	}
	if len(result.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}

	completion := &providers.Completion{
		Content:  content,
		Model:    c.Model(),
		Provider: c.Name(),
	}
	if result.UsageMetadata != nil {
		completion.Usage = providers.Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		}
	}

	return completion, nil
}

// HealthCheck verifica lo stato del provider
func (c *Client) HealthCheck(ctx context.Context) error {
	var result ModelsResponse
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&errResp).
		Get("/v1beta/models")

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

	baseErr := fmt.Errorf("%s (status: %s)", errResp.Error.Message, errResp.Error.Status)

	switch statusCode {
	case 401, 403:
		return fmt.Errorf("%w: %v", ErrInvalidAPIKey, baseErr)
	case 429:
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, baseErr)
	case 400:
		return fmt.Errorf("%w: %v", ErrInvalidRequest, baseErr)
	default:
		return baseErr
	}
}
