package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/utils"
)

// AIClient is the outbound chat-completion surface used by generation. The
// provider is attempted exactly once per call; retrying is the caller's
// decision, made by a human re-triggering the action.
type AIClient interface {
	Chat(ctx context.Context, messages []AIMessage, opts *AIOptions) (*AICompletion, error)
}

type AIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AIOptions struct {
	Temperature float64
	MaxTokens   int
}

type AICompletion struct {
	Content string
}

type openRouterClient struct {
	httpClient *http.Client
	log        *logger.Logger
	apiKey     string
	baseURL    string
	model      string
}

// NewOpenRouterClient builds a chat-completions client against OpenRouter (or
// any API-compatible endpoint via OPENROUTER_BASE_URL). The HTTP client owns
// the 30 second timeout; a request that exceeds it is cancelled and surfaces
// as errs.ErrUpstreamTimeout.
func NewOpenRouterClient(log *logger.Logger) (AIClient, error) {
	serviceLog := log.With("service", "OpenRouterClient")
	apiKey := utils.GetEnv("OPENROUTER_API_KEY", "", log)
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is not set")
	}
	baseURL := utils.GetEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1", log)
	model := utils.GetEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini", log)
	timeoutSec := utils.GetEnvAsInt("OPENROUTER_TIMEOUT_SECONDS", 30, log)

	return &openRouterClient{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		log:     serviceLog,
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}, nil
}

type chatCompletionsRequest struct {
	Model       string      `json:"model"`
	Messages    []AIMessage `json:"messages"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

type chatCompletionsResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openRouterClient) Chat(ctx context.Context, messages []AIMessage, opts *AIOptions) (*AICompletion, error) {
	reqBody := chatCompletionsRequest{
		Model:    c.model,
		Messages: messages,
	}
	if opts != nil {
		reqBody.Temperature = opts.Temperature
		reqBody.MaxTokens = opts.MaxTokens
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warn("AI request timed out", "error", err)
			return nil, fmt.Errorf("ai provider did not respond in time: %w", errs.ErrUpstreamTimeout)
		}
		return nil, &errs.UpstreamError{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.UpstreamError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("AI request failed", "status", resp.StatusCode, "body", string(raw))
		return nil, &errs.UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &errs.UpstreamError{Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &errs.UpstreamError{Cause: errors.New("no choices in response")}
	}

	return &AICompletion{Content: parsed.Choices[0].Message.Content}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
