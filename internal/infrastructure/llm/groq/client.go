// Package groq generates answers through the Groq OpenAI-compatible chat
// completions API.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/llm/prompt"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	runner     *resilience.Runner
}

// New requires an API key; a missing key is a deployment mistake caught at
// startup rather than on the first query.
func New(baseURL, apiKey, model string, runner *resilience.Runner) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "build groq client",
			errors.New("api key is required"))
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if runner == nil {
		runner = resilience.NewRunner(resilience.DefaultPolicy())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		runner:     runner,
	}, nil
}

func (c *Client) Provider() string { return "groq" }

func (c *Client) Generate(ctx context.Context, question, contextBlock string) (string, error) {
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt.BuildAnswerPrompt(question, contextBlock)},
		},
		Temperature: 0.2,
	}

	var response chatResponse
	err := c.runner.Do(ctx, "groq.chat", func(ctx context.Context) error {
		return c.postJSON(ctx, "/chat/completions", request, &response)
	}, resilience.ClassifyTransport)
	if err != nil {
		return "", mapBackendError("generate answer", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generate answer: no choices in response")
	}
	answer := strings.TrimSpace(response.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("generate answer: empty model response")
	}
	return answer, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("groq chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.HTTPStatusError{
			Operation:  "groq chat",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode chat response: %w", err)
	}
	return nil
}

func mapBackendError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrBackendTimeout, operation, err)
	}

	var statusErr *resilience.HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return domain.WrapError(domain.ErrBackendTimeout, operation, err)
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests, http.StatusUnprocessableEntity:
			return domain.WrapError(domain.ErrBackendRefused, operation, err)
		default:
			return domain.WrapError(domain.ErrBackendUnavailable, operation, err)
		}
	}

	return domain.WrapError(domain.ErrBackendUnavailable, operation, err)
}
