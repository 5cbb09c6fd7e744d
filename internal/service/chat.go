package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ChatConfig holds configuration for an OpenAI-compatible chat endpoint.
type ChatConfig struct {
	Service string // label used in errors and logs
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ChatClient calls an OpenAI-compatible chat completions endpoint. Perplexity
// speaks the same protocol and adds citation fields to the answer.
type ChatClient struct {
	client   *resty.Client
	service  string
	model    string
	endpoint string
}

// NewChatClient creates a new chat client.
// Parameters:
//   - cfg: endpoint configuration; BaseURL defaults to the OpenAI API.
//
// Returns:
//   - *ChatClient: initialized client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	service := cfg.Service
	if service == "" {
		service = "chat"
	}

	return &ChatClient{
		client:   client,
		service:  service,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations     []string                 `json:"citations,omitempty"`
	SearchResults []map[string]interface{} `json:"search_results,omitempty"`
	Error         *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ChatRequest is one completion call.
type ChatRequest struct {
	System      string
	User        string
	JSON        bool // ask for a JSON object answer
	Temperature *float32
	MaxTokens   int
}

// ChatResult is the answer of a completion call.
type ChatResult struct {
	Content       string
	Citations     []string
	SearchResults []map[string]interface{}
}

// Complete sends one chat completion request.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: system and user messages plus options.
//
// Returns:
//   - *ChatResult: first choice content and any citations.
//   - error: *APIError for non-2xx answers, or a transport error.
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s API: %w", c.service, err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, &APIError{Service: c.service, StatusCode: httpResp.StatusCode(), Message: msg}
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s API error: %s", c.service, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in %s response: %s", c.service, string(httpResp.Body()))
	}

	return &ChatResult{
		Content:       resp.Choices[0].Message.Content,
		Citations:     resp.Citations,
		SearchResults: resp.SearchResults,
	}, nil
}

// extractJSON returns the outermost JSON object in s, tolerating markdown
// code fences around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
