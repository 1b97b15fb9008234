package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultAnthropicTokens  = 8192
)

// AnthropicConfig configures an AnthropicAdapter. The zero value is not
// usable; APIKey is required. Values come from the caller's configuration,
// never from the process environment.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string        // default https://api.anthropic.com
	MaxTokens int           // default 8192
	Timeout   time.Duration // default 2 minutes
}

// AnthropicAdapter implements ProviderAdapter against the Anthropic
// Messages API directly over HTTP.
type AnthropicAdapter struct {
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// NewAnthropicAdapter creates an adapter for the Anthropic Messages API.
func NewAnthropicAdapter(cfg AnthropicConfig) (*AnthropicAdapter, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{ClientError: ClientError{
			Message: "anthropic: API key is required",
		}}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &AnthropicAdapter{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider identifier.
func (a *AnthropicAdapter) Name() string { return "anthropic" }

// Wire types for the Messages API.

type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	Tools         []anthropicTool    `json:"tools,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Model      string           `json:"model"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request to /v1/messages and translates the response.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	body, err := a.translateRequest(req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Message: "anthropic: encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Message: "anthropic: building request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &AbortError{ClientError: ClientError{Message: "anthropic: request aborted", Cause: err}}
		}
		return nil, &NetworkError{ClientError: ClientError{Message: "anthropic: request failed", Cause: err}}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &NetworkError{ClientError: ClientError{Message: "anthropic: reading response", Cause: err}}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.translateHTTPError(httpResp, raw)
	}

	var ar anthropicResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return nil, &ClientError{Message: "anthropic: decoding response", Cause: err}
	}
	return a.buildResponse(ar), nil
}

func (a *AnthropicAdapter) translateRequest(req Request) (*anthropicRequest, error) {
	ar := &anthropicRequest{
		Model:         req.Model,
		MaxTokens:     a.maxTokens,
		Temperature:   req.Temperature,
		StopSequences: req.StopSequences,
	}
	if req.MaxTokens != nil {
		ar.MaxTokens = *req.MaxTokens
	}

	for _, t := range req.Tools {
		ar.Tools = append(ar.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			// The API takes system text as a top-level field.
			if ar.System != "" {
				ar.System += "\n\n"
			}
			ar.System += msg.TextContent()

		case RoleUser:
			ar.Messages = append(ar.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicBlock{{Type: "text", Text: msg.TextContent()}},
			})

		case RoleAssistant:
			var blocks []anthropicBlock
			for _, part := range msg.Content {
				switch part.Kind {
				case ContentText:
					if part.Text != "" {
						blocks = append(blocks, anthropicBlock{Type: "text", Text: part.Text})
					}
				case ContentToolCall:
					if part.ToolCall != nil {
						input := part.ToolCall.Arguments
						if len(input) == 0 {
							input = json.RawMessage("{}")
						}
						blocks = append(blocks, anthropicBlock{
							Type:  "tool_use",
							ID:    part.ToolCall.ID,
							Name:  part.ToolCall.Name,
							Input: input,
						})
					}
				}
			}
			if len(blocks) == 0 {
				blocks = []anthropicBlock{{Type: "text", Text: ""}}
			}
			ar.Messages = append(ar.Messages, anthropicMessage{Role: "assistant", Content: blocks})

		case RoleTool:
			// Tool results ride in a user message. Consecutive tool messages
			// from one dispatch batch are merged below.
			block := anthropicBlock{Type: "tool_result", ToolUseID: msg.ToolCallID}
			for _, part := range msg.Content {
				if part.Kind == ContentToolResult && part.ToolResult != nil {
					block.Content = part.ToolResult.Content
					block.IsError = part.ToolResult.IsError
				}
			}
			if n := len(ar.Messages); n > 0 && ar.Messages[n-1].Role == "user" && len(ar.Messages[n-1].Content) > 0 && ar.Messages[n-1].Content[0].Type == "tool_result" {
				ar.Messages[n-1].Content = append(ar.Messages[n-1].Content, block)
			} else {
				ar.Messages = append(ar.Messages, anthropicMessage{Role: "user", Content: []anthropicBlock{block}})
			}
		}
	}

	if len(ar.Messages) == 0 {
		return nil, &InvalidRequestError{ProviderError: ProviderError{
			ClientError: ClientError{Message: "anthropic: request has no user or assistant messages"},
			Provider:    "anthropic",
		}}
	}
	return ar, nil
}

func (a *AnthropicAdapter) buildResponse(ar anthropicResponse) *Response {
	msg := Message{Role: RoleAssistant}
	for _, block := range ar.Content {
		switch block.Type {
		case "text":
			msg.Content = append(msg.Content, TextPart(block.Text))
		case "tool_use":
			msg.Content = append(msg.Content, ToolCallPart(block.ID, block.Name, block.Input))
		}
	}

	finish := FinishReason{Raw: ar.StopReason}
	switch ar.StopReason {
	case "end_turn", "stop_sequence":
		finish.Reason = "stop"
	case "tool_use":
		finish.Reason = "tool_calls"
	case "max_tokens":
		finish.Reason = "length"
	default:
		finish.Reason = "other"
	}

	usage := Usage{
		InputTokens:  ar.Usage.InputTokens,
		OutputTokens: ar.Usage.OutputTokens,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &Response{
		ID:           ar.ID,
		Model:        ar.Model,
		Provider:     "anthropic",
		Message:      msg,
		FinishReason: finish,
		Usage:        usage,
	}
}

func (a *AnthropicAdapter) translateHTTPError(resp *http.Response, raw []byte) error {
	message := strings.TrimSpace(string(raw))
	errorCode := ""
	var eb anthropicErrorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error.Message != "" {
		message = eb.Error.Message
		errorCode = eb.Error.Type
	}

	var retryAfter *float64
	if h := resp.Header.Get("retry-after"); h != "" {
		if secs, err := strconv.ParseFloat(h, 64); err == nil {
			retryAfter = &secs
		}
	}

	return ErrorFromStatusCode(resp.StatusCode, fmt.Sprintf("anthropic: %s", message), "anthropic", errorCode, nil, retryAfter)
}
