package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicAdapterRequiresKey(t *testing.T) {
	_, err := NewAnthropicAdapter(AnthropicConfig{})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}

func TestAnthropicComplete(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotBody anthropicRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Hello from Claude"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`))
	}))
	defer server.Close()

	adapter, err := NewAnthropicAdapter(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := adapter.Complete(context.Background(), Request{
		Model: "claude-sonnet-4-5",
		Messages: []Message{
			SystemMessage("Be terse."),
			UserMessage("Hi"),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/messages" {
		t.Errorf("expected path %q, got %q", "/v1/messages", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("expected api key %q, got %q", "test-key", gotKey)
	}
	if gotVersion != anthropicVersion {
		t.Errorf("expected version %q, got %q", anthropicVersion, gotVersion)
	}
	if gotBody.System != "Be terse." {
		t.Errorf("expected system %q, got %q", "Be terse.", gotBody.System)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Fatalf("expected 1 user message, got %+v", gotBody.Messages)
	}

	if resp.Text() != "Hello from Claude" {
		t.Errorf("expected text %q, got %q", "Hello from Claude", resp.Text())
	}
	if resp.FinishReason.Reason != "stop" {
		t.Errorf("expected finish reason %q, got %q", "stop", resp.FinishReason.Reason)
	}
	if resp.Usage.TotalTokens != 19 {
		t.Errorf("expected total tokens 19, got %d", resp.Usage.TotalTokens)
	}
	if resp.Provider != "anthropic" {
		t.Errorf("expected provider %q, got %q", "anthropic", resp.Provider)
	}
}

func TestAnthropicToolUseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_02",
			"model": "claude-sonnet-4-5",
			"content": [
				{"type": "text", "text": "Reading the file."},
				{"type": "tool_use", "id": "toolu_01", "name": "read", "input": {"path": "main.go"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 20, "output_tokens": 15}
		}`))
	}))
	defer server.Close()

	adapter, err := NewAnthropicAdapter(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := adapter.Complete(context.Background(), Request{
		Model:    "claude-sonnet-4-5",
		Messages: []Message{UserMessage("Read main.go")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := resp.ToolCallsFromResponse()
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ID != "toolu_01" || calls[0].Name != "read" {
		t.Errorf("expected toolu_01/read, got %q/%q", calls[0].ID, calls[0].Name)
	}
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(calls[0].Arguments, &args); err != nil {
		t.Fatalf("decoding arguments: %v", err)
	}
	if args.Path != "main.go" {
		t.Errorf("expected path %q, got %q", "main.go", args.Path)
	}
	if resp.FinishReason.Reason != "tool_calls" {
		t.Errorf("expected finish reason %q, got %q", "tool_calls", resp.FinishReason.Reason)
	}
}

func TestAnthropicToolResultMerging(t *testing.T) {
	var gotBody anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_03",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Done."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 5, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	adapter, err := NewAnthropicAdapter(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assistant := Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			ToolCallPart("toolu_01", "read", json.RawMessage(`{"path":"a.go"}`)),
			ToolCallPart("toolu_02", "read", json.RawMessage(`{"path":"b.go"}`)),
		},
	}

	_, err = adapter.Complete(context.Background(), Request{
		Model: "claude-sonnet-4-5",
		Messages: []Message{
			UserMessage("Read both files"),
			assistant,
			ToolResultMessage("toolu_01", "contents of a", false),
			ToolResultMessage("toolu_02", "contents of b", false),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// user, assistant, then a single user message carrying both tool results.
	if len(gotBody.Messages) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(gotBody.Messages))
	}
	last := gotBody.Messages[2]
	if last.Role != "user" {
		t.Errorf("expected role %q, got %q", "user", last.Role)
	}
	if len(last.Content) != 2 {
		t.Fatalf("expected 2 tool_result blocks, got %d", len(last.Content))
	}
	if last.Content[0].ToolUseID != "toolu_01" || last.Content[1].ToolUseID != "toolu_02" {
		t.Errorf("expected tool_use_ids toolu_01, toolu_02, got %q, %q",
			last.Content[0].ToolUseID, last.Content[1].ToolUseID)
	}
}

func TestAnthropicHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	adapter, err := NewAnthropicAdapter(AnthropicConfig{APIKey: "bad-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.Complete(context.Background(), Request{
		Model:    "claude-sonnet-4-5",
		Messages: []Message{UserMessage("Hi")},
	})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	authErr, ok := err.(*AuthenticationError)
	if !ok {
		t.Fatalf("expected AuthenticationError, got %T", err)
	}
	if authErr.ErrorCode != "authentication_error" {
		t.Errorf("expected error code %q, got %q", "authentication_error", authErr.ErrorCode)
	}
	if IsRetryable(err) {
		t.Error("expected 401 to be non-retryable")
	}
}

func TestAnthropicRejectsEmptyConversation(t *testing.T) {
	adapter, err := NewAnthropicAdapter(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = adapter.Complete(context.Background(), Request{
		Model:    "claude-sonnet-4-5",
		Messages: []Message{SystemMessage("only a system prompt")},
	})
	if err == nil {
		t.Fatal("expected error for conversation without user messages")
	}
	if _, ok := err.(*InvalidRequestError); !ok {
		t.Errorf("expected InvalidRequestError, got %T", err)
	}
}
