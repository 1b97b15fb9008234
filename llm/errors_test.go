package llm

import (
	"errors"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		check     func(error) bool
		name      string
		retryable bool
	}{
		{400, func(e error) bool { _, ok := e.(*InvalidRequestError); return ok }, "InvalidRequestError", false},
		{401, func(e error) bool { _, ok := e.(*AuthenticationError); return ok }, "AuthenticationError", false},
		{403, func(e error) bool { _, ok := e.(*AccessDeniedError); return ok }, "AccessDeniedError", false},
		{404, func(e error) bool { _, ok := e.(*NotFoundError); return ok }, "NotFoundError", false},
		{408, func(e error) bool { _, ok := e.(*RequestTimeoutError); return ok }, "RequestTimeoutError", true},
		{413, func(e error) bool { _, ok := e.(*ContextLengthError); return ok }, "ContextLengthError", false},
		{422, func(e error) bool { _, ok := e.(*InvalidRequestError); return ok }, "InvalidRequestError", false},
		{429, func(e error) bool { _, ok := e.(*RateLimitError); return ok }, "RateLimitError", true},
		{500, func(e error) bool { _, ok := e.(*ServerError); return ok }, "ServerError", true},
		{502, func(e error) bool { _, ok := e.(*ServerError); return ok }, "ServerError", true},
		{503, func(e error) bool { _, ok := e.(*ServerError); return ok }, "ServerError", true},
		{504, func(e error) bool { _, ok := e.(*ServerError); return ok }, "ServerError", true},
		{418, func(e error) bool { _, ok := e.(*ProviderError); return ok }, "ProviderError", true},
	}

	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "test error", "openai", "", nil, nil)
		if !tt.check(err) {
			t.Errorf("status %d: expected %s, got %T", tt.status, tt.name, err)
		}
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("status %d: expected retryable=%v, got %v", tt.status, tt.retryable, got)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"auth error", &AuthenticationError{}, false},
		{"access denied", &AccessDeniedError{}, false},
		{"not found", &NotFoundError{}, false},
		{"invalid request", &InvalidRequestError{}, false},
		{"context length", &ContextLengthError{}, false},
		{"config error", &ConfigurationError{}, false},
		{"abort error", &AbortError{}, false},
		{"rate limit", &RateLimitError{ProviderError: ProviderError{Retryable: true}}, true},
		{"server error", &ServerError{ProviderError: ProviderError{Retryable: true}}, true},
		{"network error", &NetworkError{}, true},
		{"timeout error", &RequestTimeoutError{}, true},
		{"unknown error", errors.New("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsRetryable(tt.err)
			if got != tt.retryable {
				t.Errorf("IsRetryable(%T) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ClientError{Message: "wrapper", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("expected ClientError to unwrap to its cause")
	}
	if err.Error() != "wrapper: root cause" {
		t.Errorf("expected %q, got %q", "wrapper: root cause", err.Error())
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{
		ClientError: ClientError{Message: "rate limited"},
		Provider:    "anthropic",
		StatusCode:  429,
		Retryable:   true,
	}
	expected := "[anthropic] rate limited (status=429, retryable=true)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestErrorFromStatusCodeRetryAfter(t *testing.T) {
	after := 30.0
	err := ErrorFromStatusCode(429, "slow down", "openai", "rate_limit_exceeded", nil, &after)
	rle, ok := err.(*RateLimitError)
	if !ok {
		t.Fatalf("expected RateLimitError, got %T", err)
	}
	if rle.RetryAfter == nil || *rle.RetryAfter != 30.0 {
		t.Errorf("expected retry_after 30, got %v", rle.RetryAfter)
	}
	if rle.ErrorCode != "rate_limit_exceeded" {
		t.Errorf("expected error code %q, got %q", "rate_limit_exceeded", rle.ErrorCode)
	}
}
