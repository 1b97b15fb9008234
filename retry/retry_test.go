package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	policy := Policy{
		BaseDelay:         1.0,
		BackoffMultiplier: 2.0,
		MaxDelay:          60.0,
		Jitter:            false,
	}

	delays := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}

	for i, expected := range delays {
		got := policy.Delay(i)
		if got != expected {
			t.Errorf("attempt %d: expected %v, got %v", i, expected, got)
		}
	}
}

func TestPolicyDelayWithMaxCap(t *testing.T) {
	policy := Policy{
		BaseDelay:         1.0,
		BackoffMultiplier: 2.0,
		MaxDelay:          5.0,
		Jitter:            false,
	}

	// Attempt 10 would be 1024s without cap.
	got := policy.Delay(10)
	if got != 5*time.Second {
		t.Errorf("expected 5s (capped), got %v", got)
	}
}

func TestPolicyDelayWithJitter(t *testing.T) {
	policy := Policy{
		BaseDelay:         1.0,
		BackoffMultiplier: 2.0,
		MaxDelay:          60.0,
		Jitter:            true,
	}

	// With jitter, delay should be within +/- 50% of base delay.
	for i := 0; i < 100; i++ {
		got := policy.Delay(0)
		if got < 500*time.Millisecond || got > 1500*time.Millisecond {
			t.Errorf("jittered delay out of range: %v", got)
		}
	}
}

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:        maxRetries,
		BaseDelay:         0.001,
		MaxDelay:          0.001,
		BackoffMultiplier: 1,
		Jitter:            false,
	}
}

func TestDoSuccessFirstTry(t *testing.T) {
	callCount := 0
	result, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		callCount++
		return "success", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected %q, got %q", "success", result)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	callCount := 0
	result, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		callCount++
		if callCount < 3 {
			return "", errors.New("transient")
		}
		return "success", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected %q, got %q", "success", result)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	lastErr := errors.New("persistent failure")
	callCount := 0
	_, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		callCount++
		return 0, lastErr
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("expected last error %v, got %v", lastErr, err)
	}
	// Initial attempt plus two retries.
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoNonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	policy := fastPolicy(5)
	policy.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	callCount := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		callCount++
		return 0, fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDoContextCancellation(t *testing.T) {
	policy := Policy{
		MaxRetries:        3,
		BaseDelay:         10.0,
		MaxDelay:          10.0,
		BackoffMultiplier: 1,
		Jitter:            false,
	}

	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	done := make(chan struct{})
	var err error
	go func() {
		_, err = Do(ctx, policy, func(ctx context.Context) (int, error) {
			callCount++
			return 0, errors.New("transient")
		})
		close(done)
	}()

	// Let the first attempt fail, then cancel during the backoff wait.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", callCount)
	}
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	policy := fastPolicy(2)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, _ = Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		return 0, errors.New("always fails")
	})

	if len(attempts) != 2 {
		t.Fatalf("expected 2 retry callbacks, got %d", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()
	if policy.MaxRetries != 2 {
		t.Errorf("expected 2 retries, got %d", policy.MaxRetries)
	}
	if policy.BaseDelay != 1.0 {
		t.Errorf("expected base delay 1.0, got %f", policy.BaseDelay)
	}
	if !policy.Jitter {
		t.Error("expected jitter enabled")
	}
}
