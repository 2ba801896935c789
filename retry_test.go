package langsys

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestWithRetry_FirstAttempt(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), fastRetry(3), func() (TranslationMap, error) {
		calls++
		return TranslationMap{"ui": {"Home": PhraseEntry("Inicio")}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Lookup("ui", "Home") != "Inicio" {
		t.Errorf("unexpected map: %v", got)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithRetry_ServiceRecovers(t *testing.T) {
	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		attempts = append(attempts, attempt)
		if delay <= 0 || delay > cfg.MaxDelay {
			t.Errorf("delay %v outside (0, %v]", delay, cfg.MaxDelay)
		}
	}

	calls := 0
	_, err := WithRetry(context.Background(), cfg, func() (struct{}, error) {
		calls++
		if calls < 3 {
			return struct{}{}, &APIError{Message: "bad gateway", StatusCode: 502, Retryable: true}
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if fmt.Sprint(attempts) != "[1 2]" {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetry(3), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, &APIError{StatusCode: 503, Retryable: true}
		}
		return 0, &AuthenticationError{Message: "invalid key"}
	})

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetry_Exhausted(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetry(2), func() (string, error) {
		calls++
		return "", &ProviderError{Message: "overloaded", Retryable: true}
	})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected the last ProviderError, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 1 attempt + 2 retries, got %d calls", calls)
	}
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WithRetry(ctx, cfg, func() (string, error) {
		return "", &APIError{StatusCode: 429, Retryable: true}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("backoff was not interrupted")
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	tests := []struct {
		name    string
		attempt int
		err     error
		want    time.Duration
	}{
		{"first retry", 0, errors.New("x"), 100 * time.Millisecond},
		{"doubles", 2, errors.New("x"), 400 * time.Millisecond},
		{"capped", 5, errors.New("x"), time.Second},
		{"retry-after wins", 0, &APIError{Retryable: true, RetryAfter: 700 * time.Millisecond}, 700 * time.Millisecond},
		{"retry-after capped", 0, &APIError{Retryable: true, RetryAfter: time.Minute}, time.Second},
		{"wrapped retry-after", 0, fmt.Errorf("fetch: %w", &APIError{RetryAfter: 300 * time.Millisecond}), 300 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Backoff(tt.attempt, tt.err); got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable api error", &APIError{StatusCode: 503, Retryable: true}, true},
		{"not found", &APIError{StatusCode: 404}, false},
		{"wrapped api error", fmt.Errorf("fetch: %w", &APIError{Retryable: true}), true},
		{"validation", &ValidationError{}, false},
		{"authentication", &AuthenticationError{}, false},
		{"retryable provider error", &ProviderError{Retryable: true}, true},
		{"count mismatch", &CountMismatchError{Expected: 2, Got: 1}, false},
		{"plain", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRetries != 3 || cfg.BaseDelay != time.Second || cfg.MaxDelay != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.OnRetry != nil {
		t.Error("default config should not carry a hook")
	}
}

type flakyProvider struct {
	failures int
	calls    int
}

func (p *flakyProvider) Translate(_ context.Context, req TranslateRequest) ([]string, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, &ProviderError{Message: "temporary failure", Retryable: true}
	}
	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		out[i] = "ES:" + text
	}
	return out, nil
}

func TestRetryableProvider(t *testing.T) {
	inner := &flakyProvider{failures: 2}
	p := NewRetryableProvider(inner, fastRetry(3))

	got, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Home"}, TargetLang: "es-es"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(got) != 1 || got[0] != "ES:Home" {
		t.Errorf("unexpected result %v", got)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}
