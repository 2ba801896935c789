package langsys

import (
	"errors"
	"testing"
)

func TestAPIError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &APIError{Message: "request failed", Cause: cause, Retryable: true}

	if err.Error() != "api error: request failed: connection reset" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}

	withStatus := &APIError{Message: "server error", StatusCode: 503}
	if withStatus.Error() != "api error (status 503): server error" {
		t.Errorf("unexpected error message: %s", withStatus.Error())
	}
}

func TestAuthenticationError(t *testing.T) {
	err := &AuthenticationError{Message: "invalid key"}
	if err.Error() != "authentication failed: invalid key" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	empty := &AuthenticationError{}
	if empty.Error() != "authentication failed" {
		t.Errorf("unexpected error message: %s", empty.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Message: "The given data was invalid.",
		Errors: map[string][]string{
			"phrases":    {"required"},
			"project_id": {"invalid", "missing"},
		},
	}

	expected := "The given data was invalid. (phrases: required; project_id: invalid, missing)"
	if err.Error() != expected {
		t.Errorf("unexpected error message: %s, want %s", err.Error(), expected)
	}

	bare := &ValidationError{}
	if bare.Error() != "validation failed" {
		t.Errorf("unexpected error message: %s", bare.Error())
	}
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Message: "rate limited", Retryable: true}

	if err.Error() != "provider error: rate limited" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	if !err.Retryable {
		t.Error("error should be retryable")
	}
}

func TestCacheError(t *testing.T) {
	err := &CacheError{Message: "connection failed"}

	if err.Error() != "cache error: connection failed" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestSelectorError(t *testing.T) {
	err := &SelectorError{Selector: "div[", Offset: 4, Message: "unterminated attribute selector"}

	expected := `invalid selector "div[" at offset 4: unterminated attribute selector`
	if err.Error() != expected {
		t.Errorf("unexpected error message: %s, want %s", err.Error(), expected)
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Key: "api_key", Message: "is required"}
	if err.Error() != "config error: api_key: is required" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestCountMismatchError(t *testing.T) {
	err := &CountMismatchError{Expected: 5, Got: 3}

	expected := "translation count mismatch: expected 5, got 3"
	if err.Error() != expected {
		t.Errorf("unexpected error message: %s, want %s", err.Error(), expected)
	}
}
