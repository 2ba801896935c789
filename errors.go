package langsys

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// APIError indicates a failed call to the translation service.
type APIError struct {
	Message    string
	Cause      error
	StatusCode int           // HTTP status, 0 when the request never completed
	Retryable  bool          // Whether the call can be retried
	RetryAfter time.Duration // Wait requested by the service, zero when none
}

func (e *APIError) Error() string {
	status := ""
	if e.StatusCode != 0 {
		status = fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("api error%s: %s: %v", status, e.Message, e.Cause)
	}
	return fmt.Sprintf("api error%s: %s", status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// AuthenticationError indicates the API key was rejected.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Message
}

// ValidationError indicates the service rejected the request payload.
type ValidationError struct {
	Message string
	Errors  map[string][]string
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "validation failed"
	}
	if len(e.Errors) == 0 {
		return msg
	}
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	details := make([]string, 0, len(fields))
	for _, field := range fields {
		details = append(details, field+": "+strings.Join(e.Errors[field], ", "))
	}
	return msg + " (" + strings.Join(details, "; ") + ")"
}

// ProviderError indicates an AI provider failure (API error, rate limit, etc.).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// SelectorError indicates a selector rule that could not be compiled.
type SelectorError struct {
	Selector string
	Offset   int // Byte offset of the problem within Selector
	Message  string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q at offset %d: %s", e.Selector, e.Offset, e.Message)
}

// ConfigError indicates an invalid or missing configuration value.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Key, e.Message)
}

// CountMismatchError indicates the AI returned a different number of translations than expected.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
