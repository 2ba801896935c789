package provider

import (
	"context"
	"sync"
)

// MockProvider drafts from a fixed table and records every request. Texts
// missing from the table come back bracketed, e.g. "[Checkout]", so an
// undrafted string stands out in rendered pages. It is safe for concurrent use.
type MockProvider struct {
	Translations map[string]string
	Err          error // Returned by every call when set

	mu       sync.Mutex
	requests []TranslateRequest
}

var _ AIProvider = (*MockProvider)(nil)

// NewMockProvider returns a mock with a few Spanish drafts.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":                "Hola",
			"World":                "Mundo",
			"Hello World":          "Hola Mundo",
			"Welcome to our site.": "Bienvenido a nuestro sitio.",
		},
	}
}

// Translate implements AIProvider.
func (m *MockProvider) Translate(_ context.Context, req TranslateRequest) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		draft, ok := m.Translations[text]
		if !ok {
			draft = "[" + text + "]"
		}
		out[i] = draft
	}
	return out, nil
}

// Calls returns the number of Translate calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the recorded requests in call order.
func (m *MockProvider) Requests() []TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TranslateRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil before the first call.
func (m *MockProvider) LastRequest() *TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}

// Reset forgets the recorded requests.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	m.requests = nil
	m.mu.Unlock()
}
