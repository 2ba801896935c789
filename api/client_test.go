package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api/", APIKey: "key-1", ProjectID: "proj-1"},
		WithRetryConfig(langsys.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}))
}

func TestClient_Headers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/authorize-project/proj-1", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("X-Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, langsys.UserAgent(), r.Header.Get("User-Agent"))
		assert.Len(t, r.Header.Get("X-Request-ID"), 36)
		_, _ = io.WriteString(w, `{"data":{"key_type":"write","base_locale":"en-us"}}`)
	})

	auth, err := c.Authorize(context.Background())
	require.NoError(t, err)
	assert.True(t, auth.CanWrite())
	assert.Equal(t, "en-us", auth.BaseLocale)
}

func TestAuthorization_CanWrite(t *testing.T) {
	assert.False(t, (&Authorization{KeyType: "read"}).CanWrite())
	assert.False(t, (*Authorization)(nil).CanWrite())
}

func TestClient_Translations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/translations", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "proj-1", q.Get("project_id"))
		assert.Equal(t, "es-es", q.Get("locale"))
		assert.Equal(t, "flat", q.Get("format"))
		_, _ = io.WriteString(w, `{"status":true,"words":10,"untranslated":2,"data":{
			"UI":{"Home":"Inicio","About":""},
			"__uncategorized__":{"abc":{"Hello":"Hola"}},
			"empty":[]
		}}`)
	})

	m, err := c.Translations(context.Background(), "es-es")
	require.NoError(t, err)
	assert.Equal(t, "Inicio", m.Lookup("UI", "Home"))
	assert.Equal(t, "About", m.Lookup("UI", "About"))
	block, ok := m.Block(langsys.UncategorizedCategory, "abc")
	require.True(t, ok)
	assert.Equal(t, "Hola", block.Lookup("Hello"))
	assert.Empty(t, m["empty"])

	stats, err := c.Stats(context.Background(), "es-es")
	require.NoError(t, err)
	assert.Equal(t, TranslationStats{Words: 10, Untranslated: 2}, stats)
}

func TestClient_Translations_EmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":true,"data":[]}`)
	})
	m, err := c.Translations(context.Background(), "fr")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestClient_CreatePhrases(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/translatable-items", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"status":true}`)
	})

	err := c.CreatePhrases(context.Background(), []langsys.Phrase{
		{Text: "Home", Category: "nav"},
		{Text: "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got["project_id"])
	assert.Equal(t, "phrase", got["type"])
	assert.Equal(t, []any{
		map[string]any{"phrase": "Home", "category": "nav"},
		map[string]any{"phrase": "Hello", "category": langsys.UncategorizedCategory},
	}, got["phrases"])
}

func TestClient_CreatePhrases_EmptyIsNoop(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	require.NoError(t, c.CreatePhrases(context.Background(), nil))
	require.NoError(t, c.CreateContentBlocks(context.Background(), nil))
}

func TestClient_CreateContentBlocks(t *testing.T) {
	var got []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"status":true}`)
	})

	err := c.CreateContentBlocks(context.Background(), []langsys.ContentBlock{
		{CustomID: "id1", Category: "hero", Phrases: []string{"Hi", "There"}, HTML: "\n  <p>Hi</p>\n  <p>There</p>\n"},
		{CustomID: "id2", Category: langsys.UncategorizedCategory, Phrases: []string{"X"}, HTML: "<b>X</b>"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "content_block", got[0]["type"])
	assert.Equal(t, "id1", got[0]["custom_id"])
	assert.Equal(t, "hero", got[0]["category"])
	assert.Equal(t, "<p>Hi</p><p>There</p>", got[0]["content"])
	assert.Equal(t, []any{map[string]any{"phrase": "Hi"}, map[string]any{"phrase": "There"}}, got[0]["phrases"])

	_, hasCategory := got[1]["category"]
	assert.False(t, hasCategory)
}

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "<div><p>A b</p></div>", NormalizeContent("  <div>\n\t<p>A   b</p>\n</div>  "))
	assert.Equal(t, "Text <b>bold</b> tail", NormalizeContent("Text <b>bold</b> tail"))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		check     func(t *testing.T, err error)
		retryable bool
		attempts  int32
	}{
		{
			name:   "401 is an authentication error",
			status: http.StatusUnauthorized,
			body:   `{"error":"bad key"}`,
			check: func(t *testing.T, err error) {
				var authErr *langsys.AuthenticationError
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, "bad key", authErr.Message)
			},
			attempts: 1,
		},
		{
			name:   "422 is a validation error",
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"invalid","errors":{"phrases":["required"]}}`,
			check: func(t *testing.T, err error) {
				var valErr *langsys.ValidationError
				require.True(t, errors.As(err, &valErr))
				assert.Equal(t, map[string][]string{"phrases": {"required"}}, valErr.Errors)
			},
			attempts: 1,
		},
		{
			name:   "404 is a plain api error",
			status: http.StatusNotFound,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				var apiErr *langsys.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
				assert.Equal(t, "Not Found", apiErr.Message)
			},
			attempts: 1,
		},
		{
			name:      "503 is retried",
			status:    http.StatusServiceUnavailable,
			body:      `{"error":"down"}`,
			retryable: true,
			attempts:  3,
		},
		{
			name:      "429 is retried",
			status:    http.StatusTooManyRequests,
			retryable: true,
			attempts:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Translations(context.Background(), "es")
			require.Error(t, err)
			assert.Equal(t, tt.retryable, langsys.IsRetryable(err))
			assert.Equal(t, tt.attempts, calls.Load())
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestClient_RetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"UI":{"Home":"Inicio"}}}`)
	})

	m, err := c.Translations(context.Background(), "es")
	require.NoError(t, err)
	assert.Equal(t, "Inicio", m.Lookup("UI", "Home"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_TransportError(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", ProjectID: "p"},
		WithRetryConfig(langsys.RetryConfig{MaxRetries: 0}))

	_, err := c.Authorize(context.Background())
	var apiErr *langsys.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Retryable)
	assert.Zero(t, apiErr.StatusCode)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Translations(ctx, "es")
	require.Error(t, err)
	assert.False(t, langsys.IsRetryable(err))
}

func TestClient_Utilities(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/countries/es-es":
			assert.Equal(t, "300", r.URL.Query().Get("records_per_page"))
			_, _ = io.WriteString(w, `{"data":[{"label":"España","code":"ES"}]}`)
		case "/api/countries/dial-codes/en-us":
			_, _ = io.WriteString(w, `{"data":[{"country_code":"CR","dial_code":"506"}]}`)
		case "/api/locales/flat":
			assert.Equal(t, []string{"en-us", "es-es"}, r.URL.Query()["locales[]"])
			assert.Equal(t, "proj-1", r.URL.Query().Get("project_id"))
			_, _ = io.WriteString(w, `{"data":{"en-us":[{"code":"es-cr","name":"Spanish (Costa Rica)"}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	countries, err := c.Countries(ctx, "es-es")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"label":"España","code":"ES"}]`, string(countries))

	codes, err := c.DialCodes(ctx, "en-us")
	require.NoError(t, err)
	assert.Contains(t, string(codes), `"506"`)

	locales, err := c.Locales(ctx, "en-us", "es-es")
	require.NoError(t, err)
	assert.Contains(t, string(locales), "es-cr")
}

func TestClient_RateLimiter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"data":{}}`)
	}))
	defer srv.Close()

	limiter := langsys.NewRateLimiter(langsys.RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})
	c := New(Config{BaseURL: srv.URL, ProjectID: "p"}, WithRateLimiter(limiter),
		WithRetryConfig(langsys.RetryConfig{MaxRetries: 0}))

	_, err := c.Translations(context.Background(), "es")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Translations(ctx, "es")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{" 0 ", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"soon", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfter(tt.header, now), "header %q", tt.header)
	}
}

func TestClient_RetryAfterPausesLimiter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"data":{}}`)
	}))
	defer srv.Close()

	limiter := langsys.NewRateLimiter(langsys.RateLimitConfig{RequestsPerMinute: 6000})
	c := New(Config{BaseURL: srv.URL, ProjectID: "p"}, WithRateLimiter(limiter),
		WithRetryConfig(langsys.RetryConfig{MaxRetries: 0}))

	_, err := c.Translations(context.Background(), "es")
	var apiErr *langsys.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, time.Second, apiErr.RetryAfter)
	assert.False(t, limiter.TryAcquire())
	assert.Equal(t, int32(1), calls.Load())
}
