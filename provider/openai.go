package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ZaguanLabs/langsys"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// OpenAIProvider implements AIProvider using OpenAI's chat completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string  // Default: DefaultModel
	Temperature float32 // Default: 0.3
	BaseURL     string  // OpenAI-compatible endpoint (optional)
	HTTPClient  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate drafts translations for a batch of texts.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &langsys.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &langsys.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = "en"
	}
	sourceName := langsys.LanguageName(sourceLang)
	targetName := langsys.LanguageName(req.TargetLang)

	contextText := "The texts come from a website: page copy, navigation, buttons, and metadata."
	if req.Context != "" {
		contextText = fmt.Sprintf("The texts come from %s. Adapt the tone to be appropriate for it.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are a professional website localizer translating from %s into %s with the fluency of an educated native speaker.

# Context
%s

# Register
%s

# Rules
- Translate each text independently. Texts may be single words such as menu entries or button labels.
- Avoid literal translations; the result must read as if it had been written in %s.
- Do NOT add HTML tags. Return plain text only.
- Do NOT translate URLs, email addresses, or placeholders such as {{name}}, {count}, %%s or $1.
- Keep leading and trailing punctuation and use the target language's punctuation conventions.
- When an item carries a "context", it names the site section or category the text belongs to. Use it to pick the right sense, and never include it in the output.`,
		sourceName, targetName, contextText, langsys.StyleDescription(req.Style), targetName)

	if hint := LocaleHint(req.TargetLang); hint != "" {
		fmt.Fprintf(&b, "\n- **Locale**: %s", hint)
	}

	if len(req.Glossary) > 0 {
		sources := make([]string, 0, len(req.Glossary))
		for source := range req.Glossary {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		b.WriteString("\n\n# Glossary\nPrefer these translations unless the context demands otherwise:")
		for _, source := range sources {
			fmt.Fprintf(&b, "\n- %q → %s", source, req.Glossary[source])
		}
	}

	if len(req.ExcludedTerms) > 0 {
		fmt.Fprintf(&b, "\n\n# Exclusions\nKeep these terms exactly as they appear in the source:\n- %s",
			strings.Join(req.ExcludedTerms, "\n- "))
	}

	b.WriteString(`

# Format
Return a JSON object with a single key "translations" holding an array of strings in the same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }
Do NOT wrap the JSON in Markdown code fences.`)

	return b.String()
}

func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	if !hasContexts(req.TextContexts) {
		data, _ := json.Marshal(req.Texts)
		return string(data)
	}

	type item struct {
		Text    string `json:"text"`
		Context string `json:"context,omitempty"`
	}

	items := make([]item, len(req.Texts))
	for i, text := range req.Texts {
		items[i].Text = text
		if i < len(req.TextContexts) {
			items[i].Context = req.TextContexts[i]
		}
	}

	data, _ := json.Marshal(map[string][]item{"items": items})
	return string(data)
}

func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var objResult map[string]any
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		if arr, ok := objResult["translations"].([]any); ok {
			return toStringSlice(arr, expectedCount)
		}

		// Some models pick their own key.
		keys := make([]string, 0, len(objResult))
		for k := range objResult {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := objResult[k].([]any); ok {
				return toStringSlice(arr, expectedCount)
			}
		}
	}

	var arrResult []any
	if err := json.Unmarshal([]byte(content), &arrResult); err == nil {
		return toStringSlice(arrResult, expectedCount)
	}

	return nil, &langsys.ProviderError{
		Message:   "invalid response format from OpenAI",
		Retryable: false,
	}
}

func toStringSlice(arr []any, expectedCount int) ([]string, error) {
	if len(arr) != expectedCount {
		return nil, &langsys.CountMismatchError{
			Expected: expectedCount,
			Got:      len(arr),
		}
	}

	result := make([]string, len(arr))
	for i, v := range arr {
		switch s := v.(type) {
		case string:
			result[i] = s
		case nil:
			result[i] = ""
		default:
			result[i] = fmt.Sprintf("%v", v)
		}
	}
	return result, nil
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate limit", "timeout", "connection refused", "temporary"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

var _ AIProvider = (*OpenAIProvider)(nil)
