package api

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/ZaguanLabs/langsys"
	"go.uber.org/zap"
)

// KeyTypeWrite is the key type allowed to register items.
const KeyTypeWrite = "write"

// Authorization describes the project and the permissions of the API key.
type Authorization struct {
	KeyType       string   `json:"key_type"`
	ProjectName   string   `json:"name,omitempty"`
	BaseLocale    string   `json:"base_locale,omitempty"`
	TargetLocales []string `json:"target_locales,omitempty"`
}

// CanWrite reports whether the key may register items.
func (a *Authorization) CanWrite() bool {
	return a != nil && a.KeyType == KeyTypeWrite
}

// Authorize checks the key against the project.
func (c *Client) Authorize(ctx context.Context) (*Authorization, error) {
	var resp struct {
		Data *Authorization `json:"data"`
	}
	if err := c.get(ctx, "authorize-project/"+url.PathEscape(c.projectID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return &Authorization{}, nil
	}
	c.logger.Info("project authorized",
		zap.String("project_id", c.projectID),
		zap.String("key_type", resp.Data.KeyType))
	return resp.Data, nil
}

// TranslationStats summarizes a locale's progress.
type TranslationStats struct {
	Words        int `json:"words"`
	Untranslated int `json:"untranslated"`
}

type translationsResponse struct {
	TranslationStats
	Data langsys.TranslationMap `json:"data"`
}

// Translations returns the flat translation map of locale.
func (c *Client) Translations(ctx context.Context, locale string) (langsys.TranslationMap, error) {
	resp, err := c.translations(ctx, locale)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Stats returns the word counts of locale.
func (c *Client) Stats(ctx context.Context, locale string) (TranslationStats, error) {
	resp, err := c.translations(ctx, locale)
	if err != nil {
		return TranslationStats{}, err
	}
	return resp.TranslationStats, nil
}

func (c *Client) translations(ctx context.Context, locale string) (*translationsResponse, error) {
	c.logger.Debug("fetching translations", zap.String("locale", locale))

	query := url.Values{}
	query.Set("project_id", c.projectID)
	query.Set("locale", locale)
	query.Set("format", "flat")

	var resp translationsResponse
	if err := c.get(ctx, "translations", query, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = langsys.TranslationMap{}
	}
	return &resp, nil
}

type phraseItem struct {
	Phrase   string `json:"phrase"`
	Category string `json:"category,omitempty"`
}

type phrasesRequest struct {
	ProjectID string       `json:"project_id"`
	Type      string       `json:"type"`
	Phrases   []phraseItem `json:"phrases"`
}

type contentBlockRequest struct {
	ProjectID string       `json:"project_id"`
	Type      string       `json:"type"`
	CustomID  string       `json:"custom_id"`
	Content   string       `json:"content"`
	Phrases   []phraseItem `json:"phrases"`
	Category  string       `json:"category,omitempty"`
}

// CreatePhrases registers phrases in one request.
func (c *Client) CreatePhrases(ctx context.Context, phrases []langsys.Phrase) error {
	if len(phrases) == 0 {
		return nil
	}
	items := make([]phraseItem, len(phrases))
	for i, p := range phrases {
		items[i] = phraseItem{Phrase: p.Text, Category: langsys.CategoryOr(p.Category, "")}
	}

	c.logger.Debug("creating phrases", zap.Int("count", len(items)))
	return c.post(ctx, "translatable-items", phrasesRequest{
		ProjectID: c.projectID,
		Type:      "phrase",
		Phrases:   items,
	}, nil)
}

// CreateContentBlocks registers content blocks in one request. The block
// HTML is whitespace-collapsed before it is sent.
func (c *Client) CreateContentBlocks(ctx context.Context, blocks []langsys.ContentBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	items := make([]contentBlockRequest, len(blocks))
	for i, b := range blocks {
		phrases := make([]phraseItem, len(b.Phrases))
		for j, p := range b.Phrases {
			phrases[j] = phraseItem{Phrase: p}
		}
		item := contentBlockRequest{
			ProjectID: c.projectID,
			Type:      "content_block",
			CustomID:  b.CustomID,
			Content:   NormalizeContent(b.HTML),
			Phrases:   phrases,
		}
		if b.Category != langsys.UncategorizedCategory {
			item.Category = b.Category
		}
		items[i] = item
	}

	c.logger.Debug("creating content blocks", zap.Int("count", len(items)))
	return c.post(ctx, "translatable-items", items, nil)
}

var interTagSpace = regexp.MustCompile(`>\s+<`)

// NormalizeContent trims html, collapses whitespace runs and removes
// whitespace between tags.
func NormalizeContent(html string) string {
	return interTagSpace.ReplaceAllString(langsys.Normalize(html), "><")
}

// utilityPageSize fetches every row of a utility list in one page.
const utilityPageSize = "300"

// Countries lists countries with names in displayLocale.
func (c *Client) Countries(ctx context.Context, displayLocale string) (json.RawMessage, error) {
	return c.utility(ctx, "countries/"+url.PathEscape(displayLocale), url.Values{"records_per_page": {utilityPageSize}})
}

// DialCodes lists country dial codes with names in displayLocale.
func (c *Client) DialCodes(ctx context.Context, displayLocale string) (json.RawMessage, error) {
	return c.utility(ctx, "countries/dial-codes/"+url.PathEscape(displayLocale), url.Values{"records_per_page": {utilityPageSize}})
}

// Locales lists the locales known to the service, named in each of
// displayLocales, with the project's target locales appended.
func (c *Client) Locales(ctx context.Context, displayLocales ...string) (json.RawMessage, error) {
	query := url.Values{}
	for _, l := range displayLocales {
		query.Add("locales[]", strings.TrimSpace(l))
	}
	if c.projectID != "" {
		query.Set("project_id", c.projectID)
	}
	return c.utility(ctx, "locales/flat", query)
}

func (c *Client) utility(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
