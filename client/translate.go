package client

import (
	"context"
	"errors"
	"sync"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/processor"
	"go.uber.org/zap"
)

type pageOptions struct {
	category    string
	rules       processor.SelectorRules
	rulesSet    bool
	categorySet bool
}

// PageOption configures one TranslatePage call.
type PageOption func(*pageOptions)

// WithCategory sets the page's default category.
func WithCategory(category string) PageOption {
	return func(o *pageOptions) {
		o.category = category
		o.categorySet = true
	}
}

// WithSelectors sets the page's selector rules.
func WithSelectors(rules processor.SelectorRules) PageOption {
	return func(o *pageOptions) {
		o.rules = rules
		o.rulesSet = true
	}
}

func (c *Client) pageOptions(opts []PageOption) pageOptions {
	var o pageOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.categorySet {
		o.category = c.defaultCategory
	}
	if !o.rulesSet {
		o.rules = c.rules
	}
	return o
}

// TranslatePage localizes an HTML document or fragment for locale,
// registering content the service does not know yet.
func (c *Client) TranslatePage(ctx context.Context, markup, locale string, opts ...PageOption) (string, error) {
	if locale == "" {
		return markup, nil
	}
	o := c.pageOptions(opts)
	return c.pages.Translate(ctx, markup, langsys.NormalizeLocale(locale), o.category, o.rules)
}

// Inspect classifies a page the way TranslatePage would, without fetching
// or registering anything.
func (c *Client) Inspect(markup string, opts ...PageOption) (*processor.PageItems, error) {
	o := c.pageOptions(opts)
	return c.pages.Inspect(markup, o.category, o.rules)
}

// Translate returns the translation of phrase in category, or phrase itself.
// A phrase the service does not know is queued for registration.
func (c *Client) Translate(ctx context.Context, phrase, locale, category string) string {
	text := langsys.Normalize(phrase)
	if text == "" || locale == "" {
		return phrase
	}
	category = langsys.CategoryOr(category, "")

	m, err := c.Fetch(ctx, locale)
	if err != nil {
		c.logger.Warn("fetching translations failed", zap.String("locale", locale), zap.Error(err))
		return phrase
	}
	if _, known := m[category][text]; known {
		if translated := m.Lookup(category, text); translated != text {
			return translated
		}
		return phrase
	}

	c.queue.addPhrase(langsys.Phrase{Text: text, Category: category}, locale)
	return phrase
}

// TranslateContentBlock applies the translations of the content block
// formed by markup in category. An unknown block is queued for registration
// and markup is returned unchanged.
func (c *Client) TranslateContentBlock(ctx context.Context, markup, locale, category string) string {
	if markup == "" || locale == "" {
		return markup
	}
	phrases := c.parser.ExtractPhrases(markup)
	if len(phrases) == 0 {
		return markup
	}
	category = langsys.CategoryOr(category, "")
	customID := c.parser.GenerateCustomID(category, phrases)

	m, err := c.Fetch(ctx, locale)
	if err != nil {
		c.logger.Warn("fetching translations failed", zap.String("locale", locale), zap.Error(err))
		return markup
	}
	if block, ok := m.Block(category, customID); ok {
		return c.parser.ApplyBlockTranslations(markup, block)
	}
	if !m.HasBlock(category, customID) {
		c.queue.addBlock(c.resolveURLs(langsys.ContentBlock{
			CustomID: customID,
			Category: category,
			Phrases:  phrases,
			HTML:     markup,
		}), locale)
	}
	return markup
}

// pendingQueue collects items discovered by Translate and
// TranslateContentBlock until Flush.
type pendingQueue struct {
	mu      sync.Mutex
	phrases []langsys.Phrase
	blocks  []langsys.ContentBlock
	keys    map[string]bool
	locales map[string]bool
}

func (q *pendingQueue) add(key, locale string) bool {
	if q.keys == nil {
		q.keys = make(map[string]bool)
		q.locales = make(map[string]bool)
	}
	q.locales[langsys.NormalizeLocale(locale)] = true
	if q.keys[key] {
		return false
	}
	q.keys[key] = true
	return true
}

func (q *pendingQueue) addPhrase(p langsys.Phrase, locale string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.add(p.Key(), locale) {
		q.phrases = append(q.phrases, p)
	}
}

func (q *pendingQueue) addBlock(b langsys.ContentBlock, locale string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.add("block:"+b.Key(), locale) {
		q.blocks = append(q.blocks, b)
	}
}

// Pending lists the queued phrases and content blocks.
type Pending struct {
	Phrases []langsys.Phrase
	Blocks  []langsys.ContentBlock
}

// Empty reports whether nothing is queued.
func (p Pending) Empty() bool {
	return len(p.Phrases) == 0 && len(p.Blocks) == 0
}

// Pending returns a snapshot of the queue.
func (c *Client) Pending() Pending {
	c.queue.mu.Lock()
	defer c.queue.mu.Unlock()
	return Pending{
		Phrases: append([]langsys.Phrase(nil), c.queue.phrases...),
		Blocks:  append([]langsys.ContentBlock(nil), c.queue.blocks...),
	}
}

// FlushResult counts what Flush submitted.
type FlushResult struct {
	Phrases int
	Blocks  int
}

// Flush submits the queued phrases in one request and the queued blocks in
// another. A read-only key drops the queue. A failed batch stays queued for
// the next Flush. After a successful submission the cached translations of
// every locale that queued items are invalidated.
func (c *Client) Flush(ctx context.Context) (FlushResult, error) {
	q := &c.queue
	q.mu.Lock()
	defer q.mu.Unlock()

	var result FlushResult
	if len(q.phrases) == 0 && len(q.blocks) == 0 {
		return result, nil
	}

	if !c.CanWrite(ctx) {
		c.logger.Warn("flush skipped, read-only key",
			zap.Int("pending_phrases", len(q.phrases)),
			zap.Int("pending_blocks", len(q.blocks)))
		q.phrases, q.blocks, q.keys, q.locales = nil, nil, nil, nil
		return result, nil
	}

	var errs []error
	if len(q.phrases) > 0 {
		if err := c.service.CreatePhrases(ctx, q.phrases); err != nil {
			c.logger.Error("registering phrases failed", zap.Int("count", len(q.phrases)), zap.Error(err))
			errs = append(errs, err)
		} else {
			c.mark(ctx, q.phrases, nil)
			result.Phrases = len(q.phrases)
			for _, p := range q.phrases {
				delete(q.keys, p.Key())
			}
			q.phrases = nil
		}
	}
	if len(q.blocks) > 0 {
		if err := c.service.CreateContentBlocks(ctx, q.blocks); err != nil {
			c.logger.Error("registering content blocks failed", zap.Int("count", len(q.blocks)), zap.Error(err))
			errs = append(errs, err)
		} else {
			c.mark(ctx, nil, q.blocks)
			result.Blocks = len(q.blocks)
			for _, b := range q.blocks {
				delete(q.keys, "block:"+b.Key())
			}
			q.blocks = nil
		}
	}

	if result.Phrases > 0 || result.Blocks > 0 {
		c.logger.Info("pending registrations flushed",
			zap.Int("phrases", result.Phrases), zap.Int("blocks", result.Blocks))
		for locale := range q.locales {
			if err := c.Invalidate(ctx, locale); err != nil {
				c.logger.Warn("invalidating translations failed", zap.String("locale", locale), zap.Error(err))
			}
		}
		if len(q.phrases) == 0 && len(q.blocks) == 0 {
			q.locales = nil
		}
	}
	return result, errors.Join(errs...)
}

// mark records submitted items in the ledger, grouped by category in order
// of first appearance.
func (c *Client) mark(ctx context.Context, phrases []langsys.Phrase, blocks []langsys.ContentBlock) {
	var order []string
	texts := make(map[string][]string)
	ids := make(map[string][]string)
	seen := make(map[string]bool)
	note := func(category string) {
		if !seen[category] {
			seen[category] = true
			order = append(order, category)
		}
	}
	for _, p := range phrases {
		note(p.Category)
		texts[p.Category] = append(texts[p.Category], p.Text)
	}
	for _, b := range blocks {
		note(b.Category)
		ids[b.Category] = append(ids[b.Category], b.CustomID)
	}
	for _, category := range order {
		if err := c.ledger.MarkRegistered(ctx, category, texts[category], ids[category]); err != nil {
			c.logger.Warn("recording registered items failed", zap.String("category", category), zap.Error(err))
		}
	}
}
