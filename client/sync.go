package client

import (
	"context"
	"fmt"

	"github.com/ZaguanLabs/langsys"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Prefetch loads the translation maps of locales concurrently so later page
// translations are served from the cache.
func (c *Client) Prefetch(ctx context.Context, locales ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	if c.prefetchLimit > 0 {
		g.SetLimit(c.prefetchLimit)
	}
	for _, locale := range locales {
		locale := locale
		g.Go(func() error {
			if _, err := c.Fetch(ctx, locale); err != nil {
				return fmt.Errorf("prefetching %s: %w", locale, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// SyncResult reports what Sync found and submitted.
type SyncResult struct {
	NewPhrases []langsys.Phrase
	NewBlocks  []langsys.ContentBlock
	Synced     bool
}

// Sync registers every phrase and content block of a page that the freshly
// fetched map of locale does not know, without translating the page. The
// ledger is not consulted.
func (c *Client) Sync(ctx context.Context, markup, locale string, opts ...PageOption) (*SyncResult, error) {
	items, err := c.Inspect(markup, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Invalidate(ctx, locale); err != nil {
		c.logger.Warn("invalidating translations failed", zap.String("locale", locale), zap.Error(err))
	}
	m, err := c.Fetch(ctx, locale)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	seen := make(map[string]bool)
	for _, p := range items.AllPhrases() {
		if seen[p.Key()] || m.HasPhrase(p.Category, p.Text) {
			continue
		}
		seen[p.Key()] = true
		result.NewPhrases = append(result.NewPhrases, p)
	}
	for _, b := range items.Blocks() {
		key := "block:" + b.Key()
		if seen[key] || m.HasBlock(b.Category, b.CustomID) {
			continue
		}
		seen[key] = true
		result.NewBlocks = append(result.NewBlocks, c.resolveURLs(b))
	}

	if len(result.NewPhrases) == 0 && len(result.NewBlocks) == 0 {
		return result, nil
	}
	if !c.CanWrite(ctx) {
		return result, nil
	}

	if err := c.service.CreatePhrases(ctx, result.NewPhrases); err != nil {
		return result, fmt.Errorf("registering phrases: %w", err)
	}
	if err := c.service.CreateContentBlocks(ctx, result.NewBlocks); err != nil {
		return result, fmt.Errorf("registering content blocks: %w", err)
	}
	c.mark(ctx, result.NewPhrases, result.NewBlocks)
	result.Synced = true

	if err := c.Invalidate(ctx, locale); err != nil {
		c.logger.Warn("invalidating translations failed", zap.String("locale", locale), zap.Error(err))
	}
	return result, nil
}

// ClearCache drops the cached translations of locale, or every cached entry
// and the remembered authorization when locale is empty.
func (c *Client) ClearCache(ctx context.Context, locale string) error {
	if locale != "" {
		return c.Invalidate(ctx, locale)
	}

	c.mu.Lock()
	c.memory = make(map[string]langsys.TranslationMap)
	c.auth = nil
	c.mu.Unlock()

	return c.cache.Clear()
}
