package client

import (
	"context"
	"encoding/json"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/api"
	"go.uber.org/zap"
)

var (
	_ langsys.TranslationSource = (*Client)(nil)
	_ langsys.RegistrationSink  = (*Client)(nil)
)

// Fetch returns the translation map of locale from the first tier that has
// it: process memory, the persistent cache, then the API. An API result is
// written back to both tiers.
func (c *Client) Fetch(ctx context.Context, locale string) (langsys.TranslationMap, error) {
	locale = langsys.NormalizeLocale(locale)

	c.mu.RLock()
	m, ok := c.memory[locale]
	c.mu.RUnlock()
	if ok {
		c.logger.Debug("translations cache hit", zap.String("locale", locale), zap.String("source", "memory"))
		return m, nil
	}

	key := langsys.TranslationsCacheKey(c.projectID, locale)
	if raw, ok := c.cache.Get(key); ok {
		var cached langsys.TranslationMap
		err := json.Unmarshal([]byte(raw), &cached)
		if err == nil {
			c.logger.Debug("translations cache hit", zap.String("locale", locale), zap.String("source", "persistent"))
			c.remember(locale, cached)
			return cached, nil
		}
		c.logger.Warn("discarding unreadable cached translations", zap.String("locale", locale), zap.Error(err))
		_ = c.cache.Delete(key)
	}

	v, err, _ := c.flight.Do(locale, func() (any, error) {
		c.logger.Debug("translations cache miss", zap.String("locale", locale))
		fresh, err := c.service.Translations(ctx, locale)
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			fresh = langsys.TranslationMap{}
		}
		if data, err := json.Marshal(fresh); err == nil {
			if err := c.cache.Set(key, string(data)); err != nil {
				c.logger.Warn("caching translations failed", zap.String("locale", locale), zap.Error(err))
			}
		}
		c.remember(locale, fresh)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(langsys.TranslationMap), nil
}

func (c *Client) remember(locale string, m langsys.TranslationMap) {
	c.mu.Lock()
	c.memory[locale] = m
	c.mu.Unlock()
}

// Invalidate drops locale from both cache tiers.
func (c *Client) Invalidate(_ context.Context, locale string) error {
	locale = langsys.NormalizeLocale(locale)

	c.mu.Lock()
	delete(c.memory, locale)
	c.mu.Unlock()

	return c.cache.Delete(langsys.TranslationsCacheKey(c.projectID, locale))
}

// Authorization returns the project authorization, from memory, the
// persistent cache, or the API.
func (c *Client) Authorization(ctx context.Context) (*api.Authorization, error) {
	c.mu.RLock()
	auth := c.auth
	c.mu.RUnlock()
	if auth != nil {
		return auth, nil
	}

	key := langsys.AuthCacheKey(c.projectID)
	if raw, ok := c.cache.Get(key); ok {
		var cached api.Authorization
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			c.setAuth(&cached)
			return &cached, nil
		}
		_ = c.cache.Delete(key)
	}

	auth, err := c.service.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(auth); err == nil {
		if err := c.cache.Set(key, string(data)); err != nil {
			c.logger.Warn("caching authorization failed", zap.Error(err))
		}
	}
	c.setAuth(auth)
	return auth, nil
}

func (c *Client) setAuth(auth *api.Authorization) {
	c.mu.Lock()
	c.auth = auth
	c.mu.Unlock()
}

// CanWrite reports whether the key may register items. An authorization
// failure counts as read-only.
func (c *Client) CanWrite(ctx context.Context) bool {
	auth, err := c.Authorization(ctx)
	if err != nil {
		c.logger.Warn("authorization failed, treating key as read-only", zap.Error(err))
		return false
	}
	return auth.CanWrite()
}

// RegisterPhrases submits phrases in one request.
func (c *Client) RegisterPhrases(ctx context.Context, phrases []langsys.Phrase) error {
	if !c.CanWrite(ctx) {
		return ErrReadOnly
	}
	return c.service.CreatePhrases(ctx, phrases)
}

// RegisterContentBlock submits one content block with its relative URLs
// resolved against the base URL.
func (c *Client) RegisterContentBlock(ctx context.Context, block langsys.ContentBlock) error {
	if !c.CanWrite(ctx) {
		return ErrReadOnly
	}
	return c.service.CreateContentBlocks(ctx, []langsys.ContentBlock{c.resolveURLs(block)})
}

func (c *Client) resolveURLs(block langsys.ContentBlock) langsys.ContentBlock {
	if c.baseURL != "" {
		block.HTML = c.parser.ResolveRelativeURLs(block.HTML, c.baseURL)
	}
	return block
}
