// Package client is the public facade of langsys: a tiered translation
// source, a registration sink over the service API, and page, phrase and
// content block helpers built on them.
package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/api"
	"github.com/ZaguanLabs/langsys/cache"
	"github.com/ZaguanLabs/langsys/config"
	"github.com/ZaguanLabs/langsys/ledger"
	"github.com/ZaguanLabs/langsys/processor"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultPrefetchConcurrency bounds parallel fetches in Prefetch.
const DefaultPrefetchConcurrency = 4

// ErrReadOnly is returned by registration calls made with a read-only key.
var ErrReadOnly = errors.New("langsys: api key does not have write permission")

// Service is the subset of the API the client depends on.
type Service interface {
	Authorize(ctx context.Context) (*api.Authorization, error)
	Translations(ctx context.Context, locale string) (langsys.TranslationMap, error)
	CreatePhrases(ctx context.Context, phrases []langsys.Phrase) error
	CreateContentBlocks(ctx context.Context, blocks []langsys.ContentBlock) error
}

var _ Service = (*api.Client)(nil)

// Client translates pages and strings for one project.
type Client struct {
	service         Service
	projectID       string
	cache           cache.Cache
	ledger          langsys.RegisteredItemsLedger
	parser          *processor.Parser
	pages           *processor.PageTranslator
	logger          *zap.Logger
	baseURL         string
	defaultCategory string
	rules           processor.SelectorRules
	prefetchLimit   int
	closers         []io.Closer

	mu     sync.RWMutex
	memory map[string]langsys.TranslationMap
	auth   *api.Authorization
	flight singleflight.Group

	queue pendingQueue
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the persistent cache tier.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithLedger sets where registered items are remembered.
func WithLedger(l langsys.RegisteredItemsLedger) Option {
	return func(cl *Client) {
		cl.ledger = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithParser sets the parser, and with it the translatable attribute whitelist.
func WithParser(p *processor.Parser) Option {
	return func(cl *Client) {
		cl.parser = p
	}
}

// WithBaseURL sets the site root used to absolutize URLs in registered
// content blocks.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

// WithDefaultCategory sets the category of TranslatePage calls that name none.
func WithDefaultCategory(category string) Option {
	return func(cl *Client) {
		cl.defaultCategory = category
	}
}

// WithSelectorRules sets the selector rules of TranslatePage calls that name none.
func WithSelectorRules(rules processor.SelectorRules) Option {
	return func(cl *Client) {
		cl.rules = rules
	}
}

// WithPrefetchConcurrency bounds parallel fetches in Prefetch.
func WithPrefetchConcurrency(n int) Option {
	return func(cl *Client) {
		cl.prefetchLimit = n
	}
}

// New builds a client from configuration: the API client, the configured
// cache and ledger, and the selector rules file when one is set.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := cache.New(cfg.Cache.Driver, cfg.CacheOptions())
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	var l langsys.RegisteredItemsLedger = ledger.NewCacheLedger(store)
	if cfg.Ledger.Driver == config.LedgerSQLite {
		sl, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		l = sl
		closers = append(closers, sl)
	}

	var rules processor.SelectorRules
	if cfg.Selectors != "" {
		rules, err = processor.LoadSelectorRules(cfg.Selectors)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
	}

	base := []Option{
		WithCache(store),
		WithLedger(l),
		WithBaseURL(cfg.BaseURL),
		WithDefaultCategory(cfg.DefaultCategory),
		WithSelectorRules(rules),
	}
	c := NewWithService(nil, cfg.ProjectID, append(base, opts...)...)
	c.service = api.New(api.Config{
		BaseURL:           cfg.APIURL,
		APIKey:            cfg.APIKey,
		ProjectID:         cfg.ProjectID,
		RequestsPerMinute: cfg.RateLimit,
	}, api.WithLogger(c.logger))
	c.closers = closers
	return c, nil
}

// NewWithService builds a client over svc. Without WithCache the persistent
// tier is an in-memory cache; without WithLedger the ledger lives in that
// cache.
func NewWithService(svc Service, projectID string, opts ...Option) *Client {
	c := &Client{
		service:       svc,
		projectID:     projectID,
		cache:         cache.NewInMemoryCache(0),
		logger:        zap.NewNop(),
		prefetchLimit: DefaultPrefetchConcurrency,
		memory:        make(map[string]langsys.TranslationMap),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.parser == nil {
		c.parser = processor.NewParser()
	}
	if c.ledger == nil {
		c.ledger = ledger.NewCacheLedger(c.cache)
	}
	c.pages = processor.NewPageTranslator(c, c, c.ledger,
		processor.WithParser(c.parser),
		processor.WithLogger(c.logger),
	)
	return c
}

// Parser returns the parser shared by page and content block translation.
func (c *Client) Parser() *processor.Parser {
	return c.parser
}

// Close flushes pending registrations and releases the cache and ledger
// opened by New.
func (c *Client) Close(ctx context.Context) error {
	_, err := c.Flush(ctx)
	return errors.Join(err, closeAll(c.closers))
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, cl := range closers {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}
