// Package ledger remembers which phrases and content blocks were already
// submitted for registration, so a page that is rendered again before its
// translations arrive does not submit them twice.
package ledger

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/cache"
)

// CacheLedger stores registered items as JSON under
// registered_items_<category> in a cache.
type CacheLedger struct {
	cache cache.Cache
	mu    sync.Mutex
}

// NewCacheLedger creates a ledger over c.
func NewCacheLedger(c cache.Cache) *CacheLedger {
	return &CacheLedger{cache: c}
}

// Registered returns what was registered for category. A missing or
// unreadable entry is an empty set.
func (l *CacheLedger) Registered(_ context.Context, category string) (langsys.RegisteredItems, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(category)
}

func (l *CacheLedger) load(category string) (langsys.RegisteredItems, error) {
	var items langsys.RegisteredItems
	raw, ok := l.cache.Get(langsys.RegisteredItemsCacheKey(category))
	if !ok {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return langsys.RegisteredItems{}, &langsys.CacheError{Message: "decoding registered items", Cause: err}
	}
	return items, nil
}

// MarkRegistered merges phrases and blockIDs into category's entry.
func (l *CacheLedger) MarkRegistered(_ context.Context, category string, phrases, blockIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.load(category)
	if err != nil {
		items = langsys.RegisteredItems{}
	}
	items.Add(phrases, blockIDs)
	if items.Phrases == nil {
		items.Phrases = []string{}
	}
	if items.ContentBlocks == nil {
		items.ContentBlocks = []string{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return &langsys.CacheError{Message: "encoding registered items", Cause: err}
	}
	return l.cache.Set(langsys.RegisteredItemsCacheKey(category), string(data))
}

// Forget drops the entry of category.
func (l *CacheLedger) Forget(_ context.Context, category string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Delete(langsys.RegisteredItemsCacheKey(category))
}

var _ langsys.RegisteredItemsLedger = (*CacheLedger)(nil)
