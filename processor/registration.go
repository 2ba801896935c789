package processor

import (
	"context"

	"github.com/ZaguanLabs/langsys"
	"go.uber.org/zap"
)

// findNew returns the phrases and blocks of items that translations does not
// know and the ledger has not recorded, de-duplicated by category and key.
func (t *PageTranslator) findNew(ctx context.Context, items *PageItems, translations langsys.TranslationMap) ([]langsys.Phrase, []langsys.ContentBlock) {
	registered := make(map[string]langsys.RegisteredItems)
	lookup := func(category string) langsys.RegisteredItems {
		if r, ok := registered[category]; ok {
			return r
		}
		var r langsys.RegisteredItems
		if t.ledger != nil {
			var err error
			r, err = t.ledger.Registered(ctx, category)
			if err != nil {
				t.logger.Warn("reading registered items failed",
					zap.String("category", category), zap.Error(err))
			}
		}
		registered[category] = r
		return r
	}

	seen := make(map[string]bool)
	var phrases []langsys.Phrase
	for _, p := range items.AllPhrases() {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		if translations.HasPhrase(p.Category, p.Text) || lookup(p.Category).HasPhrase(p.Text) {
			continue
		}
		phrases = append(phrases, p)
	}

	var blocks []langsys.ContentBlock
	for _, b := range items.Blocks() {
		key := "block:" + b.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		if translations.HasBlock(b.Category, b.CustomID) || lookup(b.Category).HasBlock(b.CustomID) {
			continue
		}
		blocks = append(blocks, b)
	}
	return phrases, blocks
}

// register submits new items when the sink accepts writes and records them in
// the ledger. It reports whether anything was submitted.
func (t *PageTranslator) register(ctx context.Context, phrases []langsys.Phrase, blocks []langsys.ContentBlock) bool {
	if t.sink == nil || !t.sink.CanWrite(ctx) {
		t.logger.Debug("skipping registration, no write access",
			zap.Int("phrases", len(phrases)), zap.Int("blocks", len(blocks)))
		return false
	}

	if len(phrases) > 0 {
		t.bestEffort("registering phrases", func() error {
			return t.sink.RegisterPhrases(ctx, phrases)
		}, zap.Int("count", len(phrases)))
	}
	for _, b := range blocks {
		b := b
		t.bestEffort("registering content block", func() error {
			return t.sink.RegisterContentBlock(ctx, b)
		}, zap.String("category", b.Category), zap.String("custom_id", b.CustomID))
	}

	t.markRegistered(ctx, phrases, blocks)
	return true
}

// markRegistered records submitted items per category, whether or not the
// submission succeeded, so they are not sent again before a translation
// arrives.
func (t *PageTranslator) markRegistered(ctx context.Context, phrases []langsys.Phrase, blocks []langsys.ContentBlock) {
	if t.ledger == nil {
		return
	}

	type pending struct {
		phrases  []string
		blockIDs []string
	}
	var order []string
	byCategory := make(map[string]*pending)
	get := func(category string) *pending {
		p, ok := byCategory[category]
		if !ok {
			p = &pending{}
			byCategory[category] = p
			order = append(order, category)
		}
		return p
	}
	for _, p := range phrases {
		get(p.Category).phrases = append(get(p.Category).phrases, p.Text)
	}
	for _, b := range blocks {
		get(b.Category).blockIDs = append(get(b.Category).blockIDs, b.CustomID)
	}

	for _, category := range order {
		p := byCategory[category]
		if err := t.ledger.MarkRegistered(ctx, category, p.phrases, p.blockIDs); err != nil {
			t.logger.Warn("recording registered items failed",
				zap.String("category", category), zap.Error(err))
		}
	}
}

// bestEffort runs a registration call whose failure must not affect the
// current translation. The error is logged and discarded.
func (t *PageTranslator) bestEffort(op string, fn func() error, fields ...zap.Field) {
	if err := fn(); err != nil {
		t.logger.Warn(op+" failed", append(fields, zap.Error(err))...)
	}
}
