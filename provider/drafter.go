package provider

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/ZaguanLabs/langsys"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of texts sent per provider call.
	DefaultBatchSize = 40
	// DefaultConcurrency bounds the provider calls in flight.
	DefaultConcurrency = 3
)

// Drafter fills the untranslated entries of a translation map with AI drafts.
// Drafts are plain text: any markup a model returns is stripped.
type Drafter struct {
	provider    AIProvider
	batchSize   int
	concurrency int
	sourceLang  string
	context     string
	glossary    map[string]string
	style       langsys.TranslationStyle
	excluded    []string
	policy      *bluemonday.Policy
	logger      *zap.Logger
}

// DrafterOption configures a Drafter.
type DrafterOption func(*Drafter)

// WithBatchSize sets how many texts go into one provider call.
func WithBatchSize(n int) DrafterOption {
	return func(d *Drafter) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of provider calls in flight.
func WithConcurrency(n int) DrafterOption {
	return func(d *Drafter) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithSourceLang sets the language the page is written in.
func WithSourceLang(lang string) DrafterOption {
	return func(d *Drafter) {
		d.sourceLang = lang
	}
}

// WithContext describes the site to the provider, e.g. "an online shoe store".
func WithContext(ctx string) DrafterOption {
	return func(d *Drafter) {
		d.context = ctx
	}
}

// WithGlossary sets preferred translations for recurring terms.
func WithGlossary(glossary map[string]string) DrafterOption {
	return func(d *Drafter) {
		d.glossary = glossary
	}
}

// WithStyle sets the register of the drafts.
func WithStyle(style langsys.TranslationStyle) DrafterOption {
	return func(d *Drafter) {
		d.style = style
	}
}

// WithExcludedTerms sets terms that must stay untranslated.
func WithExcludedTerms(terms []string) DrafterOption {
	return func(d *Drafter) {
		d.excluded = terms
	}
}

// WithPolicy replaces the sanitizing policy applied to every draft.
func WithPolicy(p *bluemonday.Policy) DrafterOption {
	return func(d *Drafter) {
		d.policy = p
	}
}

// WithDrafterLogger sets the logger.
func WithDrafterLogger(l *zap.Logger) DrafterOption {
	return func(d *Drafter) {
		d.logger = l
	}
}

// NewDrafter creates a Drafter backed by provider.
func NewDrafter(provider AIProvider, opts ...DrafterOption) *Drafter {
	d := &Drafter{
		provider:    provider,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		sourceLang:  "en",
		policy:      bluemonday.StrictPolicy(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// draftText is one text to draft, tied back to the entry it fills.
type draftText struct {
	category string
	key      string // Phrase text, or the block's custom id
	text     string
	block    bool
	hint     string
}

// Draft returns a copy of existing in which every page item without a
// translation carries an AI draft. Entries that already hold a translation are
// never replaced. A provider failure aborts the whole draft.
func (d *Drafter) Draft(ctx context.Context, items []langsys.Item, existing langsys.TranslationMap, locale string) (langsys.TranslationMap, error) {
	result := cloneMap(existing)
	pending := d.missing(items, result)
	if len(pending) == 0 {
		return result, nil
	}

	drafts := make([]string, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for start := 0; start < len(pending); start += d.batchSize {
		end := min(start+d.batchSize, len(pending))
		g.Go(func() error {
			return d.draftBatch(gctx, pending[start:end], drafts[start:end], locale)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	filled := 0
	for i, t := range pending {
		text := d.sanitize(drafts[i])
		if text == "" {
			continue
		}
		filled++
		if !t.block {
			result.SetPhrase(t.category, t.key, text)
			continue
		}
		block, _ := result.Block(t.category, t.key)
		if block == nil {
			block = langsys.BlockTranslations{}
			result.SetBlock(t.category, t.key, block)
		}
		block[t.text] = text
	}

	d.logger.Info("drafted translations",
		zap.String("locale", locale),
		zap.Int("requested", len(pending)),
		zap.Int("filled", filled))
	return result, nil
}

func (d *Drafter) draftBatch(ctx context.Context, batch []draftText, out []string, locale string) error {
	texts := make([]string, len(batch))
	hints := make([]string, len(batch))
	for i, t := range batch {
		texts[i] = t.text
		hints[i] = t.hint
	}

	results, err := d.provider.Translate(ctx, TranslateRequest{
		Texts:         texts,
		TargetLang:    locale,
		SourceLang:    d.sourceLang,
		ExcludedTerms: d.excluded,
		Context:       d.context,
		TextContexts:  hints,
		Glossary:      d.glossary,
		Style:         d.style,
	})
	if err != nil {
		return fmt.Errorf("drafting %d texts for %s: %w", len(texts), locale, err)
	}
	if len(results) != len(texts) {
		return &langsys.CountMismatchError{Expected: len(texts), Got: len(results)}
	}
	copy(out, results)
	return nil
}

// missing lists the texts of items that have no usable translation in m.
// Duplicates within a category are drafted once.
func (d *Drafter) missing(items []langsys.Item, m langsys.TranslationMap) []draftText {
	var out []draftText
	seen := make(map[string]bool)
	add := func(t draftText) {
		id := fmt.Sprintf("%t\x00%s\x00%s\x00%s", t.block, t.category, t.key, t.text)
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, t)
	}

	for _, item := range items {
		category := langsys.CategoryOr(item.Category, "")
		hint := categoryHint(category, item.Context)
		switch item.Kind {
		case langsys.ItemPhrase:
			if e, ok := m[category][item.Key]; ok && (e.Kind == langsys.EntryBlock || e.Text != "") {
				continue
			}
			add(draftText{category: category, key: item.Key, text: item.Key, hint: hint})
		case langsys.ItemBlock:
			if m.HasPhrase(category, item.Key) {
				continue
			}
			block, _ := m.Block(category, item.Key)
			for _, phrase := range item.Phrases {
				if block[phrase] != "" {
					continue
				}
				add(draftText{category: category, key: item.Key, text: phrase, block: true, hint: hint})
			}
		}
	}
	return out
}

func (d *Drafter) sanitize(draft string) string {
	clean := html.UnescapeString(d.policy.Sanitize(draft))
	return strings.TrimSpace(clean)
}

func categoryHint(category, where string) string {
	var parts []string
	if category != langsys.UncategorizedCategory {
		parts = append(parts, "category: "+category)
	}
	if where != "" {
		parts = append(parts, where)
	}
	return strings.Join(parts, "; ")
}

func cloneMap(m langsys.TranslationMap) langsys.TranslationMap {
	out := make(langsys.TranslationMap, len(m))
	for cat, entries := range m {
		for key, e := range entries {
			if e.Kind == langsys.EntryBlock {
				block := make(langsys.BlockTranslations, len(e.Block))
				for k, v := range e.Block {
					block[k] = v
				}
				out.SetBlock(cat, key, block)
				continue
			}
			out.SetPhrase(cat, key, e.Text)
		}
	}
	return out
}
