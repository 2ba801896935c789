package langsys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	// UncategorizedCategory is the category used wherever none is given.
	// It is part of the wire contract with the translation service.
	UncategorizedCategory = "__uncategorized__"

	// CategoryAttribute sets an explicit category on an element and its subtree.
	CategoryAttribute = "data-langsys-category"

	// ContentBlockAttribute marks an element as one opaque content block.
	ContentBlockAttribute = "data-langsys-contentblock"
)

// CategoryOr returns category, or fallback when category is empty, or
// UncategorizedCategory when both are empty.
func CategoryOr(category, fallback string) string {
	if category != "" {
		return category
	}
	if fallback != "" {
		return fallback
	}
	return UncategorizedCategory
}

// Phrase is an atomic translatable string.
type Phrase struct {
	Text     string `json:"phrase"`
	Category string `json:"category"`
}

// Key identifies the phrase within one translation pass.
func (p Phrase) Key() string {
	return p.Category + "::" + p.Text
}

// ContentBlock is an ordered bag of phrases extracted from one HTML fragment
// that are translated together.
type ContentBlock struct {
	CustomID string   `json:"custom_id"`
	Category string   `json:"category"`
	Phrases  []string `json:"phrases"`
	HTML     string   `json:"content"`
}

// Key identifies the block within one translation pass.
func (b ContentBlock) Key() string {
	return b.Category + "::" + b.CustomID
}

// EntryKind tells phrase leaves from content block leaves in a TranslationMap.
type EntryKind int

const (
	// EntryPhrase is a plain string translation.
	EntryPhrase EntryKind = iota
	// EntryBlock is a content block's map of phrase translations.
	EntryBlock
)

func (k EntryKind) String() string {
	switch k {
	case EntryPhrase:
		return "phrase"
	case EntryBlock:
		return "block"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// BlockTranslations maps each phrase of a content block to its translation.
type BlockTranslations map[string]string

// Lookup returns the translation of text, or text itself when it is missing or empty.
func (b BlockTranslations) Lookup(text string) string {
	return orOriginal(text, b[text])
}

// Entry is one leaf of a TranslationMap: either a phrase translation or a
// content block.
type Entry struct {
	Kind  EntryKind
	Text  string
	Block BlockTranslations
}

// PhraseEntry returns a phrase leaf.
func PhraseEntry(translated string) Entry {
	return Entry{Kind: EntryPhrase, Text: translated}
}

// BlockEntry returns a content block leaf.
func BlockEntry(block BlockTranslations) Entry {
	return Entry{Kind: EntryBlock, Block: block}
}

// MarshalJSON encodes phrases as strings and blocks as objects.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Kind == EntryBlock {
		if e.Block == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]string(e.Block))
	}
	return json.Marshal(e.Text)
}

// UnmarshalJSON accepts a string, null, or an object of strings.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*e = PhraseEntry("")
		return nil
	case data[0] == '{':
		raw := map[string]*string{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		block := make(BlockTranslations, len(raw))
		for k, v := range raw {
			if v != nil {
				block[k] = *v
			} else {
				block[k] = ""
			}
		}
		*e = BlockEntry(block)
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = PhraseEntry(s)
		return nil
	case data[0] == '[':
		// An empty category serialized as a list by the service.
		*e = BlockEntry(BlockTranslations{})
		return nil
	default:
		*e = PhraseEntry(string(data))
		return nil
	}
}

// Category holds the leaves of one category.
type Category map[string]Entry

// UnmarshalJSON tolerates an empty list in place of an empty object.
func (c *Category) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		*c = Category{}
		return nil
	}
	raw := map[string]Entry{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = raw
	return nil
}

// TranslationMap is the translation table of one locale, keyed by category.
type TranslationMap map[string]Category

// UnmarshalJSON tolerates an empty list in place of an empty object.
func (m *TranslationMap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '[' || bytes.Equal(data, []byte("null")) {
		*m = TranslationMap{}
		return nil
	}
	raw := map[string]Category{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// Lookup returns the phrase translation of text in category. The original text
// is returned when the entry is missing, is a content block, or is empty.
func (m TranslationMap) Lookup(category, text string) string {
	e, ok := m[category][text]
	if !ok || e.Kind != EntryPhrase {
		return text
	}
	return orOriginal(text, e.Text)
}

// Block returns the translations of a content block. The second result is false
// when the block is missing, is a phrase, or has no translations.
func (m TranslationMap) Block(category, customID string) (BlockTranslations, bool) {
	e, ok := m[category][customID]
	if !ok || e.Kind != EntryBlock || len(e.Block) == 0 {
		return nil, false
	}
	return e.Block, true
}

// HasPhrase reports whether text is known to the map as a phrase, translated or not.
func (m TranslationMap) HasPhrase(category, text string) bool {
	e, ok := m[category][text]
	return ok && e.Kind == EntryPhrase
}

// HasBlock reports whether customID is known to the map as a content block.
func (m TranslationMap) HasBlock(category, customID string) bool {
	e, ok := m[category][customID]
	return ok && e.Kind == EntryBlock
}

// SetPhrase stores a phrase translation.
func (m TranslationMap) SetPhrase(category, text, translated string) {
	m.category(category)[text] = PhraseEntry(translated)
}

// SetBlock stores a content block's translations.
func (m TranslationMap) SetBlock(category, customID string, block BlockTranslations) {
	m.category(category)[customID] = BlockEntry(block)
}

// Merge copies every leaf of other into m. Leaves of other win.
func (m TranslationMap) Merge(other TranslationMap) {
	for cat, entries := range other {
		dst := m.category(cat)
		for k, e := range entries {
			dst[k] = e
		}
	}
}

// Categories returns the category names in sorted order.
func (m TranslationMap) Categories() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m TranslationMap) category(name string) Category {
	c, ok := m[name]
	if !ok || c == nil {
		c = Category{}
		m[name] = c
	}
	return c
}

// orOriginal is the single fallback rule: a translation is used only when it is
// non-empty.
func orOriginal(original, translated string) string {
	if translated == "" {
		return original
	}
	return translated
}

// RegisteredItems lists what was already submitted for one category.
type RegisteredItems struct {
	Phrases       []string `json:"phrases"`
	ContentBlocks []string `json:"contentBlocks"`
}

// HasPhrase reports whether text was registered.
func (r RegisteredItems) HasPhrase(text string) bool {
	return contains(r.Phrases, text)
}

// HasBlock reports whether customID was registered.
func (r RegisteredItems) HasBlock(customID string) bool {
	return contains(r.ContentBlocks, customID)
}

// Add merges phrases and block ids into r without duplicates.
func (r *RegisteredItems) Add(phrases, blockIDs []string) {
	r.Phrases = appendUnique(r.Phrases, phrases...)
	r.ContentBlocks = appendUnique(r.ContentBlocks, blockIDs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	seen := make(map[string]bool, len(list)+len(items))
	for _, v := range list {
		seen[v] = true
	}
	for _, v := range items {
		if !seen[v] {
			seen[v] = true
			list = append(list, v)
		}
	}
	return list
}

// TranslationSource provides the translation map of a locale.
type TranslationSource interface {
	// Fetch returns the current translation map for locale.
	Fetch(ctx context.Context, locale string) (TranslationMap, error)

	// Invalidate drops any cached map for locale.
	Invalidate(ctx context.Context, locale string) error
}

// RegistrationSink receives newly discovered phrases and content blocks.
type RegistrationSink interface {
	CanWrite(ctx context.Context) bool
	RegisterPhrases(ctx context.Context, phrases []Phrase) error
	RegisterContentBlock(ctx context.Context, block ContentBlock) error
}

// RegisteredItemsLedger remembers what was registered so it is not submitted
// again before its translation arrives.
type RegisteredItemsLedger interface {
	Registered(ctx context.Context, category string) (RegisteredItems, error)
	MarkRegistered(ctx context.Context, category string, phrases, blockIDs []string) error
}
