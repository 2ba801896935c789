package processor

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/langsys"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PageTranslator translates whole HTML documents and fragments against a
// TranslationSource, registering content the source does not know yet.
//
// A PageTranslator holds no per-call state and may be shared by concurrent
// callers; every call parses its own tree.
type PageTranslator struct {
	source langsys.TranslationSource
	sink   langsys.RegistrationSink
	ledger langsys.RegisteredItemsLedger
	parser *Parser
	head   *HeadHandler
	logger *zap.Logger
}

// PageOption configures a PageTranslator.
type PageOption func(*PageTranslator)

// WithParser sets the parser, and with it the translatable attribute whitelist.
func WithParser(p *Parser) PageOption {
	return func(t *PageTranslator) {
		t.parser = p
	}
}

// WithHeadHandler sets the metadata handler.
func WithHeadHandler(h *HeadHandler) PageOption {
	return func(t *PageTranslator) {
		t.head = h
	}
}

// WithLogger sets the logger used for degraded paths.
func WithLogger(l *zap.Logger) PageOption {
	return func(t *PageTranslator) {
		t.logger = l
	}
}

// NewPageTranslator creates a PageTranslator. sink and ledger may be nil, in
// which case nothing is registered or remembered.
func NewPageTranslator(source langsys.TranslationSource, sink langsys.RegistrationSink, ledger langsys.RegisteredItemsLedger, opts ...PageOption) *PageTranslator {
	t := &PageTranslator{
		source: source,
		sink:   sink,
		ledger: ledger,
		parser: NewParser(),
		head:   NewHeadHandler(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Parser returns the parser used for extraction.
func (t *PageTranslator) Parser() *Parser {
	return t.parser
}

// Translate localizes markup for locale.
//
// Only a malformed selector rule is reported as an error. A failed fetch
// returns markup unchanged, and registration failures never affect the output.
func (t *PageTranslator) Translate(ctx context.Context, markup, locale, defaultCategory string, rules SelectorRules) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return markup, nil
	}

	page, err := parsePage(markup)
	if err != nil {
		t.logger.Warn("parsing page failed", zap.Error(err))
		return markup, nil
	}

	matcher, err := NewSelectorMatcher(rules)
	if err != nil {
		return markup, err
	}

	translations, err := t.source.Fetch(ctx, locale)
	if err != nil {
		t.logger.Warn("fetching translations failed, serving original",
			zap.String("locale", locale), zap.Error(err))
		return markup, nil
	}

	items := t.collect(page, defaultCategory, matcher)
	if page.document {
		t.head.Process(page.doc, locale, translations, defaultCategory)
	}

	newPhrases, newBlocks := t.findNew(ctx, items, translations)
	if len(newPhrases) > 0 || len(newBlocks) > 0 {
		if t.register(ctx, newPhrases, newBlocks) {
			translations = t.refetch(ctx, locale, translations)
		}
	}

	t.apply(items, translations)

	out, err := page.render()
	if err != nil {
		t.logger.Warn("rendering page failed, serving original", zap.Error(err))
		return markup, nil
	}
	return out, nil
}

// Inspect classifies markup without fetching, registering or mutating
// anything.
func (t *PageTranslator) Inspect(markup, defaultCategory string, rules SelectorRules) (*PageItems, error) {
	matcher, err := NewSelectorMatcher(rules)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(markup) == "" {
		return &PageItems{}, nil
	}
	page, err := parsePage(markup)
	if err != nil {
		return &PageItems{}, nil
	}
	return t.collect(page, defaultCategory, matcher), nil
}

// refetch drops the cached map for locale and fetches it again, keeping
// current when the fetch fails.
func (t *PageTranslator) refetch(ctx context.Context, locale string, current langsys.TranslationMap) langsys.TranslationMap {
	if err := t.source.Invalidate(ctx, locale); err != nil {
		t.logger.Warn("invalidating translations failed", zap.String("locale", locale), zap.Error(err))
	}
	fresh, err := t.source.Fetch(ctx, locale)
	if err != nil {
		t.logger.Warn("refetching translations failed, using previous map",
			zap.String("locale", locale), zap.Error(err))
		return current
	}
	return fresh
}

// collect extracts head phrases and classifies the body.
func (t *PageTranslator) collect(page *parsedPage, defaultCategory string, matcher *SelectorMatcher) *PageItems {
	items := &PageItems{}
	if page.document {
		headCategory := langsys.CategoryOr(defaultCategory, "")
		for _, text := range t.head.ExtractPhrases(page.doc) {
			items.Head = append(items.Head, langsys.Phrase{Text: text, Category: headCategory})
		}
	}

	w := &walker{
		parser:          t.parser,
		matcher:         matcher,
		defaultCategory: defaultCategory,
		items:           items,
	}
	w.walk(page.body, "")
	return items
}

// walker classifies a body subtree into phrase and content block candidates.
type walker struct {
	parser          *Parser
	matcher         *SelectorMatcher
	defaultCategory string
	items           *PageItems
}

func (w *walker) walk(n *html.Node, inherited string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c) {
			continue
		}
		tag := tagName(c)
		if skipElements[tag] || isExcluded(c) {
			continue
		}

		effective := w.effectiveCategory(c, inherited)

		if langsys.IsTruthy(attrValue(c, langsys.ContentBlockAttribute)) {
			w.addBlock(c, effective, w.parser.ExtractPhrasesFromNode(c))
			continue
		}

		if !blockElements[tag] || containsBlock(c) {
			w.walk(c, effective)
			continue
		}

		phrases := w.parser.ExtractPhrasesFromNode(c)
		switch {
		case len(phrases) == 0:
		case len(phrases) == 1 && phrases[0] == textContent(c):
			w.addPhrase(c, effective, phrases[0])
		default:
			w.addBlock(c, effective, phrases)
		}
	}
}

// effectiveCategory resolves the category of n: an override selector, then
// the category attribute, then the inherited category, then a normal
// selector. An empty result means unresolved.
func (w *walker) effectiveCategory(n *html.Node, inherited string) string {
	match, matched := w.matcher.Match(n)
	if matched && match.Override {
		return match.Category
	}
	if explicit := attrValue(n, langsys.CategoryAttribute); explicit != "" {
		return explicit
	}
	if inherited != "" {
		return inherited
	}
	if matched {
		return match.Category
	}
	return ""
}

func (w *walker) addPhrase(n *html.Node, effective, text string) {
	w.items.candidates = append(w.items.candidates, candidate{
		node:   n,
		kind:   langsys.ItemPhrase,
		phrase: langsys.Phrase{Text: text, Category: langsys.CategoryOr(effective, w.defaultCategory)},
	})
}

func (w *walker) addBlock(n *html.Node, effective string, phrases []string) {
	if len(phrases) == 0 {
		return
	}
	category := langsys.CategoryOr(effective, w.defaultCategory)
	w.items.candidates = append(w.items.candidates, candidate{
		node: n,
		kind: langsys.ItemBlock,
		block: langsys.ContentBlock{
			CustomID: w.parser.GenerateCustomID(category, phrases),
			Category: category,
			Phrases:  phrases,
			HTML:     innerHTML(n),
		},
	})
}

// candidate is one classified body element. node points into the live tree.
type candidate struct {
	node   *html.Node
	kind   langsys.ItemKind
	phrase langsys.Phrase
	block  langsys.ContentBlock
}

// PageItems is the translatable inventory of a page.
type PageItems struct {
	// Head holds the title and meta phrases, in the default category.
	Head []langsys.Phrase

	candidates []candidate
}

// Phrases returns the body phrases in document order.
func (p *PageItems) Phrases() []langsys.Phrase {
	var out []langsys.Phrase
	for _, c := range p.candidates {
		if c.kind == langsys.ItemPhrase {
			out = append(out, c.phrase)
		}
	}
	return out
}

// Blocks returns the body content blocks in document order.
func (p *PageItems) Blocks() []langsys.ContentBlock {
	var out []langsys.ContentBlock
	for _, c := range p.candidates {
		if c.kind == langsys.ItemBlock {
			out = append(out, c.block)
		}
	}
	return out
}

// AllPhrases returns the head phrases followed by the body phrases.
func (p *PageItems) AllPhrases() []langsys.Phrase {
	return append(append([]langsys.Phrase(nil), p.Head...), p.Phrases()...)
}

// Items flattens the inventory in page order for diffing.
func (p *PageItems) Items() []langsys.Item {
	items := make([]langsys.Item, 0, len(p.Head)+len(p.candidates))
	for _, ph := range p.Head {
		items = append(items, phraseItem(ph, len(items)))
	}
	for _, c := range p.candidates {
		if c.kind == langsys.ItemPhrase {
			item := phraseItem(c.phrase, len(items))
			item.Context = elementContext(c.node)
			items = append(items, item)
			continue
		}
		items = append(items, langsys.Item{
			Kind:     langsys.ItemBlock,
			Category: c.block.Category,
			Key:      c.block.CustomID,
			Phrases:  c.block.Phrases,
			Position: len(items),
			Context:  elementContext(c.node),
		})
	}
	return items
}

// Len returns the number of items on the page.
func (p *PageItems) Len() int {
	return len(p.Head) + len(p.candidates)
}

func phraseItem(ph langsys.Phrase, pos int) langsys.Item {
	return langsys.Item{
		Kind:     langsys.ItemPhrase,
		Category: ph.Category,
		Key:      ph.Text,
		Phrases:  []string{ph.Text},
		Position: pos,
	}
}

// parsedPage is one parsed input. Fragments are parsed in a <body> context
// and rendered back without the document wrapper.
type parsedPage struct {
	doc      *goquery.Document
	body     *html.Node
	document bool
}

var documentMarkup = regexp.MustCompile(`(?i)<(!doctype|html|head|body)[\s>/]`)

func parsePage(markup string) (*parsedPage, error) {
	if documentMarkup.MatchString(markup) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			return nil, err
		}
		root := doc.Nodes[0]
		body := findElement(root, atom.Body)
		if body == nil {
			body = root
		}
		return &parsedPage{doc: doc, body: body, document: true}, nil
	}

	bodyContext := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), bodyContext)
	if err != nil {
		return nil, err
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return &parsedPage{doc: goquery.NewDocumentFromNode(body), body: body}, nil
}

func (p *parsedPage) render() (string, error) {
	if !p.document {
		return innerHTML(p.body), nil
	}
	return p.doc.Html()
}
