package processor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/langsys"
	"golang.org/x/net/html"
)

// defaultTranslatableAttributes are the attributes whose values are user-visible copy.
var defaultTranslatableAttributes = []string{
	// Standard HTML
	"placeholder",
	"alt",
	"title",
	"label",

	// ARIA
	"aria-label",
	"aria-placeholder",
	"aria-description",
	"aria-valuetext",
	"aria-roledescription",

	// Form validation messages
	"data-error",
	"data-error-message",
	"data-validation-message",
	"data-invalid-message",
	"data-required-message",
	"data-pattern-message",

	// Framework conventions
	"data-confirm",
	"data-tooltip",
	"data-title",
	"data-content",
	"data-original-title",
	"data-bs-title",
	"data-bs-content",
	"data-loading-text",
	"data-success-message",
	"data-warning-message",
	"data-empty-message",
	"data-placeholder",
}

// DefaultTranslatableAttributes returns a copy of the built-in attribute whitelist.
func DefaultTranslatableAttributes() []string {
	return append([]string(nil), defaultTranslatableAttributes...)
}

// Parser extracts translatable strings from HTML.
//
// Each Parser owns its attribute whitelist; changing it never affects other
// parsers. A Parser must not be reconfigured while it is extracting.
type Parser struct {
	attributes []string
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithTranslatableAttributes replaces the default attribute whitelist.
func WithTranslatableAttributes(attrs ...string) ParserOption {
	return func(p *Parser) {
		p.SetTranslatableAttributes(attrs)
	}
}

// NewParser creates a parser using the default attribute whitelist.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{attributes: DefaultTranslatableAttributes()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TranslatableAttributes returns the current whitelist in declaration order.
func (p *Parser) TranslatableAttributes() []string {
	return append([]string(nil), p.attributes...)
}

// SetTranslatableAttributes replaces the whitelist.
func (p *Parser) SetTranslatableAttributes(attrs []string) {
	p.attributes = nil
	p.AddTranslatableAttributes(attrs)
}

// AddTranslatableAttributes appends attributes not already in the whitelist.
func (p *Parser) AddTranslatableAttributes(attrs []string) {
	seen := make(map[string]bool, len(p.attributes))
	for _, a := range p.attributes {
		seen[a] = true
	}
	for _, a := range attrs {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		p.attributes = append(p.attributes, a)
	}
}

// ResetTranslatableAttributes restores the default whitelist.
func (p *Parser) ResetTranslatableAttributes() {
	p.attributes = DefaultTranslatableAttributes()
}

// ExtractPhrases returns the translatable strings of an HTML fragment in
// document order, duplicates included. Malformed markup is recovered, never
// rejected.
func (p *Parser) ExtractPhrases(markup string) []string {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	root, err := parseFragment(markup)
	if err != nil {
		return nil
	}
	return p.ExtractPhrasesFromNode(root)
}

// ExtractPhrasesFromNode extracts from the children of a live node, as if its
// inner HTML had been passed to ExtractPhrases.
func (p *Parser) ExtractPhrasesFromNode(n *html.Node) []string {
	var phrases []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.collect(c, &phrases)
	}
	return phrases
}

// GenerateCustomID returns the content block identifier of category and phrases.
func (p *Parser) GenerateCustomID(category string, phrases []string) string {
	return langsys.GenerateCustomID(category, phrases)
}

func (p *Parser) collect(n *html.Node, phrases *[]string) {
	switch n.Type {
	case html.TextNode:
		if text := langsys.Normalize(n.Data); text != "" {
			*phrases = append(*phrases, text)
		}
		return
	case html.ElementNode:
		if skipElements[tagName(n)] || isExcluded(n) {
			return
		}
		*phrases = append(*phrases, p.attributePhrases(n)...)
	default:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.collect(c, phrases)
	}
}

// attributePhrases returns the whitelisted attribute values of an element in
// whitelist order, followed by its button value.
func (p *Parser) attributePhrases(n *html.Node) []string {
	var out []string
	for _, key := range p.attributes {
		if v, ok := getAttr(n, key); ok {
			if text := langsys.Normalize(v); text != "" {
				out = append(out, text)
			}
		}
	}
	if hasTranslatableValue(n) {
		if text := langsys.Normalize(attrValue(n, "value")); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// hasTranslatableValue reports whether the value attribute of n is a visible
// label: buttons, and inputs of type submit or button. Text inputs hold user
// data and are never extracted.
func hasTranslatableValue(n *html.Node) bool {
	if _, ok := getAttr(n, "value"); !ok {
		return false
	}
	switch tagName(n) {
	case "button":
		return true
	case "input":
		t := strings.ToLower(attrValue(n, "type"))
		return t == "submit" || t == "button"
	default:
		return false
	}
}

var absoluteURL = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]*:|//)`)

// ResolveRelativeURLs rewrites relative src, srcset and poster attributes of a
// fragment against baseURL. URLs with a scheme, protocol-relative URLs and
// data URIs are kept. The input is returned as is when baseURL is empty.
func (p *Parser) ResolveRelativeURLs(markup, baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.TrimSpace(markup) == "" || baseURL == "" {
		return markup
	}

	root, err := parseFragment(markup)
	if err != nil {
		return markup
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find("[src], [srcset], [poster]").Each(func(_ int, s *goquery.Selection) {
		for _, key := range []string{"src", "poster"} {
			if v, ok := s.Attr(key); ok {
				s.SetAttr(key, resolveURL(v, baseURL))
			}
		}
		if v, ok := s.Attr("srcset"); ok {
			s.SetAttr("srcset", resolveSrcset(v, baseURL))
		}
	})

	return innerHTML(root)
}

func resolveURL(u, baseURL string) string {
	trimmed := strings.TrimSpace(u)
	if trimmed == "" || absoluteURL.MatchString(trimmed) {
		return u
	}
	if strings.HasPrefix(trimmed, "/") {
		return baseURL + trimmed
	}
	return baseURL + "/" + trimmed
}

// resolveSrcset resolves each image candidate URL in srcset. A URL runs to
// the next whitespace, so commas inside it (as in data: URIs) are kept;
// descriptors run to the next comma outside parentheses.
func resolveSrcset(srcset, baseURL string) string {
	var resolved []string
	rest := srcset
	for {
		rest = strings.TrimLeft(rest, ", \t\n\r\f")
		if rest == "" {
			break
		}

		end := strings.IndexAny(rest, " \t\n\r\f")
		if end < 0 {
			end = len(rest)
		}
		rawURL := rest[:end]
		rest = rest[end:]

		var descriptor string
		if trimmed := strings.TrimRight(rawURL, ","); trimmed != rawURL {
			rawURL = trimmed
		} else {
			descriptor, rest = cutDescriptor(rest)
		}

		candidate := resolveURL(rawURL, baseURL)
		if descriptor != "" {
			candidate += " " + descriptor
		}
		resolved = append(resolved, candidate)
	}
	return strings.Join(resolved, ", ")
}

// cutDescriptor splits s at the first comma outside parentheses and returns
// the normalized descriptor before it and the remainder after it.
func cutDescriptor(s string) (string, string) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				return strings.Join(strings.Fields(s[:i]), " "), s[i+1:]
			}
		}
	}
	return strings.Join(strings.Fields(s), " "), ""
}
