package processor

import (
	"github.com/ZaguanLabs/langsys"
	"golang.org/x/net/html"
)

// apply writes translations into the live tree. Phrase and block candidates
// own disjoint subtrees, so the order of application does not matter.
func (t *PageTranslator) apply(items *PageItems, translations langsys.TranslationMap) {
	for _, c := range items.candidates {
		switch c.kind {
		case langsys.ItemPhrase:
			translated := translations.Lookup(c.phrase.Category, c.phrase.Text)
			if translated != c.phrase.Text {
				replaceText(c.node, c.phrase.Text, translated)
			}
		case langsys.ItemBlock:
			if block, ok := translations.Block(c.block.Category, c.block.CustomID); ok {
				t.parser.applyBlock(c.node, block)
			}
		}
	}
}

// replaceText swaps the text node of el whose normalized content is original,
// keeping its surrounding whitespace. When no single text node carries the
// phrase the element's content is replaced.
func replaceText(el *html.Node, original, translated string) {
	if n := findText(el, original); n != nil {
		n.Data = preserveWhitespace(n.Data, translated)
		return
	}
	setTextContent(el, translated)
}

func findText(n *html.Node, normalized string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if langsys.Normalize(c.Data) == normalized {
				return c
			}
		case html.ElementNode:
			if skipElements[tagName(c)] {
				continue
			}
			if found := findText(c, normalized); found != nil {
				return found
			}
		}
	}
	return nil
}

// applyBlock translates the text nodes, whitelisted attributes and button
// values below n using a content block's translations.
func (p *Parser) applyBlock(n *html.Node, block langsys.BlockTranslations) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text := langsys.Normalize(c.Data)
			if text == "" {
				continue
			}
			if translated := block.Lookup(text); translated != text {
				c.Data = preserveWhitespace(c.Data, translated)
			}
		case html.ElementNode:
			if skipElements[tagName(c)] || isExcluded(c) {
				continue
			}
			p.applyAttributes(c, block)
			p.applyBlock(c, block)
		}
	}
}

func (p *Parser) applyAttributes(n *html.Node, block langsys.BlockTranslations) {
	for _, key := range p.attributes {
		translateAttr(n, key, block)
	}
	if hasTranslatableValue(n) {
		translateAttr(n, "value", block)
	}
}

func translateAttr(n *html.Node, key string, block langsys.BlockTranslations) {
	v, ok := getAttr(n, key)
	if !ok {
		return
	}
	text := langsys.Normalize(v)
	if text == "" {
		return
	}
	if translated := block.Lookup(text); translated != text {
		setAttr(n, key, translated)
	}
}

// ApplyBlockTranslations translates an HTML fragment with the translations of
// the content block extracted from it and returns the re-serialized fragment.
func (p *Parser) ApplyBlockTranslations(markup string, block langsys.BlockTranslations) string {
	if len(block) == 0 {
		return markup
	}
	root, err := parseFragment(markup)
	if err != nil {
		return markup
	}
	p.applyBlock(root, block)
	return innerHTML(root)
}
