package processor

import (
	"bytes"
	"strings"

	"github.com/ZaguanLabs/langsys"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func isElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

func tagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	v, _ := getAttr(n, key)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// isExcluded reports whether an element opts out of translation with
// translate="no" or a truthy data-notrans.
func isExcluded(n *html.Node) bool {
	if strings.EqualFold(attrValue(n, "translate"), "no") {
		return true
	}
	return langsys.IsTruthy(attrValue(n, "data-notrans"))
}

// textContent returns the normalized text of n's subtree. Text inside skip
// elements is left out.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if skipElements[tagName(c)] {
				return
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return langsys.Normalize(b.String())
}

// innerHTML renders n's children.
func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// setTextContent replaces all children of n with a single text node.
func setTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// containsBlock reports whether any element below n is a block element.
func containsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isElement(c) {
			continue
		}
		if blockElements[tagName(c)] || containsBlock(c) {
			return true
		}
	}
	return false
}

// findElement returns the first element with tag a in document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if isElement(n) && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// fragmentContext is the synthetic container fragments are parsed in.
func fragmentContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

// parseFragment parses markup as the children of a synthetic <div>. The
// tree builder recovers from malformed input, so only reader errors surface.
func parseFragment(markup string) (*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext())
	if err != nil {
		return nil, err
	}
	root := fragmentContext()
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// preserveWhitespace keeps the original node's leading and trailing whitespace
// around translated.
func preserveWhitespace(original, translated string) string {
	leadingLen := len(original) - len(strings.TrimLeft(original, " \t\n\r\f"))
	leading := original[:leadingLen]

	trailingLen := len(original) - len(strings.TrimRight(original, " \t\n\r\f"))
	trailing := ""
	if trailingLen > 0 && trailingLen < len(original) {
		trailing = original[len(original)-trailingLen:]
	}

	return leading + translated + trailing
}

// elementContext describes where n sits in the page, for translators working
// without the page at hand: its tag with class or id, then up to three
// ancestors outermost first.
func elementContext(n *html.Node) string {
	var parts []string
	parts = append(parts, "in "+describeElement(n))

	var ancestors []string
	for a := n.Parent; a != nil && len(ancestors) < 3; a = a.Parent {
		if !isElement(a) {
			continue
		}
		if name := tagName(a); name != "html" && name != "body" {
			ancestors = append(ancestors, name)
		}
	}
	if len(ancestors) > 0 {
		for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
			ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
		}
		parts = append(parts, "inside: "+strings.Join(ancestors, " > "))
	}
	return strings.Join(parts, " | ")
}

func describeElement(n *html.Node) string {
	tag := tagName(n)
	if class := attrValue(n, "class"); class != "" {
		return "<" + tag + ` class="` + class + `">`
	}
	if id := attrValue(n, "id"); id != "" {
		return "<" + tag + ` id="` + id + `">`
	}
	return "<" + tag + ">"
}
