package processor

import (
	"strings"

	"github.com/ZaguanLabs/langsys"
)

// Combinator joins two compound selectors.
type Combinator int

const (
	// Descendant matches any ancestor (written as whitespace).
	Descendant Combinator = iota
	// Child matches the direct parent (written as ">").
	Child
)

// AttrOp is an attribute selector operator.
type AttrOp string

// Attribute selector operators.
const (
	AttrExists   AttrOp = ""
	AttrEquals   AttrOp = "="
	AttrPrefix   AttrOp = "^="
	AttrSuffix   AttrOp = "$="
	AttrContains AttrOp = "*="
	AttrWord     AttrOp = "~="
	AttrDash     AttrOp = "|="
)

// AttributeSelector is one [name op "value"] predicate.
type AttributeSelector struct {
	Name  string
	Op    AttrOp
	Value string
}

// CompoundSelector is a run of simple selectors applying to one element.
type CompoundSelector struct {
	Tag        string
	ID         string
	Classes    []string
	Attributes []AttributeSelector
}

// ComplexSelector is a chain of compound selectors. Combinators[i] joins
// Compounds[i] and Compounds[i+1].
type ComplexSelector struct {
	Compounds   []CompoundSelector
	Combinators []Combinator
}

// SelectorGroup is a comma-separated list of alternatives.
type SelectorGroup []ComplexSelector

// String renders the canonical CSS form of the group.
func (g SelectorGroup) String() string {
	parts := make([]string, len(g))
	for i, c := range g {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// String renders the canonical CSS form of the chain.
func (c ComplexSelector) String() string {
	var b strings.Builder
	for i, compound := range c.Compounds {
		if i > 0 {
			if c.Combinators[i-1] == Child {
				b.WriteString(" > ")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString(compound.String())
	}
	return b.String()
}

// String renders the canonical CSS form of the compound.
func (c CompoundSelector) String() string {
	var b strings.Builder
	b.WriteString(c.Tag)
	if c.ID != "" {
		b.WriteString("#" + c.ID)
	}
	for _, class := range c.Classes {
		b.WriteString("." + class)
	}
	for _, a := range c.Attributes {
		b.WriteString("[" + a.Name)
		if a.Op != AttrExists {
			b.WriteString(string(a.Op) + quoteCSS(a.Value))
		}
		b.WriteString("]")
	}
	return b.String()
}

func quoteCSS(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

// ParseSelector parses the supported selector grammar: tag names, .class,
// #id, attribute selectors with = ^= $= *= ~= |=, the descendant and child
// combinators, and comma alternation.
func ParseSelector(selector string) (SelectorGroup, error) {
	p := &selectorParser{src: selector}
	return p.parseGroup()
}

type selectorParser struct {
	src string
	pos int
}

func (p *selectorParser) errorf(msg string) error {
	return &langsys.SelectorError{Selector: p.src, Offset: p.pos, Message: msg}
}

func (p *selectorParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *selectorParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *selectorParser) skipSpace() bool {
	start := p.pos
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
	return p.pos > start
}

func (p *selectorParser) parseGroup() (SelectorGroup, error) {
	var group SelectorGroup
	for {
		p.skipSpace()
		if p.eof() {
			if len(group) == 0 {
				return nil, p.errorf("empty selector")
			}
			return nil, p.errorf("expected selector after ','")
		}
		sel, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		group = append(group, sel)

		p.skipSpace()
		if p.eof() {
			return group, nil
		}
		if p.peek() != ',' {
			return nil, p.errorf("unexpected character " + quoteChar(p.peek()))
		}
		p.pos++
	}
}

func (p *selectorParser) parseComplex() (ComplexSelector, error) {
	var c ComplexSelector
	compound, err := p.parseCompound()
	if err != nil {
		return c, err
	}
	c.Compounds = append(c.Compounds, compound)

	for {
		hadSpace := p.skipSpace()
		if p.eof() || p.peek() == ',' {
			return c, nil
		}

		combinator := Descendant
		switch {
		case p.peek() == '>':
			combinator = Child
			p.pos++
			p.skipSpace()
			if p.eof() || p.peek() == ',' {
				return c, p.errorf("expected selector after '>'")
			}
		case !hadSpace:
			return c, p.errorf("unexpected character " + quoteChar(p.peek()))
		}

		compound, err := p.parseCompound()
		if err != nil {
			return c, err
		}
		c.Combinators = append(c.Combinators, combinator)
		c.Compounds = append(c.Compounds, compound)
	}
}

func (p *selectorParser) parseCompound() (CompoundSelector, error) {
	var c CompoundSelector
	start := p.pos

	if isNameStart(p.peek()) {
		c.Tag = strings.ToLower(p.readName())
	}

	for !p.eof() {
		switch ch := p.peek(); ch {
		case '.':
			p.pos++
			name, err := p.readIdent("class name")
			if err != nil {
				return c, err
			}
			c.Classes = append(c.Classes, name)
		case '#':
			p.pos++
			name, err := p.readIdent("id")
			if err != nil {
				return c, err
			}
			if c.ID != "" && c.ID != name {
				return c, p.errorf("conflicting ids in one compound selector")
			}
			c.ID = name
		case '[':
			attr, err := p.parseAttribute()
			if err != nil {
				return c, err
			}
			c.Attributes = append(c.Attributes, attr)
		default:
			if p.pos == start {
				if ch == '*' || ch == ':' || ch == '+' || ch == '~' {
					return c, p.errorf("unsupported selector syntax " + quoteChar(ch))
				}
				return c, p.errorf("unexpected character " + quoteChar(ch))
			}
			if isSpace(ch) || ch == ',' || ch == '>' {
				return c, nil
			}
			if ch == '*' || ch == ':' || ch == '+' || ch == '~' {
				return c, p.errorf("unsupported selector syntax " + quoteChar(ch))
			}
			return c, p.errorf("unexpected character " + quoteChar(ch))
		}
	}

	if p.pos == start {
		return c, p.errorf("expected selector")
	}
	return c, nil
}

func (p *selectorParser) parseAttribute() (AttributeSelector, error) {
	var a AttributeSelector
	p.pos++ // [
	p.skipSpace()

	name, err := p.readIdent("attribute name")
	if err != nil {
		return a, err
	}
	a.Name = strings.ToLower(name)
	p.skipSpace()

	if p.eof() {
		return a, p.errorf("unterminated attribute selector")
	}
	if p.peek() == ']' {
		p.pos++
		return a, nil
	}

	switch ch := p.peek(); ch {
	case '=':
		a.Op = AttrEquals
		p.pos++
	case '^', '$', '*', '~', '|':
		if p.pos+1 >= len(p.src) || p.src[p.pos+1] != '=' {
			return a, p.errorf("expected '=' after " + quoteChar(ch))
		}
		a.Op = AttrOp(string(ch) + "=")
		p.pos += 2
	default:
		return a, p.errorf("unexpected character " + quoteChar(ch) + " in attribute selector")
	}

	p.skipSpace()
	if p.eof() {
		return a, p.errorf("unterminated attribute selector")
	}
	switch p.peek() {
	case '"', '\'':
		value, err := p.readString()
		if err != nil {
			return a, err
		}
		a.Value = value
	default:
		value, err := p.readIdent("attribute value")
		if err != nil {
			return a, err
		}
		a.Value = value
	}

	p.skipSpace()
	if p.eof() || p.peek() != ']' {
		return a, p.errorf("unterminated attribute selector")
	}
	p.pos++
	return a, nil
}

// readName reads a tag name.
func (p *selectorParser) readName() string {
	start := p.pos
	for !p.eof() && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// readIdent reads a CSS identifier: an optional '-', a name start, then name characters.
func (p *selectorParser) readIdent(what string) (string, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	if !isNameStart(p.peek()) {
		p.pos = start
		if p.eof() {
			return "", p.errorf("expected " + what)
		}
		return "", p.errorf("invalid " + what + " starting with " + quoteChar(p.peek()))
	}
	for !p.eof() && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos], nil
}

func (p *selectorParser) readString() (string, error) {
	quote := p.peek()
	start := p.pos
	p.pos++
	var b strings.Builder
	for !p.eof() {
		ch := p.src[p.pos]
		switch {
		case ch == quote:
			p.pos++
			return b.String(), nil
		case ch == '\\' && p.pos+1 < len(p.src):
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
		default:
			b.WriteByte(ch)
			p.pos++
		}
	}
	p.pos = start
	return "", p.errorf("unterminated string")
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isNameStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || ch == '-' || (ch >= '0' && ch <= '9')
}

func quoteChar(ch byte) string {
	return "'" + string(rune(ch)) + "'"
}
