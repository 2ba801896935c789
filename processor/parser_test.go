package processor

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ZaguanLabs/langsys"
)

func TestParser_ExtractPhrases(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "order and duplicates preserved",
			html: "<ul><li>Item</li><li>Item</li><li>Item</li></ul>",
			want: []string{"Item", "Item", "Item"},
		},
		{
			name: "translate no skips the whole subtree",
			html: `<div translate="no"><h1>Skip</h1><p>Skip2</p></div><p>Keep</p>`,
			want: []string{"Keep"},
		},
		{
			name: "whitespace normalized",
			html: "<p>   Multiple   spaces   here   </p>",
			want: []string{"Multiple spaces here"},
		},
		{
			name: "newlines and tabs collapse",
			html: "<p>Line\n\tone\n  two</p>",
			want: []string{"Line one two"},
		},
		{
			name: "truthy data-notrans skips",
			html: `<p data-notrans="1">Skip</p><p data-notrans="yes">Skip</p><p>Keep</p>`,
			want: []string{"Keep"},
		},
		{
			name: "falsy data-notrans is ignored",
			html: `<p data-notrans="false">A</p><p data-notrans="0">B</p><p data-notrans="">C</p>`,
			want: []string{"A", "B", "C"},
		},
		{
			name: "attributes follow the whitelist order",
			html: `<img title="T" alt="A"><input placeholder="Search" aria-label="Search box">`,
			want: []string{"A", "T", "Search", "Search box"},
		},
		{
			name: "attributes precede element text",
			html: `<a title="Tip">Link</a>`,
			want: []string{"Tip", "Link"},
		},
		{
			name: "button and submit values",
			html: `<button value="Go">Go now</button><input type="submit" value="Send"><input type="BUTTON" value="Press">`,
			want: []string{"Go", "Go now", "Send", "Press"},
		},
		{
			name: "text input values are user data",
			html: `<input type="text" value="john@example.com"><input value="secret">`,
			want: nil,
		},
		{
			name: "option text",
			html: `<select><option>Red</option><option>Blue</option></select>`,
			want: []string{"Red", "Blue"},
		},
		{
			name: "script and style are skipped",
			html: `<script>var x = "no";</script><style>p{}</style><p>Yes</p>`,
			want: []string{"Yes"},
		},
		{
			name: "empty attribute values are dropped",
			html: `<img alt="  " title="">`,
			want: nil,
		},
		{
			name: "malformed markup is recovered",
			html: `<div><p>Open<span>Nested</div><p>Unclosed`,
			want: []string{"Open", "Nested", "Unclosed"},
		},
		{
			name: "fragment without a single root",
			html: `Hello <b>World</b>`,
			want: []string{"Hello", "World"},
		},
		{
			name: "entities decoded",
			html: `<p>Fish &amp; Chips</p>`,
			want: []string{"Fish & Chips"},
		},
		{
			name: "empty input",
			html: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ExtractPhrases(tt.html); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractPhrases = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParser_TranslatableAttributes(t *testing.T) {
	p := NewParser()
	defaults := p.TranslatableAttributes()
	if len(defaults) != 28 {
		t.Fatalf("expected 28 default attributes, got %d", len(defaults))
	}
	if defaults[0] != "placeholder" {
		t.Errorf("first default = %q, want placeholder", defaults[0])
	}

	p.SetTranslatableAttributes([]string{"data-label", "ALT", "alt"})
	if got, want := p.TranslatableAttributes(), []string{"data-label", "alt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after Set = %q, want %q", got, want)
	}
	if got := p.ExtractPhrases(`<span data-label="Custom" title="Ignored"></span>`); !reflect.DeepEqual(got, []string{"Custom"}) {
		t.Errorf("custom whitelist extracted %q", got)
	}

	p.AddTranslatableAttributes([]string{"title", "data-label"})
	if got, want := p.TranslatableAttributes(), []string{"data-label", "alt", "title"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after Add = %q, want %q", got, want)
	}

	p.ResetTranslatableAttributes()
	if got := p.TranslatableAttributes(); !reflect.DeepEqual(got, defaults) {
		t.Errorf("after Reset = %q, want defaults", got)
	}
}

func TestParser_WhitelistIsPerInstance(t *testing.T) {
	a := NewParser(WithTranslatableAttributes("data-only"))
	b := NewParser()

	a.AddTranslatableAttributes([]string{"alt"})
	if got, want := a.TranslatableAttributes(), []string{"data-only", "alt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("a = %q, want %q", got, want)
	}
	if got := b.TranslatableAttributes(); !reflect.DeepEqual(got, DefaultTranslatableAttributes()) {
		t.Errorf("b should keep the defaults, got %q", got)
	}

	returned := b.TranslatableAttributes()
	returned[0] = "mutated"
	if got := b.TranslatableAttributes()[0]; got != "placeholder" {
		t.Errorf("returned slice aliases the parser's whitelist: %q", got)
	}
}

func TestParser_GenerateCustomID(t *testing.T) {
	p := NewParser()
	id := p.GenerateCustomID("nav", []string{"Home", "About"})

	if id != "aa52fb7a75961b07cbebad01e461fc67" {
		t.Errorf("id = %q", id)
	}
	if again := p.GenerateCustomID("nav", []string{"Home", "About"}); again != id {
		t.Errorf("id is not stable: %q vs %q", again, id)
	}
	for name, other := range map[string]string{
		"phrase order": p.GenerateCustomID("nav", []string{"About", "Home"}),
		"category":     p.GenerateCustomID("footer", []string{"Home", "About"}),
		"phrase text":  p.GenerateCustomID("nav", []string{"Home", "About us"}),
	} {
		if other == id {
			t.Errorf("changing the %s should change the id", name)
		}
	}
	if root := langsys.GenerateCustomID("nav", []string{"Home", "About"}); root != id {
		t.Errorf("parser id %q differs from langsys.GenerateCustomID %q", id, root)
	}
}

func TestParser_ResolveRelativeURLs(t *testing.T) {
	p := NewParser()
	base := "https://example.com/"

	tests := []struct {
		name string
		html string
		want string
	}{
		{"absolute path", `<img src="/a.png">`, `src="https://example.com/a.png"`},
		{"relative path", `<img src="img/b.png">`, `src="https://example.com/img/b.png"`},
		{"scheme kept", `<img src="http://cdn.test/c.png">`, `src="http://cdn.test/c.png"`},
		{"protocol relative kept", `<img src="//cdn.test/d.png">`, `src="//cdn.test/d.png"`},
		{"data uri kept", `<img src="data:image/png;base64,AAAA">`, `src="data:image/png;base64,AAAA"`},
		{"poster", `<video poster="p.jpg"></video>`, `poster="https://example.com/p.jpg"`},
		{
			"srcset descriptors kept",
			`<img srcset="s.png 1x, /t.png 2x,https://x.test/u.png 480w">`,
			`srcset="https://example.com/s.png 1x, https://example.com/t.png 2x, https://x.test/u.png 480w"`,
		},
		{
			"srcset data uri kept whole",
			`<img srcset="a.png 1x, data:image/png;base64,AA 3x">`,
			`srcset="https://example.com/a.png 1x, data:image/png;base64,AA 3x"`,
		},
		{
			"srcset candidate without descriptor",
			`<img srcset="a.png, b.png 2x">`,
			`srcset="https://example.com/a.png, https://example.com/b.png 2x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if out := p.ResolveRelativeURLs(tt.html, base); !strings.Contains(out, tt.want) {
				t.Errorf("ResolveRelativeURLs = %s, want it to contain %s", out, tt.want)
			}
		})
	}
}

func TestParser_ResolveRelativeURLs_EmptyBase(t *testing.T) {
	p := NewParser()
	in := `<img src="a.png">`
	if out := p.ResolveRelativeURLs(in, ""); out != in {
		t.Errorf("empty base should leave input unchanged, got %s", out)
	}
}

func TestParser_ResolveRelativeURLs_KeepsText(t *testing.T) {
	p := NewParser()
	out := p.ResolveRelativeURLs(`<p>Hello <img src="x.png"> world</p>`, "https://example.com")
	if !strings.HasPrefix(out, "<p>Hello ") || !strings.Contains(out, " world</p>") {
		t.Errorf("surrounding text lost: %s", out)
	}
	if !strings.Contains(out, "https://example.com/x.png") {
		t.Errorf("src not resolved: %s", out)
	}
}

func TestParser_ApplyBlockTranslations(t *testing.T) {
	p := NewParser()
	out := p.ApplyBlockTranslations(
		`<strong>Hello</strong> World <img alt="Logo"><button value="Go">Go</button>`,
		langsys.BlockTranslations{"Hello": "Hola", "World": "Mundo", "Logo": "", "Go": "Ir"},
	)
	want := `<strong>Hola</strong> Mundo <img alt="Logo"/><button value="Ir">Ir</button>`
	if out != want {
		t.Errorf("ApplyBlockTranslations =\n%s\nwant\n%s", out, want)
	}
}
