package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/langsys"
)

// translatableMetaNames are the meta name values whose content is copy.
var translatableMetaNames = map[string]bool{
	"description":         true,
	"keywords":            true,
	"author":              true,
	"twitter:title":       true,
	"twitter:description": true,
}

// translatableMetaProperties are the OpenGraph properties whose content is copy.
var translatableMetaProperties = map[string]bool{
	"og:title":       true,
	"og:description": true,
	"og:site_name":   true,
}

// HeadHandler extracts and translates document metadata.
type HeadHandler struct{}

// NewHeadHandler creates a HeadHandler.
func NewHeadHandler() *HeadHandler {
	return &HeadHandler{}
}

// ExtractPhrases returns the title text followed by the content of every
// translatable meta tag, in document order.
func (h *HeadHandler) ExtractPhrases(doc *goquery.Document) []string {
	var phrases []string
	if title := langsys.Normalize(doc.Find("title").First().Text()); title != "" {
		phrases = append(phrases, title)
	}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		if !isTranslatableMeta(s) {
			return
		}
		if content := langsys.Normalize(s.AttrOr("content", "")); content != "" {
			phrases = append(phrases, content)
		}
	})
	return phrases
}

// Process sets the document language and charset, then translates the title
// and meta content. og:locale is always rewritten from locale instead of
// being looked up.
func (h *HeadHandler) Process(doc *goquery.Document, locale string, translations langsys.TranslationMap, category string) {
	category = langsys.CategoryOr(category, "")

	doc.Find("html").First().SetAttr("lang", locale)
	h.ensureCharset(doc)

	if title := doc.Find("title").First(); title.Length() > 0 {
		if text := langsys.Normalize(title.Text()); text != "" {
			title.SetText(translations.Lookup(category, text))
		}
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		if strings.EqualFold(s.AttrOr("property", ""), "og:locale") {
			s.SetAttr("content", langsys.ToOpenGraphLocale(locale))
			return
		}
		if !isTranslatableMeta(s) {
			return
		}
		if content := langsys.Normalize(s.AttrOr("content", "")); content != "" {
			s.SetAttr("content", translations.Lookup(category, content))
		}
	})
}

func (h *HeadHandler) ensureCharset(doc *goquery.Document) {
	if charset := doc.Find("meta[charset]"); charset.Length() > 0 {
		charset.First().SetAttr("charset", "utf-8")
		return
	}

	contentType := doc.Find("meta[http-equiv]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(s.AttrOr("http-equiv", ""), "content-type")
	})
	if contentType.Length() > 0 {
		contentType.First().SetAttr("content", "text/html; charset=utf-8")
		return
	}

	doc.Find("head").First().PrependHtml(`<meta charset="utf-8">`)
}

func isTranslatableMeta(s *goquery.Selection) bool {
	if name, ok := s.Attr("name"); ok && translatableMetaNames[strings.ToLower(name)] {
		return true
	}
	if prop, ok := s.Attr("property"); ok && translatableMetaProperties[strings.ToLower(prop)] {
		return true
	}
	return false
}
