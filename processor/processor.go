// Package processor extracts translatable content from HTML, classifies it
// into phrases and content blocks, and applies translations back in place.
package processor

// skipElements never contain translatable copy.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"math":     true,
}

// blockElements are the structural tags the page walk classifies.
var blockElements = map[string]bool{
	"div": true, "section": true, "article": true, "header": true, "footer": true,
	"nav": true, "aside": true, "main": true,
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "address": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"table": true, "tr": true, "th": true, "td": true, "thead": true, "tbody": true,
	"tfoot": true, "caption": true,
	"form": true, "fieldset": true, "legend": true,
	"figure": true, "figcaption": true, "details": true, "summary": true, "dialog": true,
}

// IsBlockElement reports whether tag is classified by the page walk.
func IsBlockElement(tag string) bool {
	return blockElements[tag]
}

// IsSkipElement reports whether tag's subtree is never translated.
func IsSkipElement(tag string) bool {
	return skipElements[tag]
}
