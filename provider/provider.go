// Package provider drafts translations with AI backends and fills the gaps
// of a translation map before the content reaches human translators.
package provider

import (
	"strings"

	"github.com/ZaguanLabs/langsys"
)

// AIProvider is the interface for AI translation backends.
type AIProvider = langsys.AIProvider

// TranslateRequest is an alias to the root package type.
type TranslateRequest = langsys.TranslateRequest

// localeHints disambiguate regional variants the display name alone leaves open.
var localeHints = map[string]string{
	"es-es": "Use Castilian Spanish as spoken in Spain (vosotros, European vocabulary).",
	"es-mx": "Use Mexican Spanish (ustedes, Latin American vocabulary).",
	"pt-br": "Use Brazilian Portuguese spelling and vocabulary.",
	"pt-pt": "Use European Portuguese spelling and vocabulary.",
	"fr-ca": "Use Canadian French vocabulary and conventions.",
	"en-gb": "Use British English spelling (colour, organise).",
	"zh-tw": "Use Traditional Chinese characters as used in Taiwan.",
	"zh-cn": "Use Simplified Chinese characters.",
	"nb":    "Use Norwegian Bokmål, not Nynorsk.",
	"nb-no": "Use Norwegian Bokmål, not Nynorsk.",
	"no":    "Use Norwegian Bokmål, not Nynorsk.",
	"sr":    "Use the Cyrillic script unless the source is Latin.",
}

// LocaleHint returns extra prompt guidance for a regional variant, or "".
func LocaleHint(locale string) string {
	return localeHints[langsys.NormalizeLocale(locale)]
}

func hasContexts(contexts []string) bool {
	for _, c := range contexts {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}
