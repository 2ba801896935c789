package langsys

import "context"

// TranslationStyle controls the tone and formality of AI drafted translations.
type TranslationStyle string

const (
	// StyleFormal uses formal, professional language suitable for official documents.
	StyleFormal TranslationStyle = "formal"
	// StyleNeutral uses a neutral, professional tone suitable for general content.
	StyleNeutral TranslationStyle = "neutral"
	// StyleCasual uses casual, conversational language suitable for blogs/social media.
	StyleCasual TranslationStyle = "casual"
	// StyleMarketing uses persuasive, engaging language for promotional content.
	StyleMarketing TranslationStyle = "marketing"
	// StyleTechnical uses precise, technical language for documentation.
	StyleTechnical TranslationStyle = "technical"
)

// StyleDescription returns the prompt wording for style. Unknown styles are neutral.
func StyleDescription(style TranslationStyle) string {
	switch style {
	case StyleFormal:
		return "Use a formal, professional register suitable for official documents."
	case StyleCasual:
		return "Use a casual, conversational register."
	case StyleMarketing:
		return "Use persuasive, engaging language suitable for promotional copy."
	case StyleTechnical:
		return "Use precise technical language and keep terminology consistent."
	default:
		return "Use a neutral, professional register."
	}
}

// AIProvider drafts translations for a batch of texts.
type AIProvider interface {
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// TranslateRequest contains the parameters for a draft translation request.
type TranslateRequest struct {
	Texts         []string
	TargetLang    string // Locale, e.g. "es-mx"
	SourceLang    string
	ExcludedTerms []string
	Context       string
	TextContexts  []string // Per-text hints, e.g. the category or block id
	Glossary      map[string]string
	Style         TranslationStyle
}
