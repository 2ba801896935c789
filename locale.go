package langsys

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// NormalizeLocale lowercases a locale and uses hyphens as separators
// ("es_MX" → "es-mx").
func NormalizeLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}

// ToOpenGraphLocale converts a locale to the OpenGraph lang_REGION form
// ("es-mx" → "es_MX"). A bare two-letter language repeats itself as the
// region ("fr" → "fr_FR").
func ToOpenGraphLocale(locale string) string {
	parts := strings.Split(NormalizeLocale(locale), "-")
	lang := parts[0]
	if len(parts) >= 2 {
		return lang + "_" + strings.ToUpper(parts[len(parts)-1])
	}
	if len(lang) == 2 {
		return lang + "_" + strings.ToUpper(lang)
	}
	return lang
}

// LanguageCode returns the language part of a locale ("es-mx" → "es").
func LanguageCode(locale string) string {
	return strings.Split(NormalizeLocale(locale), "-")[0]
}

// CountryCode returns the upper-case region of a locale, or "" when it has none.
func CountryCode(locale string) string {
	parts := strings.Split(NormalizeLocale(locale), "-")
	if len(parts) < 2 {
		return ""
	}
	return strings.ToUpper(parts[len(parts)-1])
}

// ParseAcceptLanguage returns the locales of an Accept-Language header,
// normalized and ordered by preference. Invalid headers yield nil.
func ParseAcceptLanguage(header string) []string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	locales := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == language.Und {
			continue
		}
		locales = append(locales, NormalizeLocale(tag.String()))
	}
	return locales
}

// MatchLocale picks the supported locale that best fits an Accept-Language
// header, or fallback when nothing matches.
func MatchLocale(header string, supported []string, fallback string) string {
	if len(supported) == 0 {
		return fallback
	}
	desired, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(desired) == 0 {
		return fallback
	}

	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tag, err := language.Parse(s)
		if err != nil {
			tag = language.Und
		}
		tags = append(tags, tag)
	}

	_, index, confidence := language.NewMatcher(tags).Match(desired...)
	if confidence == language.No {
		return fallback
	}
	return NormalizeLocale(supported[index])
}

// LanguageName returns the English display name of a locale
// ("es-mx" → "Mexican Spanish"). Unparseable locales are returned as given.
func LanguageName(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return locale
	}
	return name
}
