package langsys

import (
	"crypto/md5" // #nosec G501 - content identity, not security
	"encoding/hex"
	"strings"
)

// customIDSeparator joins the parts hashed into a content block id.
const customIDSeparator = "|"

// GenerateCustomID returns the content block identifier for category and the
// ordered phrase list: the hex md5 of category and phrases joined with "|".
// Phrase order matters.
func GenerateCustomID(category string, phrases []string) string {
	parts := make([]string, 0, len(phrases)+1)
	parts = append(parts, category)
	parts = append(parts, phrases...)
	sum := md5.Sum([]byte(strings.Join(parts, customIDSeparator))) // #nosec G401
	return hex.EncodeToString(sum[:])
}

// TranslationsCacheKey is the cache key of a project's translation map for locale.
func TranslationsCacheKey(projectID, locale string) string {
	return "translations_" + projectID + "_" + locale
}

// AuthCacheKey is the cache key of a project's authorization result.
func AuthCacheKey(projectID string) string {
	return "auth_" + projectID
}

// RegisteredItemsCacheKey is the cache key of the registered items of category.
func RegisteredItemsCacheKey(category string) string {
	return "registered_items_" + CategoryOr(category, "")
}
