package langsys

// ItemKind distinguishes phrases from content blocks in a page inventory.
type ItemKind string

const (
	// ItemPhrase is a single phrase.
	ItemPhrase ItemKind = "phrase"
	// ItemBlock is a content block.
	ItemBlock ItemKind = "block"
)

// Item is one translatable unit found on a page.
type Item struct {
	Kind     ItemKind
	Category string
	Key      string   // Phrase text, or the block's custom id
	Phrases  []string // Block phrases; a single entry for phrases
	Position int      // Order of appearance on the page
	Context  string   // Where the item sits on the page, for translators
}

// ID identifies the item across page versions.
func (i Item) ID() string {
	return string(i.Kind) + ":" + i.Category + "::" + i.Key
}

// DiffResult represents the difference between two versions of a page.
type DiffResult struct {
	// Added contains items that are new (not in the previous version).
	Added []Item

	// Removed contains items that are gone from the new version.
	Removed []Item

	// Unchanged contains items present in both versions.
	Unchanged []Item

	// Modified pairs a removed and an added item of the same kind and category
	// found at the same position, e.g. a paragraph whose wording changed.
	Modified []ModifiedItem
}

// ModifiedItem represents an item that was edited in place.
type ModifiedItem struct {
	Old Item
	New Item
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Unchanged: len(d.Unchanged),
		Modified:  len(d.Modified),
	}
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
	Modified  int
}

// HasChanges returns true if there are any differences.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// NeedsRegistration returns the items the service has not seen yet:
// added items and the new side of modified ones.
func (d *DiffResult) NeedsRegistration() []Item {
	result := make([]Item, 0, len(d.Added)+len(d.Modified))
	result = append(result, d.Added...)
	for _, m := range d.Modified {
		result = append(result, m.New)
	}
	return result
}

// DiffItems compares two page inventories. Items are matched by identity
// first; leftover removed and added items at the same position with the same
// kind and category are reported as modified.
func DiffItems(oldItems, newItems []Item) *DiffResult {
	result := &DiffResult{}

	oldByID := make(map[string]bool, len(oldItems))
	newByID := make(map[string]bool, len(newItems))
	for _, item := range oldItems {
		oldByID[item.ID()] = true
	}
	for _, item := range newItems {
		newByID[item.ID()] = true
	}

	seen := make(map[string]bool)
	for _, item := range oldItems {
		if seen[item.ID()] {
			continue
		}
		seen[item.ID()] = true
		if newByID[item.ID()] {
			result.Unchanged = append(result.Unchanged, item)
		} else {
			result.Removed = append(result.Removed, item)
		}
	}

	seen = make(map[string]bool)
	for _, item := range newItems {
		if seen[item.ID()] {
			continue
		}
		seen[item.ID()] = true
		if !oldByID[item.ID()] {
			result.Added = append(result.Added, item)
		}
	}

	if len(result.Added) == 0 || len(result.Removed) == 0 {
		return result
	}

	matched := make(map[int]bool)
	removedMatched := make(map[int]bool)
	for ri, removed := range result.Removed {
		for ai, added := range result.Added {
			if matched[ai] {
				continue
			}
			if removed.Kind == added.Kind && removed.Category == added.Category && removed.Position == added.Position {
				result.Modified = append(result.Modified, ModifiedItem{Old: removed, New: added})
				matched[ai] = true
				removedMatched[ri] = true
				break
			}
		}
	}

	added := make([]Item, 0, len(result.Added))
	for i, item := range result.Added {
		if !matched[i] {
			added = append(added, item)
		}
	}
	result.Added = added

	removed := make([]Item, 0, len(result.Removed))
	for i, item := range result.Removed {
		if !removedMatched[i] {
			removed = append(removed, item)
		}
	}
	result.Removed = removed

	return result
}
