package alert

import (
	"github.com/moby/patternmatcher"
)

// WatchList maps a category to the item identifiers (or glob patterns) a
// subscriber cares about. Order is irrelevant; identifiers are unique within
// a category.
type WatchList map[string][]string

// Matches reports whether an item id is covered by the watch list entries
// for a category. Entries are matched as patterns, so "any_*_egg" works as
// well as exact ids. An invalid pattern simply doesn't match.
func (w WatchList) Matches(category, itemID string) bool {
	patterns := w[category]
	if len(patterns) == 0 {
		return false
	}
	ok, err := patternmatcher.Matches(itemID, patterns)
	if err != nil {
		return false
	}
	return ok
}

// HasCategory reports whether the watch list has entries for a category.
func (w WatchList) HasCategory(category string) bool {
	return len(w[category]) > 0
}
