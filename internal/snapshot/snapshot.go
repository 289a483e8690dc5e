// Package snapshot defines the inventory snapshot model shared by the feed,
// differ and evaluator.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mossline/stockwatch/errors"
)

// Item is a single inventory entry: an opaque identifier plus a quantity.
type Item struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// Snapshot is a full point-in-time inventory state: category name to the
// ordered list of items currently in stock. Snapshots are whole replacements,
// never partial patches. A category absent from a snapshot means "no items".
type Snapshot map[string][]Item

// Parse decodes a raw feed payload into a Snapshot.
// The wire format is a JSON object mapping category names to item arrays:
//
//	{"seed":[{"id":"kiwi","quantity":1}],"gear":[]}
func Parse(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.PayloadInvalid(err)
	}
	for category, items := range snap {
		for _, item := range items {
			if item.ID == "" {
				return nil, errors.PayloadInvalid(
					fmt.Errorf("category %q contains an item without an id", category))
			}
		}
	}
	return snap, nil
}

// Items returns the item list for a category. A missing category yields nil,
// which downstream code treats as an empty stock list.
func (s Snapshot) Items(category string) []Item {
	return s[category]
}

// IDSet returns the set of item identifiers present in a category.
func (s Snapshot) IDSet(category string) map[string]struct{} {
	items := s[category]
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item.ID] = struct{}{}
	}
	return set
}

// Fingerprint returns an order-independent encoding of a category's items:
// sorted "id:quantity" pairs joined by ",". Two categories with the same
// items in different order produce the same fingerprint.
func (s Snapshot) Fingerprint(category string) string {
	items := s[category]
	if len(items) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, fmt.Sprintf("%s:%d", item.ID, item.Quantity))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// SameCategories reports whether two snapshots carry identical stock for
// every tracked category, compared by fingerprint rather than raw payload
// bytes (the feed may resend an identical snapshot with reordered items).
func SameCategories(a, b Snapshot, categories []string) bool {
	for _, category := range categories {
		if a.Fingerprint(category) != b.Fingerprint(category) {
			return false
		}
	}
	return true
}
