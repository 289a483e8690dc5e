package alert

import (
	"strings"
)

// DisplayName converts an item identifier to its display form:
// underscores split words, each word is title-cased ("sugar_apple" ->
// "Sugar Apple").
func DisplayName(itemID string) string {
	words := strings.Split(itemID, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
