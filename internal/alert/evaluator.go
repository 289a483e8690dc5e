// Package alert turns an eligible snapshot into formatted alert text for a
// single subscriber.
package alert

import (
	"fmt"
	"strings"

	"github.com/mossline/stockwatch/config"
	"github.com/mossline/stockwatch/internal/differ"
	"github.com/mossline/stockwatch/internal/snapshot"
)

// Alert is a formatted notification plus the categories that contributed.
type Alert struct {
	Text       string
	Categories []string
	ItemCount  int
}

// Evaluator maps a snapshot, a subscriber's watch list and the differ's
// change report to a formatted alert, or to "no alert".
type Evaluator struct {
	order       []string          // fixed category display order
	labels      map[string]string // category -> display label
	defaultList WatchList
}

// NewEvaluator builds an evaluator from the configured categories. The
// default watch list is applied to subscribers without one of their own.
func NewEvaluator(categories []config.CategoryConfig, defaultList WatchList) *Evaluator {
	order := make([]string, 0, len(categories))
	labels := make(map[string]string, len(categories))
	for _, cat := range categories {
		order = append(order, cat.Name)
		label := cat.Label
		if label == "" {
			label = DisplayName(cat.Name)
		}
		labels[cat.Name] = label
	}
	return &Evaluator{
		order:       order,
		labels:      labels,
		defaultList: defaultList,
	}
}

// Evaluate intersects the snapshot with the subscriber's watch list. A
// category contributes only when the intersection is non-empty and the change
// report marked it eligible. The second return value is false when no
// category contributes, so callers can tell "nothing to say" from an empty
// message.
func (e *Evaluator) Evaluate(snap snapshot.Snapshot, watchList WatchList, report differ.Report) (*Alert, bool) {
	if len(watchList) == 0 {
		watchList = e.defaultList
	}

	var blocks []string
	var contributing []string
	itemCount := 0

	for _, category := range e.order {
		if !report.Eligible[category] {
			continue
		}

		var lines []string
		for _, item := range snap.Items(category) {
			if !watchList.Matches(category, item.ID) {
				continue
			}
			lines = append(lines, fmt.Sprintf("• %s x%d", DisplayName(item.ID), item.Quantity))
		}
		if len(lines) == 0 {
			continue
		}

		block := fmt.Sprintf("%s in stock:\n%s", e.labels[category], strings.Join(lines, "\n"))
		blocks = append(blocks, block)
		contributing = append(contributing, category)
		itemCount += len(lines)
	}

	if len(blocks) == 0 {
		return nil, false
	}

	return &Alert{
		Text:       strings.Join(blocks, "\n\n"),
		Categories: contributing,
		ItemCount:  itemCount,
	}, true
}
