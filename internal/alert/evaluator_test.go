package alert

import (
	"strings"
	"testing"

	"github.com/mossline/stockwatch/config"
	"github.com/mossline/stockwatch/internal/differ"
	"github.com/mossline/stockwatch/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []config.CategoryConfig{
	{Name: "seed", Label: "Seeds", Policy: config.PolicyImmediate},
	{Name: "gear", Label: "Gear", Policy: config.PolicyImmediate},
	{Name: "egg", Label: "Eggs", Policy: config.PolicySlowRestock},
}

func TestEvaluateWatchedItemProducesAlert(t *testing.T) {
	e := NewEvaluator(testCategories, nil)

	snap := snapshot.Snapshot{"seed": {{ID: "kiwi", Quantity: 1}}}
	report := differ.Report{Eligible: map[string]bool{"seed": true}}

	alert, ok := e.Evaluate(snap, WatchList{"seed": {"kiwi"}}, report)
	require.True(t, ok)
	assert.Contains(t, alert.Text, "Kiwi")
	assert.Contains(t, alert.Text, "Seeds in stock")
	assert.Equal(t, []string{"seed"}, alert.Categories)
}

func TestEvaluateUnwatchedItemIsNoAlert(t *testing.T) {
	e := NewEvaluator(testCategories, nil)

	snap := snapshot.Snapshot{"seed": {{ID: "apple", Quantity: 1}}}
	report := differ.Report{Eligible: map[string]bool{"seed": true}}

	alert, ok := e.Evaluate(snap, WatchList{"seed": {"kiwi"}}, report)
	assert.False(t, ok)
	assert.Nil(t, alert)
}

func TestEvaluateIneligibleCategoryNeverContributes(t *testing.T) {
	e := NewEvaluator(testCategories, nil)

	snap := snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}}
	report := differ.Report{Eligible: map[string]bool{"egg": false}}

	_, ok := e.Evaluate(snap, WatchList{"egg": {"bug_egg"}}, report)
	assert.False(t, ok)
}

func TestEvaluateFallsBackToDefaultWatchList(t *testing.T) {
	e := NewEvaluator(testCategories, WatchList{"seed": {"kiwi"}})

	snap := snapshot.Snapshot{"seed": {{ID: "kiwi", Quantity: 2}}}
	report := differ.Report{Eligible: map[string]bool{"seed": true}}

	alert, ok := e.Evaluate(snap, nil, report)
	require.True(t, ok)
	assert.Contains(t, alert.Text, "Kiwi x2")
}

func TestEvaluateFixedCategoryOrder(t *testing.T) {
	e := NewEvaluator(testCategories, nil)

	snap := snapshot.Snapshot{
		"egg":  {{ID: "bug_egg", Quantity: 1}},
		"seed": {{ID: "kiwi", Quantity: 1}},
	}
	report := differ.Report{Eligible: map[string]bool{"seed": true, "egg": true}}

	alert, ok := e.Evaluate(snap, WatchList{"seed": {"kiwi"}, "egg": {"bug_egg"}}, report)
	require.True(t, ok)

	// Seeds are configured before eggs, so they render first.
	assert.Equal(t, []string{"seed", "egg"}, alert.Categories)
	assert.Less(t, indexOf(t, alert.Text, "Seeds"), indexOf(t, alert.Text, "Eggs"))
	assert.Equal(t, 2, alert.ItemCount)
}

func TestEvaluatePatternEntries(t *testing.T) {
	e := NewEvaluator(testCategories, nil)

	snap := snapshot.Snapshot{"egg": {
		{ID: "bug_egg", Quantity: 1},
		{ID: "mythical_egg", Quantity: 1},
		{ID: "shovel", Quantity: 1},
	}}
	report := differ.Report{Eligible: map[string]bool{"egg": true}}

	alert, ok := e.Evaluate(snap, WatchList{"egg": {"*_egg"}}, report)
	require.True(t, ok)
	assert.Contains(t, alert.Text, "Bug Egg")
	assert.Contains(t, alert.Text, "Mythical Egg")
	assert.NotContains(t, alert.Text, "Shovel")
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kiwi", "Kiwi"},
		{"sugar_apple", "Sugar Apple"},
		{"bug_egg", "Bug Egg"},
		{"x", "X"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.in))
	}
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	idx := strings.Index(s, sub)
	require.GreaterOrEqual(t, idx, 0, "expected %q in %q", sub, s)
	return idx
}
