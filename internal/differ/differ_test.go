package differ

import (
	"testing"
	"time"

	"github.com/mossline/stockwatch/config"
	"github.com/mossline/stockwatch/internal/snapshot"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDiffer(bundle bool, clock *fakeClock) *Differ {
	return New(Options{
		Policies: map[string]config.CategoryPolicy{
			"seed": config.PolicyImmediate,
			"gear": config.PolicyImmediate,
			"egg":  config.PolicySlowRestock,
		},
		Window: 30 * time.Minute,
		Bundle: bundle,
		Now:    clock.Now,
	})
}

func TestImmediateCategoryEligibleOnPresence(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := newTestDiffer(false, clock)

	report := d.Reconcile(snapshot.Snapshot{"seed": {{ID: "kiwi", Quantity: 1}}})
	assert.True(t, report.Eligible["seed"])
	assert.False(t, report.Eligible["gear"])

	// Identical snapshot again: presence is sufficient, novelty not required.
	report = d.Reconcile(snapshot.Snapshot{"seed": {{ID: "kiwi", Quantity: 1}}})
	assert.True(t, report.Eligible["seed"])
}

func TestSlowRestockFirstAppearanceAlwaysEligible(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := newTestDiffer(false, clock)

	// First snapshot with a bug_egg: eligible.
	report := d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})
	assert.True(t, report.Eligible["egg"])
	assert.Equal(t, []string{"bug_egg"}, report.NewItems["egg"])

	// Second identical snapshot one minute later: not eligible.
	clock.Advance(time.Minute)
	report = d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})
	assert.False(t, report.Eligible["egg"])

	// Third identical snapshot after 31 minutes total: window elapsed, eligible.
	clock.Advance(30 * time.Minute)
	report = d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})
	assert.True(t, report.Eligible["egg"])
}

func TestSlowRestockUnchangedInsideWindowNeverEligible(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := newTestDiffer(false, clock)

	d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})

	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Minute)
		report := d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})
		assert.False(t, report.Eligible["egg"], "unchanged set inside window must stay quiet")
	}
}

func TestSlowRestockNoveltyEligibleInsideWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := newTestDiffer(false, clock)

	d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})

	// A brand-new item shows up two minutes later: eligible despite the window.
	clock.Advance(2 * time.Minute)
	report := d.Reconcile(snapshot.Snapshot{"egg": {
		{ID: "bug_egg", Quantity: 1},
		{ID: "mythical_egg", Quantity: 1},
	}})
	assert.True(t, report.Eligible["egg"])
	assert.Equal(t, []string{"mythical_egg"}, report.NewItems["egg"])
}

func TestSlowRestockWindowResetOnlyOnElapsed(t *testing.T) {
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	d := newTestDiffer(false, clock)

	// First reconcile: lastNotify was zero, so the window counts as elapsed.
	d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})
	assert.Equal(t, start, d.LastNotify("egg"))

	// Novelty inside the window alerts but does not reset the window.
	clock.Advance(2 * time.Minute)
	report := d.Reconcile(snapshot.Snapshot{"egg": {
		{ID: "bug_egg", Quantity: 1},
		{ID: "rare_egg", Quantity: 1},
	}})
	assert.True(t, report.Eligible["egg"])
	assert.Equal(t, start, d.LastNotify("egg"))
}

func TestBundlingSurfacesSlowRestockWithImmediate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := newTestDiffer(true, clock)

	d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})
	notifyAfterFirst := d.LastNotify("egg")

	// Unchanged eggs inside the window, but seeds fired: bundled in.
	clock.Advance(time.Minute)
	report := d.Reconcile(snapshot.Snapshot{
		"seed": {{ID: "kiwi", Quantity: 1}},
		"egg":  {{ID: "bug_egg", Quantity: 1}},
	})
	assert.True(t, report.Eligible["seed"])
	assert.True(t, report.Eligible["egg"])

	// The bundle-only trigger must not reset the quiescence window.
	assert.Equal(t, notifyAfterFirst, d.LastNotify("egg"))
}

func TestBundlingDisabled(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := newTestDiffer(false, clock)

	d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})

	clock.Advance(time.Minute)
	report := d.Reconcile(snapshot.Snapshot{
		"seed": {{ID: "kiwi", Quantity: 1}},
		"egg":  {{ID: "bug_egg", Quantity: 1}},
	})
	assert.True(t, report.Eligible["seed"])
	assert.False(t, report.Eligible["egg"])
}

func TestAbsentCategoryMeansNoItems(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := newTestDiffer(true, clock)

	d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})

	// Egg vanished from the feed entirely: empty set, never eligible, and the
	// seen set resets so its return later counts as new.
	clock.Advance(time.Minute)
	report := d.Reconcile(snapshot.Snapshot{"seed": {{ID: "kiwi", Quantity: 1}}})
	assert.False(t, report.Eligible["egg"])

	clock.Advance(time.Minute)
	report = d.Reconcile(snapshot.Snapshot{"egg": {{ID: "bug_egg", Quantity: 1}}})
	assert.True(t, report.Eligible["egg"])
	assert.Equal(t, []string{"bug_egg"}, report.NewItems["egg"])
}

func TestAnyEligible(t *testing.T) {
	report := Report{Eligible: map[string]bool{"seed": false, "egg": false}}
	assert.False(t, report.AnyEligible())
	report.Eligible["seed"] = true
	assert.True(t, report.AnyEligible())
}
