// Package dedupe implements the idempotency guard that shields the
// canvas from duplicate mutations. The agent runtime invokes actions
// from possibly-repeated natural-language instructions, so the same
// logical creation can arrive twice within seconds, or once per step of
// an autonomous plan. The guard remembers recent creations and answers
// repeats with the previously created id instead of inserting again.
package dedupe

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/canvashq/canvas-agent/internal/canvas"
	"github.com/canvashq/canvas-agent/pkg/ttlcache"
)

// DefaultWindow is the throttle window for repeated identical
// creation requests.
const DefaultWindow = 5 * time.Second

// DefaultCapacity bounds the recent-creation memory.
const DefaultCapacity = 256

// Guard holds the transient dedup state. It is process-local and reset
// whenever the plan transitions into or out of in_progress. All calls
// arrive serialized through the store, but the guard locks its own
// cache so it is safe either way.
type Guard struct {
	recent     *ttlcache.Cache[string, string]
	planActive bool
	planItems  map[canvas.ItemType]string
	logger     zerolog.Logger
}

// Option configures a Guard.
type Option func(*config)

type config struct {
	window   time.Duration
	capacity int
	clock    func() time.Time
}

// WithWindow overrides the throttle window.
func WithWindow(d time.Duration) Option {
	return func(c *config) { c.window = d }
}

// WithCapacity overrides the recent-creation memory size.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.clock = now }
}

// New creates a guard with an empty memory.
func New(logger zerolog.Logger, opts ...Option) *Guard {
	cfg := config{window: DefaultWindow, capacity: DefaultCapacity, clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Guard{
		recent: ttlcache.New[string, string](cfg.capacity, cfg.window,
			ttlcache.WithClock[string, string](cfg.clock)),
		planItems: make(map[canvas.ItemType]string),
		logger:    logger.With().Str("component", "dedupe").Logger(),
	}
}

// SetPlanActive records a plan lifecycle transition. Every transition
// into or out of an active plan wipes the guard's memory: dedup
// decisions never outlive the plan they were made under.
func (g *Guard) SetPlanActive(active bool) {
	if g.planActive == active {
		return
	}
	g.planActive = active
	g.planItems = make(map[canvas.ItemType]string)
	g.recent.Clear()
	g.logger.Debug().Bool("plan_active", active).Msg("guard memory reset")
}

// PlanActive reports whether a plan is currently in progress.
func (g *Guard) PlanActive() bool { return g.planActive }

// PlanItem returns the id already created for a type during the active
// plan. The single-instance rule: while a plan runs, at most one item
// per type tag.
func (g *Guard) PlanItem(t canvas.ItemType) (string, bool) {
	if !g.planActive {
		return "", false
	}
	id, ok := g.planItems[t]
	return id, ok
}

// RememberPlanItem records the item created for a type during the
// active plan. No-op while no plan runs.
func (g *Guard) RememberPlanItem(t canvas.ItemType, id string) {
	if !g.planActive {
		return
	}
	g.planItems[t] = id
}

// RecentItem returns the id of an identical (type, trimmed name)
// creation inside the throttle window.
func (g *Guard) RecentItem(t canvas.ItemType, name string) (string, bool) {
	return g.recent.Get(itemKey(t, name))
}

// RememberItem records an item creation for the throttle window.
func (g *Guard) RememberItem(t canvas.ItemType, name, id string) {
	g.recent.Put(itemKey(t, name), id)
}

// RecentChecklistEntry returns the id of an identical checklist
// addition on the same item inside the window.
func (g *Guard) RecentChecklistEntry(itemID, text string) (string, bool) {
	return g.recent.Get(entryKey("check", itemID, text, ""))
}

// RememberChecklistEntry records a checklist addition.
func (g *Guard) RememberChecklistEntry(itemID, text, entryID string) {
	g.recent.Put(entryKey("check", itemID, text, ""), entryID)
}

// RecentMetric returns the id of an identical (label, value) metric
// addition on the same item inside the window.
func (g *Guard) RecentMetric(itemID, label, value string) (string, bool) {
	return g.recent.Get(entryKey("metric", itemID, label, value))
}

// RememberMetric records a metric addition.
func (g *Guard) RememberMetric(itemID, label, value, metricID string) {
	g.recent.Put(entryKey("metric", itemID, label, value), metricID)
}

func itemKey(t canvas.ItemType, name string) string {
	return "item|" + string(t) + "|" + strings.TrimSpace(name)
}

func entryKey(kind, itemID, text, extra string) string {
	return kind + "|" + itemID + "|" + strings.TrimSpace(text) + "|" + extra
}
