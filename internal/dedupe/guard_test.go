package dedupe

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvashq/canvas-agent/internal/canvas"
)

type stepClock struct {
	t time.Time
}

func (s *stepClock) now() time.Time          { return s.t }
func (s *stepClock) advance(d time.Duration) { s.t = s.t.Add(d) }

func newTestGuard() (*Guard, *stepClock) {
	clock := &stepClock{t: time.Unix(1700000000, 0)}
	g := New(zerolog.Nop(), WithWindow(5*time.Second), WithClock(clock.now))
	return g, clock
}

func TestGuard_ThrottleWindow(t *testing.T) {
	g, clock := newTestGuard()

	_, hit := g.RecentItem(canvas.TypeProject, "Alpha")
	assert.False(t, hit)

	g.RememberItem(canvas.TypeProject, "Alpha", "0001")

	id, hit := g.RecentItem(canvas.TypeProject, "Alpha")
	require.True(t, hit)
	assert.Equal(t, "0001", id)

	// same name, different type is a different creation
	_, hit = g.RecentItem(canvas.TypeNote, "Alpha")
	assert.False(t, hit)

	clock.advance(6 * time.Second)
	_, hit = g.RecentItem(canvas.TypeProject, "Alpha")
	assert.False(t, hit)
}

func TestGuard_ItemNameTrimmed(t *testing.T) {
	g, _ := newTestGuard()
	g.RememberItem(canvas.TypeProject, "Alpha", "0001")

	id, hit := g.RecentItem(canvas.TypeProject, "  Alpha  ")
	require.True(t, hit)
	assert.Equal(t, "0001", id)
}

func TestGuard_PlanSingleInstance(t *testing.T) {
	g, _ := newTestGuard()

	// no plan: rule is off
	_, hit := g.PlanItem(canvas.TypeProject)
	assert.False(t, hit)
	g.RememberPlanItem(canvas.TypeProject, "0001")
	_, hit = g.PlanItem(canvas.TypeProject)
	assert.False(t, hit)

	g.SetPlanActive(true)
	g.RememberPlanItem(canvas.TypeProject, "0002")

	id, hit := g.PlanItem(canvas.TypeProject)
	require.True(t, hit)
	assert.Equal(t, "0002", id)

	// other types unaffected
	_, hit = g.PlanItem(canvas.TypeChart)
	assert.False(t, hit)
}

func TestGuard_ResetOnPlanTransitions(t *testing.T) {
	g, _ := newTestGuard()

	g.RememberItem(canvas.TypeProject, "Alpha", "0001")
	g.SetPlanActive(true)

	// entering a plan wipes the throttle memory
	_, hit := g.RecentItem(canvas.TypeProject, "Alpha")
	assert.False(t, hit)

	g.RememberPlanItem(canvas.TypeProject, "0002")
	g.SetPlanActive(false)
	g.SetPlanActive(true)

	// leaving and re-entering wipes the plan memory
	_, hit = g.PlanItem(canvas.TypeProject)
	assert.False(t, hit)
}

func TestGuard_SetPlanActiveIdempotent(t *testing.T) {
	g, _ := newTestGuard()
	g.SetPlanActive(true)
	g.RememberPlanItem(canvas.TypeProject, "0001")

	// repeated same-state calls must not wipe memory
	g.SetPlanActive(true)
	_, hit := g.PlanItem(canvas.TypeProject)
	assert.True(t, hit)
}

func TestGuard_ChecklistEntries(t *testing.T) {
	g, clock := newTestGuard()

	g.RememberChecklistEntry("0001", "buy milk", "001")

	id, hit := g.RecentChecklistEntry("0001", "  buy milk ")
	require.True(t, hit)
	assert.Equal(t, "001", id)

	// same text on another item is its own creation
	_, hit = g.RecentChecklistEntry("0002", "buy milk")
	assert.False(t, hit)

	clock.advance(6 * time.Second)
	_, hit = g.RecentChecklistEntry("0001", "buy milk")
	assert.False(t, hit)
}

func TestGuard_Metrics(t *testing.T) {
	g, _ := newTestGuard()

	g.RememberMetric("0001", "speed", "70", "001")

	id, hit := g.RecentMetric("0001", "speed", "70")
	require.True(t, hit)
	assert.Equal(t, "001", id)

	// different value is a different metric
	_, hit = g.RecentMetric("0001", "speed", "80")
	assert.False(t, hit)
}
