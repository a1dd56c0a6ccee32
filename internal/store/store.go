// Package store owns the live canvas document. Every mutation is
// applied under one lock, producing a complete new document state or
// leaving it unchanged; listeners observe a deep-copied snapshot after
// each mutation. The store is the only writer; external actors (the
// UI and the agent runtime) go through the action surface, which
// delegates here.
package store

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/canvashq/canvas-agent/internal/canvas"
	"github.com/canvashq/canvas-agent/internal/dedupe"
)

// Config holds store construction options.
type Config struct {
	// TagCatalog overrides the entity tag catalog baked into new
	// entity cards. Empty keeps the built-in catalog.
	TagCatalog []string

	// OnDedupeHit is invoked with the rule name whenever a creation
	// is answered from idempotency memory instead of inserting.
	OnDedupeHit func(rule string)
}

// Listener receives a snapshot after every mutation that changed the
// document.
type Listener func(snapshot canvas.Canvas)

// Store is the canvas document owner.
type Store struct {
	mu        sync.RWMutex
	doc       canvas.Canvas
	guard     *dedupe.Guard
	catalog   []string
	onHit     func(rule string)
	logger    zerolog.Logger
	listeners map[int]Listener
	nextSub   int
}

// New creates a store with an empty canvas.
func New(cfg Config, guard *dedupe.Guard, logger zerolog.Logger) *Store {
	return &Store{
		doc:       canvas.New(),
		guard:     guard,
		catalog:   cfg.TagCatalog,
		onHit:     cfg.OnDedupeHit,
		logger:    logger.With().Str("component", "store").Logger(),
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() canvas.Canvas {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Subscribe registers a listener and returns an unsubscribe func.
// Listeners are invoked synchronously, outside the store lock, in
// mutation order.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) recordHit(rule string) {
	if s.onHit != nil {
		s.onHit(rule)
	}
}

func (s *Store) notify(snap canvas.Canvas) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(snap.Clone())
	}
}

// --- global fields ---

// SetGlobalTitle replaces the canvas title.
func (s *Store) SetGlobalTitle(title string) {
	s.mu.Lock()
	s.doc.GlobalTitle = title
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
}

// SetGlobalDescription replaces the canvas description.
func (s *Store) SetGlobalDescription(desc string) {
	s.mu.Lock()
	s.doc.GlobalDescription = desc
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
}

// --- item lifecycle ---

// CreateItem allocates a new item of the given type, or returns the id
// of an existing one when an idempotency rule fires. Rules, in
// priority order: the plan-scoped single-instance rule, exact trimmed
// name match among existing items of the type, and the short-window
// throttle on identical (type, name) requests.
func (s *Store) CreateItem(t canvas.ItemType, name string) (string, error) {
	if !t.Valid() {
		return "", &canvas.InvalidTypeError{Type: string(t)}
	}
	name = strings.TrimSpace(name)

	s.mu.Lock()

	if id, ok := s.guard.PlanItem(t); ok {
		s.mu.Unlock()
		s.recordHit("plan_instance")
		s.logger.Debug().Str("type", string(t)).Str("id", id).
			Msg("plan single-instance rule: reusing item")
		return id, nil
	}
	if s.guard.PlanActive() {
		for i := range s.doc.Items {
			if s.doc.Items[i].Type == t {
				id := s.doc.Items[i].ID
				s.guard.RememberPlanItem(t, id)
				s.mu.Unlock()
				s.recordHit("plan_adopt")
				return id, nil
			}
		}
	}
	if name != "" {
		for i := range s.doc.Items {
			if s.doc.Items[i].Type == t && strings.TrimSpace(s.doc.Items[i].Name) == name {
				id := s.doc.Items[i].ID
				s.mu.Unlock()
				s.recordHit("name_match")
				s.logger.Debug().Str("type", string(t)).Str("id", id).
					Msg("name dedup: reusing item")
				return id, nil
			}
		}
	}
	if id, ok := s.guard.RecentItem(t, name); ok {
		s.mu.Unlock()
		s.recordHit("throttle")
		s.logger.Debug().Str("type", string(t)).Str("id", id).
			Msg("throttle window: reusing item")
		return id, nil
	}

	num := s.doc.NextItemNumber()
	id := canvas.FormatItemID(num)
	item, err := canvas.NewItem(id, t, name)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	if len(s.catalog) > 0 {
		if d, ok := item.Data.(canvas.EntityData); ok {
			d.Field3Options = append([]string(nil), s.catalog...)
			item.Data = d
		}
	}

	s.doc.Items = append(s.doc.Items, item)
	s.doc.ItemsCreated = num
	s.doc.LastAction = "created:" + id
	s.guard.RememberItem(t, name, id)
	s.guard.RememberPlanItem(t, id)
	snap := s.doc.Clone()
	s.mu.Unlock()

	s.logger.Info().Str("type", string(t)).Str("id", id).Msg("item created")
	s.notify(snap)
	return id, nil
}

// DeleteItem removes an item and reports the outcome as
// "deleted:<id>" or "not_found:<id>". Both tags are recorded as the
// document's lastAction.
func (s *Store) DeleteItem(id string) string {
	s.mu.Lock()
	found := false
	out := s.doc.Items[:0]
	for _, it := range s.doc.Items {
		if it.ID == id {
			found = true
			continue
		}
		out = append(out, it)
	}
	var result string
	if found {
		s.doc.Items = out
		result = "deleted:" + id
	} else {
		result = "not_found:" + id
	}
	s.doc.LastAction = result
	snap := s.doc.Clone()
	s.mu.Unlock()

	s.notify(snap)
	return result
}

// SetItemName sets an item's display name. Missing ids are a no-op.
func (s *Store) SetItemName(id, name string) bool {
	return s.updateItem(id, func(it *canvas.Item) { it.Name = name })
}

// SetItemSubtitle sets an item's secondary line.
func (s *Store) SetItemSubtitle(id, subtitle string) bool {
	return s.updateItem(id, func(it *canvas.Item) { it.Subtitle = subtitle })
}

func (s *Store) updateItem(id string, fn func(*canvas.Item)) bool {
	s.mu.Lock()
	it := s.doc.FindItem(id)
	if it == nil {
		s.mu.Unlock()
		return false
	}
	fn(it)
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// UpdateData applies a pure payload mutator to an item. The mutator
// contract (wrong variant in, same payload out) makes misaddressed
// calls a silent no-op. Returns false when the item id does not exist.
func (s *Store) UpdateData(id string, fn func(canvas.ItemData) canvas.ItemData) bool {
	s.mu.Lock()
	it := s.doc.FindItem(id)
	if it == nil {
		s.mu.Unlock()
		return false
	}
	it.Data = fn(it.Data)
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// AddChecklistEntry appends a checklist entry to a project item,
// subject to the throttle: an identical text on the same item inside
// the window returns the prior entry id. Returns "" when the item is
// missing or not a project.
func (s *Store) AddChecklistEntry(itemID, text string) string {
	s.mu.Lock()
	if id, ok := s.guard.RecentChecklistEntry(itemID, text); ok {
		s.mu.Unlock()
		s.recordHit("checklist_throttle")
		return id
	}
	it := s.doc.FindItem(itemID)
	if it == nil {
		s.mu.Unlock()
		return ""
	}
	data, entryID := canvas.AddChecklistItem(it.Data, text)
	if entryID == "" {
		s.mu.Unlock()
		return ""
	}
	it.Data = data
	s.guard.RememberChecklistEntry(itemID, text, entryID)
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return entryID
}

// AddMetric appends a chart metric, throttled on identical
// (label, value) for the same item. Returns "" when the item is
// missing or not a chart.
func (s *Store) AddMetric(itemID, label string, value canvas.MetricValue) string {
	valueKey := ""
	if value.IsSet() {
		valueKey = canvas.FormatItemID(value.Int())
	}
	s.mu.Lock()
	if id, ok := s.guard.RecentMetric(itemID, label, valueKey); ok {
		s.mu.Unlock()
		s.recordHit("metric_throttle")
		return id
	}
	it := s.doc.FindItem(itemID)
	if it == nil {
		s.mu.Unlock()
		return ""
	}
	data, metricID := canvas.AddChartMetric(it.Data, label, value)
	if metricID == "" {
		s.mu.Unlock()
		return ""
	}
	it.Data = data
	s.guard.RememberMetric(itemID, label, valueKey, metricID)
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return metricID
}

// --- plan overlay ---

// SetPlanSteps replaces the plan overlay and resets progress to the
// first step.
func (s *Store) SetPlanSteps(steps []canvas.PlanStep) {
	s.mu.Lock()
	s.doc.PlanSteps = append([]canvas.PlanStep{}, steps...)
	if len(steps) > 0 {
		s.doc.CurrentStepIndex = 0
	} else {
		s.doc.CurrentStepIndex = -1
	}
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
}

// SetPlanStatus transitions the plan lifecycle. Transitions into or
// out of in_progress reset the idempotency guard.
func (s *Store) SetPlanStatus(status canvas.PlanStatus) {
	s.mu.Lock()
	s.doc.PlanStatus = status
	s.guard.SetPlanActive(status == canvas.PlanInProgress)
	if status != canvas.PlanInProgress && status != canvas.PlanNone {
		s.doc.CurrentStepIndex = -1
	}
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
}

// UpdatePlanStep sets one step's status and note, then moves
// currentStepIndex to the first step still pending or in progress.
// Out-of-range indices are a no-op.
func (s *Store) UpdatePlanStep(index int, status canvas.StepStatus, note string) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.doc.PlanSteps) {
		s.mu.Unlock()
		return false
	}
	s.doc.PlanSteps[index].Status = status
	if note != "" {
		s.doc.PlanSteps[index].Note = note
	}
	s.doc.CurrentStepIndex = -1
	for i, step := range s.doc.PlanSteps {
		if step.Status == canvas.StepPending || step.Status == canvas.StepInProgress {
			s.doc.CurrentStepIndex = i
			break
		}
	}
	snap := s.doc.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// --- persistence ---

// Save writes the document as JSON to path. The file holds exactly the
// replicated wire shape, so saved snapshots stay loadable by any
// compatible implementation.
func (s *Store) Save(path string) error {
	snap := s.Snapshot()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load replaces the document with the snapshot at path. A missing file
// leaves the empty canvas in place.
func (s *Store) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var doc canvas.Canvas
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = doc
	s.guard.SetPlanActive(doc.PlanStatus == canvas.PlanInProgress)
	s.mu.Unlock()
	s.logger.Info().Str("path", path).Int("items", len(doc.Items)).Msg("canvas snapshot loaded")
	return nil
}
