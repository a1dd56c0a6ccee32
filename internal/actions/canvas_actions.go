package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/canvashq/canvas-agent/internal/canvas"
	"github.com/canvashq/canvas-agent/internal/store"
)

// bound is an Action closed over the store.
type bound struct {
	schema Schema
	run    func(ctx context.Context, args json.RawMessage) (string, error)
}

func (a *bound) Schema() Schema { return a.schema }

func (a *bound) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return a.run(ctx, args)
}

// outcome tags for setter actions. Creation and deletion return their
// own tags (the created id, "deleted:<id>", "not_found:<id>").
const (
	resultOK = "ok"
)

func notFound(id string) string { return "not_found:" + id }

// RegisterCanvasActions binds the full action surface to the store.
// This is the contract the agent runtime invokes against; each action
// does argument coercion only and delegates to the store and the pure
// mutators.
func RegisterCanvasActions(reg *Registry, st *store.Store) {
	itemID := Parameter{Name: "itemId", Type: "string", Required: true, Description: "Target item id."}

	reg.Register(&bound{
		schema: Schema{
			Name:        "setGlobalTitle",
			Description: "Set the global canvas title (outside of items).",
			Parameters: []Parameter{
				{Name: "title", Type: "string", Required: true, Description: "The new global title."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Title string `json:"title"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			st.SetGlobalTitle(p.Title)
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setGlobalDescription",
			Description: "Set the global canvas description (outside of items).",
			Parameters: []Parameter{
				{Name: "description", Type: "string", Required: true, Description: "The new global description."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Description string `json:"description"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			st.SetGlobalDescription(p.Description)
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "createItem",
			Description: "Create a new item card. Returns the new item's id; repeated or plan-scoped duplicates return the existing id.",
			Parameters: []Parameter{
				{Name: "type", Type: "string", Required: true, Description: "Item type: project, entity, note or chart."},
				{Name: "name", Type: "string", Required: false, Description: "Optional item name."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Type string `json:"type"`
				Name string `json:"name"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			t := canvas.ItemType(strings.ToLower(strings.TrimSpace(p.Type)))
			if !t.Valid() {
				return "", &canvas.InvalidTypeError{Type: p.Type}
			}
			return st.CreateItem(t, p.Name)
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "deleteItem",
			Description: "Delete an item by id. Returns deleted:<id> or not_found:<id>.",
			Parameters:  []Parameter{itemID},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				ItemID FlexString `json:"itemId"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			return st.DeleteItem(string(p.ItemID)), nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setItemName",
			Description: "Set an item's name.",
			Parameters: []Parameter{
				{Name: "name", Type: "string", Required: true, Description: "The new item name."},
				itemID,
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Name   string     `json:"name"`
				ItemID FlexString `json:"itemId"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			if !st.SetItemName(string(p.ItemID), p.Name) {
				return notFound(string(p.ItemID)), nil
			}
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setItemSubtitle",
			Description: "Set an item's subtitle line.",
			Parameters: []Parameter{
				{Name: "subtitle", Type: "string", Required: true, Description: "The new subtitle."},
				itemID,
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Subtitle string     `json:"subtitle"`
				ItemID   FlexString `json:"itemId"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			if !st.SetItemSubtitle(string(p.ItemID), p.Subtitle) {
				return notFound(string(p.ItemID)), nil
			}
			return resultOK, nil
		},
	})

	registerProjectActions(reg, st, itemID)
	registerChecklistActions(reg, st, itemID)
	registerEntityActions(reg, st, itemID)
	registerNoteActions(reg, st, itemID)
	registerChartActions(reg, st, itemID)
	registerPlanActions(reg, st)
}

func registerProjectActions(reg *Registry, st *store.Store, itemID Parameter) {
	reg.Register(&bound{
		schema: Schema{
			Name:        "setProjectField1",
			Description: "Set a project card's text field.",
			Parameters: []Parameter{
				{Name: "value", Type: "string", Required: true, Description: "The new text."},
				itemID,
			},
		},
		run: setterAction(st, func(p scalarArgs) func(canvas.ItemData) canvas.ItemData {
			return func(d canvas.ItemData) canvas.ItemData { return canvas.SetProjectField1(d, p.Value) }
		}),
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setProjectField2",
			Description: "Set a project card's select field (Option A, Option B, Option C or empty).",
			Parameters: []Parameter{
				{Name: "value", Type: "string", Required: true, Description: "The selected option."},
				itemID,
			},
		},
		run: setterAction(st, func(p scalarArgs) func(canvas.ItemData) canvas.ItemData {
			return func(d canvas.ItemData) canvas.ItemData { return canvas.SetProjectField2(d, p.Value) }
		}),
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setProjectField3",
			Description: "Set a project card's date field. Accepts YYYY-MM-DD or any parseable date; unparseable input is ignored.",
			Parameters: []Parameter{
				{Name: "date", Type: "string", Required: true, Description: "The new date."},
				itemID,
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			// Some callers name the date argument "value"; accept both.
			var p struct {
				Date   string     `json:"date"`
				Value  string     `json:"value"`
				ItemID FlexString `json:"itemId"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			date := p.Date
			if date == "" {
				date = p.Value
			}
			if !st.UpdateData(string(p.ItemID), func(d canvas.ItemData) canvas.ItemData {
				return canvas.SetProjectField3(d, date)
			}) {
				return notFound(string(p.ItemID)), nil
			}
			return resultOK, nil
		},
	})
}

func registerChecklistActions(reg *Registry, st *store.Store, itemID Parameter) {
	reg.Register(&bound{
		schema: Schema{
			Name:        "addChecklistItem",
			Description: "Add a checklist entry to a project card. Returns the new entry id.",
			Parameters: []Parameter{
				itemID,
				{Name: "text", Type: "string", Required: false, Description: "Entry text."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				ItemID FlexString `json:"itemId"`
				Text   string     `json:"text"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			id := st.AddChecklistEntry(string(p.ItemID), p.Text)
			if id == "" {
				return notFound(string(p.ItemID)), nil
			}
			return id, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setChecklistItem",
			Description: "Update a checklist entry's text and/or done flag. The entry may be addressed by id or by index.",
			Parameters: []Parameter{
				itemID,
				{Name: "checklistItemId", Type: "string", Required: true, Description: "Entry id, or a 0- or 1-based index."},
				{Name: "text", Type: "string", Required: false, Description: "New text."},
				{Name: "done", Type: "boolean", Required: false, Description: "New done state."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var q struct {
				ItemID  FlexString `json:"itemId"`
				EntryID FlexString `json:"checklistItemId"`
				Text    *string    `json:"text"`
				Done    *bool      `json:"done"`
			}
			if err := json.Unmarshal(args, &q); err != nil {
				return "", err
			}
			if !st.UpdateData(string(q.ItemID), func(d canvas.ItemData) canvas.ItemData {
				return canvas.UpdateChecklistItem(d, string(q.EntryID), q.Text, q.Done)
			}) {
				return notFound(string(q.ItemID)), nil
			}
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "removeChecklistItem",
			Description: "Remove a checklist entry by id.",
			Parameters: []Parameter{
				itemID,
				{Name: "checklistItemId", Type: "string", Required: true, Description: "Entry id."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				ItemID  FlexString `json:"itemId"`
				EntryID FlexString `json:"checklistItemId"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			if !st.UpdateData(string(p.ItemID), func(d canvas.ItemData) canvas.ItemData {
				return canvas.RemoveChecklistItem(d, string(p.EntryID))
			}) {
				return notFound(string(p.ItemID)), nil
			}
			return resultOK, nil
		},
	})
}

func registerEntityActions(reg *Registry, st *store.Store, itemID Parameter) {
	reg.Register(&bound{
		schema: Schema{
			Name:        "setEntityField1",
			Description: "Set an entity card's text field.",
			Parameters: []Parameter{
				{Name: "value", Type: "string", Required: true, Description: "The new text."},
				itemID,
			},
		},
		run: setterAction(st, func(p scalarArgs) func(canvas.ItemData) canvas.ItemData {
			return func(d canvas.ItemData) canvas.ItemData { return canvas.SetEntityField1(d, p.Value) }
		}),
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setEntityField2",
			Description: "Set an entity card's select field.",
			Parameters: []Parameter{
				{Name: "value", Type: "string", Required: true, Description: "The selected option."},
				itemID,
			},
		},
		run: setterAction(st, func(p scalarArgs) func(canvas.ItemData) canvas.ItemData {
			return func(d canvas.ItemData) canvas.ItemData { return canvas.SetEntityField2(d, p.Value) }
		}),
	})

	tagParam := Parameter{Name: "tag", Type: "string", Required: true, Description: "The tag."}
	for _, spec := range []struct {
		name, desc string
		fn         func(canvas.ItemData, string) canvas.ItemData
	}{
		{"addEntityField3", "Select a tag on an entity card (no-op if already selected).", canvas.AddEntityTag},
		{"removeEntityField3", "Deselect a tag on an entity card.", canvas.RemoveEntityTag},
		{"toggleEntityField3", "Toggle a tag on an entity card.", canvas.ToggleEntityTag},
	} {
		fn := spec.fn
		reg.Register(&bound{
			schema: Schema{
				Name:        spec.name,
				Description: spec.desc,
				Parameters:  []Parameter{itemID, tagParam},
			},
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				var p struct {
					ItemID FlexString `json:"itemId"`
					Tag    string     `json:"tag"`
				}
				if err := json.Unmarshal(args, &p); err != nil {
					return "", err
				}
				if !st.UpdateData(string(p.ItemID), func(d canvas.ItemData) canvas.ItemData {
					return fn(d, p.Tag)
				}) {
					return notFound(string(p.ItemID)), nil
				}
				return resultOK, nil
			},
		})
	}
}

func registerNoteActions(reg *Registry, st *store.Store, itemID Parameter) {
	reg.Register(&bound{
		schema: Schema{
			Name:        "setNoteField1",
			Description: "Set a note card's body text.",
			Parameters: []Parameter{
				{Name: "value", Type: "string", Required: true, Description: "The new body."},
				itemID,
			},
		},
		run: setterAction(st, func(p scalarArgs) func(canvas.ItemData) canvas.ItemData {
			return func(d canvas.ItemData) canvas.ItemData { return canvas.SetNoteField1(d, p.Value) }
		}),
	})
}

func registerChartActions(reg *Registry, st *store.Store, itemID Parameter) {
	indexParam := Parameter{Name: "index", Type: "number", Required: true, Description: "0-based metric position."}

	reg.Register(&bound{
		schema: Schema{
			Name:        "addChartField1",
			Description: "Add a metric to a chart card. Returns the new metric id.",
			Parameters: []Parameter{
				itemID,
				{Name: "label", Type: "string", Required: false, Description: "Metric label."},
				{Name: "value", Type: "number", Required: false, Description: "Metric value 0-100, or empty for unset."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				ItemID FlexString      `json:"itemId"`
				Label  string          `json:"label"`
				Value  json.RawMessage `json:"value"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			value, _ := parseMetricArg(p.Value)
			id := st.AddMetric(string(p.ItemID), p.Label, value)
			if id == "" {
				return notFound(string(p.ItemID)), nil
			}
			return id, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setChartField1Label",
			Description: "Set the label of the metric at a position.",
			Parameters: []Parameter{
				itemID,
				indexParam,
				{Name: "label", Type: "string", Required: true, Description: "New label."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				ItemID FlexString `json:"itemId"`
				Index  FlexInt    `json:"index"`
				Label  string     `json:"label"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			if !p.Index.OK {
				return resultOK, nil
			}
			if !st.UpdateData(string(p.ItemID), func(d canvas.ItemData) canvas.ItemData {
				return canvas.SetChartMetricLabel(d, p.Index.N, p.Label)
			}) {
				return notFound(string(p.ItemID)), nil
			}
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setChartField1Value",
			Description: "Set the value of the metric at a position. Values are clamped to 0-100; empty clears the value.",
			Parameters: []Parameter{
				itemID,
				indexParam,
				{Name: "value", Type: "number", Required: true, Description: "New value 0-100, or empty."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				ItemID FlexString      `json:"itemId"`
				Index  FlexInt         `json:"index"`
				Value  json.RawMessage `json:"value"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			value, apply := parseMetricArg(p.Value)
			if !p.Index.OK || !apply {
				return resultOK, nil
			}
			if !st.UpdateData(string(p.ItemID), func(d canvas.ItemData) canvas.ItemData {
				return canvas.SetChartMetricValue(d, p.Index.N, value)
			}) {
				return notFound(string(p.ItemID)), nil
			}
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "removeChartField1",
			Description: "Remove the metric at a position.",
			Parameters:  []Parameter{itemID, indexParam},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				ItemID FlexString `json:"itemId"`
				Index  FlexInt    `json:"index"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			if !p.Index.OK {
				return resultOK, nil
			}
			if !st.UpdateData(string(p.ItemID), func(d canvas.ItemData) canvas.ItemData {
				return canvas.RemoveChartMetric(d, p.Index.N)
			}) {
				return notFound(string(p.ItemID)), nil
			}
			return resultOK, nil
		},
	})
}

func registerPlanActions(reg *Registry, st *store.Store) {
	reg.Register(&bound{
		schema: Schema{
			Name:        "setPlanSteps",
			Description: "Replace the plan overlay with a new step list.",
			Parameters: []Parameter{
				{Name: "steps", Type: "object[]", Required: true, Description: "Steps as {title, status?, note?}."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Steps []canvas.PlanStep `json:"steps"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			for i := range p.Steps {
				if p.Steps[i].Status == "" {
					p.Steps[i].Status = canvas.StepPending
				}
			}
			st.SetPlanSteps(p.Steps)
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "setPlanStatus",
			Description: "Transition the plan lifecycle (empty, in_progress, completed or failed). Transitions reset creation dedup.",
			Parameters: []Parameter{
				{Name: "status", Type: "string", Required: true, Description: "New plan status."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			status := canvas.PlanStatus(strings.TrimSpace(p.Status))
			switch status {
			case canvas.PlanNone, canvas.PlanInProgress, canvas.PlanCompleted, canvas.PlanFailed:
			default:
				return "", fmt.Errorf("invalid plan status: %q", p.Status)
			}
			st.SetPlanStatus(status)
			return resultOK, nil
		},
	})

	reg.Register(&bound{
		schema: Schema{
			Name:        "updatePlanStep",
			Description: "Update one plan step's status and optional note.",
			Parameters: []Parameter{
				{Name: "index", Type: "number", Required: true, Description: "0-based step position."},
				{Name: "status", Type: "string", Required: true, Description: "pending, in_progress, completed, blocked or failed."},
				{Name: "note", Type: "string", Required: false, Description: "Optional note."},
			},
		},
		run: func(_ context.Context, args json.RawMessage) (string, error) {
			var p struct {
				Index  FlexInt `json:"index"`
				Status string  `json:"status"`
				Note   string  `json:"note"`
			}
			if err := json.Unmarshal(args, &p); err != nil {
				return "", err
			}
			status := canvas.StepStatus(strings.TrimSpace(p.Status))
			switch status {
			case canvas.StepPending, canvas.StepInProgress, canvas.StepCompleted, canvas.StepBlocked, canvas.StepFailed:
			default:
				return "", fmt.Errorf("invalid step status: %q", p.Status)
			}
			if !p.Index.OK || !st.UpdatePlanStep(p.Index.N, status, p.Note) {
				return "not_found:step:" + strconv.Itoa(p.Index.N), nil
			}
			return resultOK, nil
		},
	})
}

// scalarArgs is the shared argument shape of single-value setters.
type scalarArgs struct {
	Value  string     `json:"value"`
	ItemID FlexString `json:"itemId"`
}

func setterAction(st *store.Store, mk func(scalarArgs) func(canvas.ItemData) canvas.ItemData) func(context.Context, json.RawMessage) (string, error) {
	return func(_ context.Context, args json.RawMessage) (string, error) {
		var p scalarArgs
		if err := json.Unmarshal(args, &p); err != nil {
			return "", err
		}
		if !st.UpdateData(string(p.ItemID), mk(p)) {
			return notFound(string(p.ItemID)), nil
		}
		return resultOK, nil
	}
}

// parseMetricArg interprets a raw metric value argument. The second
// return is false when the input is non-numeric garbage, in which case
// the payload must stay unchanged; an explicit empty string is the
// valid unset state.
func parseMetricArg(raw json.RawMessage) (canvas.MetricValue, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == `""` {
		return canvas.UnsetMetric(), s == `""`
	}
	trimmed := strings.TrimSpace(strings.Trim(s, `"`))
	if n, err := strconv.Atoi(trimmed); err == nil {
		return canvas.Metric(n), true
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return canvas.Metric(int(f)), true
	}
	return canvas.UnsetMetric(), false
}
