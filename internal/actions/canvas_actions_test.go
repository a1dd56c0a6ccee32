package actions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvashq/canvas-agent/internal/canvas"
	"github.com/canvashq/canvas-agent/internal/dedupe"
	"github.com/canvashq/canvas-agent/internal/store"
)

func newSurface(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	guard := dedupe.New(zerolog.Nop(), dedupe.WithWindow(time.Millisecond))
	st := store.New(store.Config{}, guard, zerolog.Nop())
	reg := NewRegistry()
	RegisterCanvasActions(reg, st)
	return reg, st
}

func invoke(t *testing.T, reg *Registry, name, args string) string {
	t.Helper()
	result, err := reg.Execute(context.Background(), name, json.RawMessage(args))
	require.NoError(t, err, name)
	return result
}

func TestSurface_AllActionsPublished(t *testing.T) {
	reg, _ := newSurface(t)

	names := make(map[string]bool)
	for _, s := range reg.Schemas() {
		names[s.Name] = true
	}

	for _, want := range []string{
		"setGlobalTitle", "setGlobalDescription",
		"createItem", "deleteItem", "setItemName", "setItemSubtitle",
		"setProjectField1", "setProjectField2", "setProjectField3",
		"addChecklistItem", "setChecklistItem", "removeChecklistItem",
		"setEntityField1", "setEntityField2",
		"addEntityField3", "removeEntityField3", "toggleEntityField3",
		"setNoteField1",
		"addChartField1", "setChartField1Label", "setChartField1Value", "removeChartField1",
		"setPlanSteps", "setPlanStatus", "updatePlanStep",
	} {
		assert.True(t, names[want], "missing action %s", want)
	}
}

func TestGlobalFieldActions(t *testing.T) {
	reg, st := newSurface(t)

	assert.Equal(t, "ok", invoke(t, reg, "setGlobalTitle", `{"title":"Board"}`))
	assert.Equal(t, "ok", invoke(t, reg, "setGlobalDescription", `{"description":"All the work"}`))

	snap := st.Snapshot()
	assert.Equal(t, "Board", snap.GlobalTitle)
	assert.Equal(t, "All the work", snap.GlobalDescription)
}

func TestCreateItem_TypeCoercion(t *testing.T) {
	reg, st := newSurface(t)

	id := invoke(t, reg, "createItem", `{"type":" Project ","name":"Alpha"}`)
	assert.Equal(t, "0001", id)
	assert.Equal(t, canvas.TypeProject, st.Snapshot().Items[0].Type)
}

func TestCreateItem_InvalidTypeFails(t *testing.T) {
	reg, _ := newSurface(t)

	_, err := reg.Execute(context.Background(), "createItem", json.RawMessage(`{"type":"widget"}`))
	var typeErr *canvas.InvalidTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestDeleteItemAction(t *testing.T) {
	reg, _ := newSurface(t)

	id := invoke(t, reg, "createItem", `{"type":"note","name":"n"}`)
	assert.Equal(t, "deleted:"+id, invoke(t, reg, "deleteItem", `{"itemId":"`+id+`"}`))
	assert.Equal(t, "not_found:0042", invoke(t, reg, "deleteItem", `{"itemId":"0042"}`))
}

func TestSetItemName_NumericItemID(t *testing.T) {
	reg, _ := newSurface(t)

	// ids arriving as bare numbers coerce cleanly instead of failing
	// the call; an id that matches nothing reports not_found
	assert.Equal(t, "not_found:7", invoke(t, reg, "setItemName", `{"itemId":7,"name":"x"}`))
}

func TestProjectDateAction_AcceptsValueAlias(t *testing.T) {
	reg, st := newSurface(t)
	id := invoke(t, reg, "createItem", `{"type":"project","name":"Alpha"}`)

	invoke(t, reg, "setProjectField3", `{"itemId":"`+id+`","date":"2025-3-1"}`)
	assert.Equal(t, "2025-03-01", projectData(t, st, id).Field3)

	invoke(t, reg, "setProjectField3", `{"itemId":"`+id+`","value":"2025/04/02"}`)
	assert.Equal(t, "2025-04-02", projectData(t, st, id).Field3)

	// unparseable input leaves the date alone
	invoke(t, reg, "setProjectField3", `{"itemId":"`+id+`","date":"soon"}`)
	assert.Equal(t, "2025-04-02", projectData(t, st, id).Field3)
}

func TestChecklistActions(t *testing.T) {
	reg, st := newSurface(t)
	id := invoke(t, reg, "createItem", `{"type":"project","name":"Alpha"}`)

	e1 := invoke(t, reg, "addChecklistItem", `{"itemId":"`+id+`","text":"first"}`)
	assert.Equal(t, "001", e1)
	time.Sleep(2 * time.Millisecond) // past the test throttle window
	e2 := invoke(t, reg, "addChecklistItem", `{"itemId":"`+id+`","text":"second"}`)
	assert.Equal(t, "002", e2)

	// update by id
	invoke(t, reg, "setChecklistItem", `{"itemId":"`+id+`","checklistItemId":"002","done":true}`)
	// update by numeric 0-based index
	invoke(t, reg, "setChecklistItem", `{"itemId":"`+id+`","checklistItemId":0,"text":"renamed"}`)

	d := projectData(t, st, id)
	assert.True(t, d.Field4[1].Done)
	assert.Equal(t, "renamed", d.Field4[0].Text)

	invoke(t, reg, "removeChecklistItem", `{"itemId":"`+id+`","checklistItemId":"001"}`)
	d = projectData(t, st, id)
	require.Len(t, d.Field4, 1)
	assert.Equal(t, "002", d.Field4[0].ID)
}

func TestChecklistAction_WrongItemType(t *testing.T) {
	reg, _ := newSurface(t)
	id := invoke(t, reg, "createItem", `{"type":"note","name":"n"}`)
	assert.Equal(t, "not_found:"+id, invoke(t, reg, "addChecklistItem", `{"itemId":"`+id+`","text":"x"}`))
}

func TestEntityTagActions(t *testing.T) {
	reg, st := newSurface(t)
	id := invoke(t, reg, "createItem", `{"type":"entity","name":"Acme"}`)

	invoke(t, reg, "addEntityField3", `{"itemId":"`+id+`","tag":"Design"}`)
	invoke(t, reg, "toggleEntityField3", `{"itemId":"`+id+`","tag":"Research"}`)
	invoke(t, reg, "toggleEntityField3", `{"itemId":"`+id+`","tag":"Design"}`)

	d := st.Snapshot().FindItem(id).Data.(canvas.EntityData)
	assert.Equal(t, []string{"Research"}, d.Field3)

	invoke(t, reg, "removeEntityField3", `{"itemId":"`+id+`","tag":"Research"}`)
	d = st.Snapshot().FindItem(id).Data.(canvas.EntityData)
	assert.Empty(t, d.Field3)
}

func TestChartActions(t *testing.T) {
	reg, st := newSurface(t)
	id := invoke(t, reg, "createItem", `{"type":"chart","name":"Graph"}`)

	m1 := invoke(t, reg, "addChartField1", `{"itemId":"`+id+`","label":"speed","value":70}`)
	assert.Equal(t, "001", m1)
	time.Sleep(2 * time.Millisecond)
	// value as string, above the clamp ceiling
	m2 := invoke(t, reg, "addChartField1", `{"itemId":"`+id+`","label":"quality","value":"250"}`)
	assert.Equal(t, "002", m2)

	d := chartData(t, st, id)
	assert.Equal(t, 70, d.Field1[0].Value.Int())
	assert.Equal(t, 100, d.Field1[1].Value.Int())

	invoke(t, reg, "setChartField1Label", `{"itemId":"`+id+`","index":1,"label":"refinement"}`)
	invoke(t, reg, "setChartField1Value", `{"itemId":"`+id+`","index":0,"value":""}`)

	d = chartData(t, st, id)
	assert.Equal(t, "refinement", d.Field1[1].Label)
	assert.False(t, d.Field1[0].Value.IsSet())

	// garbage value must not clear anything
	invoke(t, reg, "setChartField1Value", `{"itemId":"`+id+`","index":1,"value":"lots"}`)
	d = chartData(t, st, id)
	assert.Equal(t, 100, d.Field1[1].Value.Int())

	invoke(t, reg, "removeChartField1", `{"itemId":"`+id+`","index":0}`)
	d = chartData(t, st, id)
	require.Len(t, d.Field1, 1)
	assert.Equal(t, "002", d.Field1[0].ID)
}

func TestPlanActions(t *testing.T) {
	reg, st := newSurface(t)

	invoke(t, reg, "setPlanSteps", `{"steps":[{"title":"first"},{"title":"second","status":"in_progress"}]}`)
	snap := st.Snapshot()
	require.Len(t, snap.PlanSteps, 2)
	assert.Equal(t, canvas.StepPending, snap.PlanSteps[0].Status)
	assert.Equal(t, canvas.StepInProgress, snap.PlanSteps[1].Status)
	assert.Equal(t, 0, snap.CurrentStepIndex)

	invoke(t, reg, "setPlanStatus", `{"status":"in_progress"}`)
	assert.Equal(t, canvas.PlanInProgress, st.Snapshot().PlanStatus)

	invoke(t, reg, "updatePlanStep", `{"index":0,"status":"completed","note":"done"}`)
	snap = st.Snapshot()
	assert.Equal(t, canvas.StepCompleted, snap.PlanSteps[0].Status)
	assert.Equal(t, 1, snap.CurrentStepIndex)

	assert.Equal(t, "not_found:step:9", invoke(t, reg, "updatePlanStep", `{"index":9,"status":"completed"}`))
}

func TestPlanActions_InvalidEnums(t *testing.T) {
	reg, _ := newSurface(t)

	_, err := reg.Execute(context.Background(), "setPlanStatus", json.RawMessage(`{"status":"paused"}`))
	require.Error(t, err)

	_, err = reg.Execute(context.Background(), "updatePlanStep", json.RawMessage(`{"index":0,"status":"skipped"}`))
	require.Error(t, err)
}

func TestSetterActions_MissingItem(t *testing.T) {
	reg, _ := newSurface(t)

	assert.Equal(t, "not_found:0042", invoke(t, reg, "setProjectField1", `{"itemId":"0042","value":"x"}`))
	assert.Equal(t, "not_found:0042", invoke(t, reg, "setNoteField1", `{"itemId":"0042","value":"x"}`))
}

func TestSetterActions_WrongVariantSilent(t *testing.T) {
	reg, st := newSurface(t)
	id := invoke(t, reg, "createItem", `{"type":"note","name":"n"}`)

	// addressing a note with a project setter succeeds and changes nothing
	assert.Equal(t, "ok", invoke(t, reg, "setProjectField1", `{"itemId":"`+id+`","value":"x"}`))
	assert.Empty(t, st.Snapshot().FindItem(id).Data.(canvas.NoteData).Field1)
}

func projectData(t *testing.T, st *store.Store, id string) canvas.ProjectData {
	t.Helper()
	it := st.Snapshot().FindItem(id)
	require.NotNil(t, it)
	return it.Data.(canvas.ProjectData)
}

func chartData(t *testing.T, st *store.Store, id string) canvas.ChartData {
	t.Helper()
	it := st.Snapshot().FindItem(id)
	require.NotNil(t, it)
	return it.Data.(canvas.ChartData)
}
