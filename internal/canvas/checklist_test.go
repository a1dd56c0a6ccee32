package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectWithEntries(t *testing.T, texts ...string) ProjectData {
	t.Helper()
	data, err := DefaultData(TypeProject)
	require.NoError(t, err)
	for _, text := range texts {
		data, _ = AddChecklistItem(data, text)
	}
	return data.(ProjectData)
}

func TestAddChecklistItem_SequentialIDs(t *testing.T) {
	d := projectWithEntries(t, "a", "b", "c")

	require.Len(t, d.Field4, 3)
	assert.Equal(t, "001", d.Field4[0].ID)
	assert.Equal(t, "002", d.Field4[1].ID)
	assert.Equal(t, "003", d.Field4[2].ID)
	assert.Equal(t, 3, d.Field4ID)
}

func TestAddChecklistItem_IDsNotReusedAfterRemove(t *testing.T) {
	d := projectWithEntries(t, "a", "b")
	d = RemoveChecklistItem(d, "002").(ProjectData)

	out, id := AddChecklistItem(d, "c")
	assert.Equal(t, "003", id)
	assert.Equal(t, 3, out.(ProjectData).Field4ID)
}

func TestAddChecklistItem_PureInput(t *testing.T) {
	d := projectWithEntries(t, "a")
	before := len(d.Field4)

	AddChecklistItem(d, "b")
	assert.Len(t, d.Field4, before)
}

func TestAddChecklistItem_WrongVariant(t *testing.T) {
	data, err := DefaultData(TypeNote)
	require.NoError(t, err)

	out, id := AddChecklistItem(data, "x")
	assert.Equal(t, data, out)
	assert.Empty(t, id)
}

func TestUpdateChecklistItem_ByID(t *testing.T) {
	d := projectWithEntries(t, "a", "b")

	text := "renamed"
	done := true
	out := UpdateChecklistItem(d, "002", &text, &done).(ProjectData)

	assert.Equal(t, "renamed", out.Field4[1].Text)
	assert.True(t, out.Field4[1].Done)
	// untouched sibling
	assert.Equal(t, "a", out.Field4[0].Text)
	// input unchanged
	assert.Equal(t, "b", d.Field4[1].Text)
}

func TestUpdateChecklistItem_NilFieldsUntouched(t *testing.T) {
	d := projectWithEntries(t, "a")
	done := true
	out := UpdateChecklistItem(d, "001", nil, &done).(ProjectData)

	assert.Equal(t, "a", out.Field4[0].Text)
	assert.True(t, out.Field4[0].Done)
}

func TestUpdateChecklistItem_UnknownRef(t *testing.T) {
	d := projectWithEntries(t, "a")
	text := "x"
	out := UpdateChecklistItem(d, "999", &text, nil)
	assert.Equal(t, ItemData(d), out)
}

func TestRemoveChecklistItem(t *testing.T) {
	d := projectWithEntries(t, "a", "b", "c")
	out := RemoveChecklistItem(d, "002").(ProjectData)

	require.Len(t, out.Field4, 2)
	assert.Equal(t, "001", out.Field4[0].ID)
	assert.Equal(t, "003", out.Field4[1].ID)
	// absent id is a no-op
	same := RemoveChecklistItem(out, "002")
	assert.Equal(t, ItemData(out), same)
}

func TestResolveChecklistRef_IDBeatsIndex(t *testing.T) {
	// Entry ids are zero-padded, so "001" must match the id of the
	// first entry, never be read as an index.
	list := []ChecklistItem{{ID: "001"}, {ID: "002"}, {ID: "003"}}
	assert.Equal(t, 0, ResolveChecklistRef(list, "001"))
	assert.Equal(t, 2, ResolveChecklistRef(list, "003"))
}

func TestResolveChecklistRef_ZeroBasedIndex(t *testing.T) {
	list := []ChecklistItem{{ID: "007"}, {ID: "008"}}
	assert.Equal(t, 0, ResolveChecklistRef(list, "0"))
	assert.Equal(t, 1, ResolveChecklistRef(list, "1"))
}

func TestResolveChecklistRef_OneBasedFallback(t *testing.T) {
	// "2" in a 2-entry list is out of range 0-based, so it falls back
	// to 1-based and selects the second entry.
	list := []ChecklistItem{{ID: "007"}, {ID: "008"}}
	assert.Equal(t, 1, ResolveChecklistRef(list, "2"))
}

func TestResolveChecklistRef_Unresolvable(t *testing.T) {
	list := []ChecklistItem{{ID: "001"}}
	assert.Equal(t, -1, ResolveChecklistRef(list, "5"))
	assert.Equal(t, -1, ResolveChecklistRef(list, "abc"))
	assert.Equal(t, -1, ResolveChecklistRef(nil, "0"))
}
