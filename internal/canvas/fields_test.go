package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProjectField1_And2(t *testing.T) {
	data, err := DefaultData(TypeProject)
	require.NoError(t, err)

	out := SetProjectField1(data, "a summary")
	out = SetProjectField2(out, "Option B")

	d := out.(ProjectData)
	assert.Equal(t, "a summary", d.Field1)
	assert.Equal(t, "Option B", d.Field2)
	assert.Empty(t, data.(ProjectData).Field1)
}

func TestSetProjectField3_Normalizes(t *testing.T) {
	data, err := DefaultData(TypeProject)
	require.NoError(t, err)

	out := SetProjectField3(data, "2025-3-1")
	assert.Equal(t, "2025-03-01", out.(ProjectData).Field3)

	out = SetProjectField3(out, "Mar 5, 2025")
	assert.Equal(t, "2025-03-05", out.(ProjectData).Field3)
}

func TestSetProjectField3_UnparseableNoOp(t *testing.T) {
	data, err := DefaultData(TypeProject)
	require.NoError(t, err)
	data = SetProjectField3(data, "2025-01-15")

	out := SetProjectField3(data, "not-a-date")
	assert.Equal(t, "2025-01-15", out.(ProjectData).Field3)

	out = SetProjectField3(data, "")
	assert.Equal(t, "2025-01-15", out.(ProjectData).Field3)
}

func TestScalarSetters_WrongVariant(t *testing.T) {
	note, err := DefaultData(TypeNote)
	require.NoError(t, err)
	entity, err := DefaultData(TypeEntity)
	require.NoError(t, err)

	assert.Equal(t, note, SetProjectField1(note, "x"))
	assert.Equal(t, note, SetEntityField1(note, "x"))
	assert.Equal(t, entity, SetNoteField1(entity, "x"))
}

func TestSetEntityFields(t *testing.T) {
	data, err := DefaultData(TypeEntity)
	require.NoError(t, err)

	out := SetEntityField1(data, "desc")
	out = SetEntityField2(out, "Option C")

	d := out.(EntityData)
	assert.Equal(t, "desc", d.Field1)
	assert.Equal(t, "Option C", d.Field2)
}

func TestSetNoteField1(t *testing.T) {
	data, err := DefaultData(TypeNote)
	require.NoError(t, err)

	out := SetNoteField1(data, "body text")
	assert.Equal(t, "body text", out.(NoteData).Field1)
	assert.Empty(t, data.(NoteData).Field1)
}
