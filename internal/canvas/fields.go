package canvas

// Scalar field setters. Like every mutator in this package they are
// pure and return the input unchanged when the payload variant does
// not match.

// SetProjectField1 sets the project text field.
func SetProjectField1(data ItemData, value string) ItemData {
	d, ok := data.(ProjectData)
	if !ok {
		return data
	}
	d = d.Clone().(ProjectData)
	d.Field1 = value
	return d
}

// SetProjectField2 sets the project select field.
func SetProjectField2(data ItemData, value string) ItemData {
	d, ok := data.(ProjectData)
	if !ok {
		return data
	}
	d = d.Clone().(ProjectData)
	d.Field2 = value
	return d
}

// SetProjectField3 normalizes the input to a YYYY-MM-DD date and sets
// it. Unparseable input leaves the payload unchanged; the remote
// caller may pass colloquial or malformed text and the contract is
// best-effort normalize, else ignore.
func SetProjectField3(data ItemData, value string) ItemData {
	d, ok := data.(ProjectData)
	if !ok {
		return data
	}
	normalized, ok := NormalizeDate(value)
	if !ok {
		return data
	}
	d = d.Clone().(ProjectData)
	d.Field3 = normalized
	return d
}

// SetEntityField1 sets the entity text field.
func SetEntityField1(data ItemData, value string) ItemData {
	d, ok := data.(EntityData)
	if !ok {
		return data
	}
	d = d.Clone().(EntityData)
	d.Field1 = value
	return d
}

// SetEntityField2 sets the entity select field.
func SetEntityField2(data ItemData, value string) ItemData {
	d, ok := data.(EntityData)
	if !ok {
		return data
	}
	d = d.Clone().(EntityData)
	d.Field2 = value
	return d
}

// SetNoteField1 sets the note body.
func SetNoteField1(data ItemData, value string) ItemData {
	d, ok := data.(NoteData)
	if !ok {
		return data
	}
	d.Field1 = value
	return d
}
