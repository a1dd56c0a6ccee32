package canvas

import (
	"fmt"
	"strconv"
	"strings"
)

// Checklist mutators operate on ProjectData.Field4. Every mutator is
// pure: the input payload is never modified, a new payload is returned.
// A payload of any other variant is returned unchanged; addressing the
// wrong card type is a deliberate no-op, not an error, because the
// remote caller cannot be corrected mid-call.

// AddChecklistItem appends a new unchecked entry and returns the new
// payload together with the created entry id ("" when the payload is
// not a project).
func AddChecklistItem(data ItemData, text string) (ItemData, string) {
	d, ok := data.(ProjectData)
	if !ok {
		return data, ""
	}
	d = d.Clone().(ProjectData)
	d.Field4ID++
	id := fmt.Sprintf("%03d", d.Field4ID)
	d.Field4 = append(d.Field4, ChecklistItem{ID: id, Text: text})
	return d, id
}

// UpdateChecklistItem sets the text and/or done flag of one entry.
// Nil fields are left untouched. The entry reference is resolved per
// ResolveChecklistRef; an unresolvable reference is a no-op.
func UpdateChecklistItem(data ItemData, ref string, text *string, done *bool) ItemData {
	d, ok := data.(ProjectData)
	if !ok {
		return data
	}
	idx := ResolveChecklistRef(d.Field4, ref)
	if idx < 0 {
		return data
	}
	d = d.Clone().(ProjectData)
	if text != nil {
		d.Field4[idx].Text = *text
	}
	if done != nil {
		d.Field4[idx].Done = *done
	}
	return d
}

// RemoveChecklistItem filters out the entry with the given id. Absent
// ids are a no-op.
func RemoveChecklistItem(data ItemData, id string) ItemData {
	d, ok := data.(ProjectData)
	if !ok {
		return data
	}
	out := make([]ChecklistItem, 0, len(d.Field4))
	for _, c := range d.Field4 {
		if c.ID != id {
			out = append(out, c)
		}
	}
	if len(out) == len(d.Field4) {
		return data
	}
	d.Field4 = out
	return d
}

// ResolveChecklistRef resolves a caller-supplied entry reference to a
// list index, or -1. The reference may be the literal entry id, or a
// plain integer used as a 0-based then 1-based index, in that order.
// Remote callers routinely send positional indices instead of the
// canonical ids, so both schemes are accepted.
func ResolveChecklistRef(list []ChecklistItem, ref string) int {
	ref = strings.TrimSpace(ref)
	for i := range list {
		if list[i].ID == ref {
			return i
		}
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return -1
	}
	if n >= 0 && n < len(list) {
		return n
	}
	if n >= 1 && n <= len(list) {
		return n - 1
	}
	return -1
}
