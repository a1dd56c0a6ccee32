package canvas

import "strings"

// Entity tag mutators operate on EntityData.Field3 with set semantics:
// no duplicates, insertion order preserved. The Field3Options catalog
// is fixed at creation time and never mutated here.

// ToggleEntityTag adds the tag if absent and removes it if present.
func ToggleEntityTag(data ItemData, tag string) ItemData {
	d, ok := data.(EntityData)
	if !ok {
		return data
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return data
	}
	if containsTag(d.Field3, tag) {
		return RemoveEntityTag(data, tag)
	}
	return AddEntityTag(data, tag)
}

// AddEntityTag appends the tag unless it is already selected.
func AddEntityTag(data ItemData, tag string) ItemData {
	d, ok := data.(EntityData)
	if !ok {
		return data
	}
	tag = strings.TrimSpace(tag)
	if tag == "" || containsTag(d.Field3, tag) {
		return data
	}
	d = d.Clone().(EntityData)
	d.Field3 = append(d.Field3, tag)
	return d
}

// RemoveEntityTag removes the tag if selected.
func RemoveEntityTag(data ItemData, tag string) ItemData {
	d, ok := data.(EntityData)
	if !ok {
		return data
	}
	tag = strings.TrimSpace(tag)
	if !containsTag(d.Field3, tag) {
		return data
	}
	d = d.Clone().(EntityData)
	out := d.Field3[:0]
	for _, t := range d.Field3 {
		if t != tag {
			out = append(out, t)
		}
	}
	d.Field3 = out
	return d
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
