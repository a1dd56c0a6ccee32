package canvas

import (
	"encoding/json"
	"fmt"
)

// ItemType is the closed set of card type tags.
type ItemType string

const (
	TypeProject ItemType = "project"
	TypeEntity  ItemType = "entity"
	TypeNote    ItemType = "note"
	TypeChart   ItemType = "chart"
)

// Types lists every valid item type.
func Types() []ItemType {
	return []ItemType{TypeProject, TypeEntity, TypeNote, TypeChart}
}

// Valid reports whether t is a member of the closed type enum.
func (t ItemType) Valid() bool {
	switch t {
	case TypeProject, TypeEntity, TypeNote, TypeChart:
		return true
	}
	return false
}

// InvalidTypeError is returned when an item type tag is outside the
// closed enum. It is the only hard failure in the state model; all
// other malformed input degrades to a silent no-op.
type InvalidTypeError struct {
	Type string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid item type: %q", e.Type)
}

// Field2Options is the fixed select catalog shared by project and
// entity cards. The empty string is the unselected state.
var Field2Options = []string{"Option A", "Option B", "Option C"}

// DefaultTagCatalog is the built-in catalog of selectable entity tags.
// Deployments can override it through the catalog config file.
var DefaultTagCatalog = []string{"Design", "Engineering", "Research", "Marketing", "Operations"}

// ItemData is the payload of one card. The concrete type is determined
// by the owning item's type tag.
type ItemData interface {
	// Kind returns the type tag this payload belongs to.
	Kind() ItemType

	// Clone returns a deep copy sharing no references with the
	// receiver.
	Clone() ItemData
}

// ChecklistItem is one entry of a project card's checklist. Proposed
// marks AI-suggested entries awaiting confirmation; it is display-only.
type ChecklistItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Done     bool   `json:"done"`
	Proposed bool   `json:"proposed"`
}

// ChartMetric is one labeled value of a chart card. Value is an
// integer in [0,100] or unset.
type ChartMetric struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Value MetricValue `json:"value"`
}

// ProjectData is the payload of a project card.
type ProjectData struct {
	Field1   string          `json:"field1"`
	Field2   string          `json:"field2"`
	Field3   string          `json:"field3"` // YYYY-MM-DD or ""
	Field4   []ChecklistItem `json:"field4"`
	Field4ID int             `json:"field4_id"`
}

func (d ProjectData) Kind() ItemType { return TypeProject }

func (d ProjectData) Clone() ItemData {
	d.Field4 = append([]ChecklistItem(nil), d.Field4...)
	if d.Field4 == nil {
		d.Field4 = []ChecklistItem{}
	}
	return d
}

// EntityData is the payload of an entity card. Field3 is the set of
// selected tags (ordered, no duplicates), Field3Options the catalog.
type EntityData struct {
	Field1        string   `json:"field1"`
	Field2        string   `json:"field2"`
	Field3        []string `json:"field3"`
	Field3Options []string `json:"field3_options"`
}

func (d EntityData) Kind() ItemType { return TypeEntity }

func (d EntityData) Clone() ItemData {
	d.Field3 = append([]string(nil), d.Field3...)
	if d.Field3 == nil {
		d.Field3 = []string{}
	}
	d.Field3Options = append([]string(nil), d.Field3Options...)
	return d
}

// NoteData is the payload of a note card.
type NoteData struct {
	Field1 string `json:"field1"`
}

func (d NoteData) Kind() ItemType { return TypeNote }

func (d NoteData) Clone() ItemData { return d }

// ChartData is the payload of a chart card.
type ChartData struct {
	Field1   []ChartMetric `json:"field1"`
	Field1ID int           `json:"field1_id"`
}

func (d ChartData) Kind() ItemType { return TypeChart }

func (d ChartData) Clone() ItemData {
	d.Field1 = append([]ChartMetric(nil), d.Field1...)
	if d.Field1 == nil {
		d.Field1 = []ChartMetric{}
	}
	return d
}

// DefaultData returns the fully populated default payload for a type
// tag. Unknown tags fail with InvalidTypeError; callers are expected to
// validate against the enum first.
func DefaultData(t ItemType) (ItemData, error) {
	switch t {
	case TypeProject:
		return ProjectData{Field4: []ChecklistItem{}}, nil
	case TypeEntity:
		return EntityData{
			Field3:        []string{},
			Field3Options: append([]string(nil), DefaultTagCatalog...),
		}, nil
	case TypeNote:
		return NoteData{}, nil
	case TypeChart:
		return ChartData{Field1: []ChartMetric{}}, nil
	}
	return nil, &InvalidTypeError{Type: string(t)}
}

// Item is one card on the canvas.
type Item struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Name     string   `json:"name"`
	Subtitle string   `json:"subtitle"`
	Data     ItemData `json:"data"`
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	if it.Data != nil {
		it.Data = it.Data.Clone()
	}
	return it
}

// NewItem constructs a fully populated item with default payload.
// The id is minted by the caller (see Canvas.NextItemNumber).
func NewItem(id string, t ItemType, name string) (Item, error) {
	data, err := DefaultData(t)
	if err != nil {
		return Item{}, err
	}
	return Item{ID: id, Type: t, Name: name, Data: data}, nil
}

// UnmarshalJSON decodes the payload into the concrete variant selected
// by the type tag.
func (it *Item) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Type     ItemType        `json:"type"`
		Name     string          `json:"name"`
		Subtitle string          `json:"subtitle"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	it.ID = raw.ID
	it.Type = raw.Type
	it.Name = raw.Name
	it.Subtitle = raw.Subtitle
	it.Data = nil

	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil
	}
	switch raw.Type {
	case TypeProject:
		var d ProjectData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		it.Data = d
	case TypeEntity:
		var d EntityData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		it.Data = d
	case TypeNote:
		var d NoteData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		it.Data = d
	case TypeChart:
		var d ChartData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		it.Data = d
	default:
		return &InvalidTypeError{Type: string(raw.Type)}
	}
	return nil
}
