// Package canvas defines the shared canvas document: the single JSON
// state synchronized between the human UI and the agent runtime. The
// wire shape of every struct here is a compatibility contract: field
// names must not change.
package canvas

import "fmt"

// PlanStatus tracks the lifecycle of the multi-step plan overlay.
type PlanStatus string

const (
	PlanNone       PlanStatus = ""
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanFailed     PlanStatus = "failed"
)

// StepStatus is the lifecycle state of a single plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepBlocked    StepStatus = "blocked"
	StepFailed     StepStatus = "failed"
)

// PlanStep is one entry in the plan-tracking overlay.
type PlanStep struct {
	Title  string     `json:"title"`
	Status StepStatus `json:"status"`
	Note   string     `json:"note,omitempty"`
}

// Canvas is the root document. It is the sole unit of persistence and
// replication; items are never persisted independently.
type Canvas struct {
	Items             []Item     `json:"items"`
	GlobalTitle       string     `json:"globalTitle"`
	GlobalDescription string     `json:"globalDescription"`
	ItemsCreated      int        `json:"itemsCreated"`
	PlanSteps         []PlanStep `json:"planSteps"`
	CurrentStepIndex  int        `json:"currentStepIndex"`
	PlanStatus        PlanStatus `json:"planStatus"`
	LastAction        string     `json:"lastAction"`
}

// New returns an empty canvas. CurrentStepIndex is -1 while no plan is
// active.
func New() Canvas {
	return Canvas{
		Items:            []Item{},
		PlanSteps:        []PlanStep{},
		CurrentStepIndex: -1,
	}
}

// Clone returns a deep copy of the canvas. Callers receive snapshots
// that share no references with the live document.
func (c Canvas) Clone() Canvas {
	out := c
	out.Items = make([]Item, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it.Clone()
	}
	out.PlanSteps = append([]PlanStep(nil), c.PlanSteps...)
	if out.PlanSteps == nil {
		out.PlanSteps = []PlanStep{}
	}
	return out
}

// FindItem returns a pointer into Items for the given id, or nil. The
// value receiver shares the slice header, so the pointer addresses the
// receiver's backing array and the method chains off snapshot values.
func (c Canvas) FindItem(id string) *Item {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i]
		}
	}
	return nil
}

// NextItemNumber computes the sequence number for the next item id:
// max(itemsCreated, highest numeric id already present) + 1. The dual
// source keeps ids collision-free even when items were inserted out of
// band and the counter diverged from the list.
func (c *Canvas) NextItemNumber() int {
	next := c.ItemsCreated
	for i := range c.Items {
		if n, ok := parseItemNumber(c.Items[i].ID); ok && n > next {
			next = n
		}
	}
	return next + 1
}

// FormatItemID renders an item sequence number as the canonical
// 4-digit zero-padded id.
func FormatItemID(n int) string {
	return fmt.Sprintf("%04d", n)
}

func parseItemNumber(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	n := 0
	for _, r := range id {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
