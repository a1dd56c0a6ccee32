// Package actions defines the action surface: the closed, named set of
// operations an external actor (the human UI or the agent runtime) may
// invoke against the canvas. Every capability is expressed as an
// Action with a declared parameter schema.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownAction is returned when an action name has no registration.
var ErrUnknownAction = errors.New("unknown action")

// Parameter describes one argument of an action, as published to the
// agent runtime.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Schema describes an action's callable interface.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Action is the interface all canvas actions implement.
type Action interface {
	// Schema returns the action's name, description and parameters.
	Schema() Schema

	// Execute runs the action with the given JSON arguments and
	// returns an outcome tag (created id, "deleted:<id>", "ok", ...).
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry holds all registered actions and provides lookup.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action. Panics on duplicate name: the surface is
// fixed at startup and a duplicate is a programming error.
func (r *Registry) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Schema().Name
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("action already registered: %s", name))
	}
	r.actions[name] = a
}

// Get returns an action by name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Schemas returns all action schemas sorted by name.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]Schema, 0, len(r.actions))
	for _, a := range r.actions {
		schemas = append(schemas, a.Schema())
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

// Execute runs an action by name with JSON arguments.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	a, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return a.Execute(ctx, args)
}
