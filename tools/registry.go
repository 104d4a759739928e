// Package tools holds the registry of remote-invocable tools and their
// implementations.
package tools

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownTool is returned when an invocation names a tool that is
	// not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when an invocation's argument
	// mapping does not match the tool's parameters.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Param describes a single tool parameter.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Descriptor describes a tool to remote callers.
type Descriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters,omitempty"`
}

// Handler implements a tool. Args is the decoded argument mapping from
// the invocation frame.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type tool struct {
	desc    Descriptor
	handler Handler
}

// Registry maps tool names to handlers. It is populated once at startup
// and read-only afterwards; Invoke and List are safe for concurrent use
// once registration is done.
type Registry struct {
	tools map[string]tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]tool{}}
}

// Register adds a tool. Registering a duplicate name panics, since the
// registry is assembled from static descriptors at startup.
func (r *Registry) Register(desc Descriptor, h Handler) {
	if _, ok := r.tools[desc.Name]; ok {
		panic(fmt.Sprintf("tool %q registered twice", desc.Name))
	}
	r.tools[desc.Name] = tool{desc: desc, handler: h}
	r.order = append(r.order, desc.Name)
}

// List returns descriptors for all registered tools, in registration
// order.
func (r *Registry) List() []Descriptor {
	descs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		descs = append(descs, r.tools[name].desc)
	}
	return descs
}

// Invoke dispatches to the named tool's handler.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t.handler(ctx, args)
}
