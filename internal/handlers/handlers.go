// Package handlers holds the named Go functions that perform transforms.
// A schema refers to a handler by name through a transform's runner.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/vk/gridforge/internal/model"
)

// Request describes one transform run.
type Request struct {
	// Transform is the name of the transform being run.
	Transform string
	Input     model.File
	// Rel is the path of Input relative to the directory it is laid out
	// from. Handlers usually write their output to OutDir/Rel.
	Rel    string
	OutDir string
	// Dependencies is the resolved dependency blob of the transform.
	Dependencies any
}

// Func performs a transform and returns the path of the file it wrote.
type Func func(ctx context.Context, req *Request) (string, error)

// Handlers holds all the registered handlers
type Handlers struct {
	all map[string]Func
}

// New creates and initializes a new Handlers instance.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]Func),
	}
}

// RegisterHandler registers a Go function under name.
func (h *Handlers) RegisterHandler(name string, fn Func) {
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("transform handler with name '%s' already registered", name))
	}
	slog.Debug("Registering transform handler.", "name", name)
	h.all[name] = fn
}

// Get returns the handler registered under name.
func (h *Handlers) Get(name string) (Func, bool) {
	fn, ok := h.all[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (h *Handlers) Names() []string {
	return slices.Sorted(maps.Keys(h.all))
}

// Builtin returns a registry with the built-in handlers.
func Builtin() *Handlers {
	h := New()
	h.RegisterHandler("copy", Copy)
	h.RegisterHandler("exec", Exec)
	return h
}
