package script

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Parameter types understood by the host when describing a script.
const (
	TypeString  = "String"
	TypeInteger = "Integer"
)

// ParamSpec describes one declared script parameter.
type ParamSpec struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=String Integer"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Definition binds a script to its route and declared parameters.
type Definition struct {
	Name        string      `json:"name" validate:"required"`
	Group       string      `json:"group" validate:"required"`
	Path        string      `json:"path" validate:"required,startswith=/"`
	Method      string      `json:"method" validate:"required,oneof=POST"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Params      []ParamSpec `json:"params" validate:"dive"`
	Func        Func        `json:"-" validate:"required"`
}

// Registry is the ordered set of scripts the host serves.
type Registry struct {
	mu       sync.RWMutex
	validate *validator.Validate
	order    []string
	byName   map[string]Definition
	byPath   map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		validate: validator.New(),
		byName:   make(map[string]Definition),
		byPath:   make(map[string]string),
	}
}

// Register validates def and adds it. Names and paths must be unique.
func (r *Registry) Register(def Definition) error {
	if def.Method == "" {
		def.Method = http.MethodPost
	}

	if err := r.validate.Struct(def); err != nil {
		return fmt.Errorf("invalid script definition %q: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("script %q already registered", def.Name)
	}
	if owner, exists := r.byPath[def.Path]; exists {
		return fmt.Errorf("path %s already served by script %q", def.Path, owner)
	}

	r.order = append(r.order, def.Name)
	r.byName[def.Name] = def
	r.byPath[def.Path] = def.Name
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.byName[name]
	return def, ok
}

// All returns every definition in registration order.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.byName[name])
	}
	return defs
}
