package tools

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps tool names to their specs and implementations.
type Registry interface {
	Register(spec ToolSpec, impl ToolFunc) error
	Lookup(name string) (*Tool, error)
	Validate(name string, args map[string]any) (map[string]any, error)
	List() []ToolSpec
}

// InMemoryRegistry is a thread-safe in-memory implementation of Registry.
// It is populated at startup and only read afterwards.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

var _ Registry = (*InMemoryRegistry)(nil)

// NewInMemoryRegistry creates a new in-memory tool registry
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Registering a name twice fails with DuplicateToolError.
func (r *InMemoryRegistry) Register(spec ToolSpec, impl ToolFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if spec.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if impl == nil {
		return errors.Errorf("tool %s has no implementation", spec.Name)
	}
	if _, exists := r.tools[spec.Name]; exists {
		return &DuplicateToolError{Name: spec.Name}
	}

	// Keep our own copy of the argument list so later edits by the caller
	// cannot change the registered spec.
	args := make([]ArgSpec, len(spec.Args))
	copy(args, spec.Args)
	spec.Args = args

	r.tools[spec.Name] = Tool{Spec: spec, Impl: impl}
	return nil
}

// MustRegister registers a tool and panics on error. Used when populating
// registries from static tool sets at startup.
func (r *InMemoryRegistry) MustRegister(spec ToolSpec, impl ToolFunc) {
	if err := r.Register(spec, impl); err != nil {
		panic(err)
	}
}

// Lookup retrieves a tool by name
func (r *InMemoryRegistry) Lookup(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, &UnknownToolError{Name: name}
	}

	toolCopy := tool
	return &toolCopy, nil
}

// Validate checks that every required argument of the named tool is present
// and coercible, and returns a copy of args with the declared ones coerced.
func (r *InMemoryRegistry) Validate(name string, args map[string]any) (map[string]any, error) {
	tool, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	var invalid *InvalidArgumentsError
	for _, a := range tool.Spec.Args {
		v, ok := args[a.Name]
		if !ok || v == nil {
			if invalid == nil {
				invalid = &InvalidArgumentsError{Tool: name}
			}
			invalid.Missing = append(invalid.Missing, a.Name)
			continue
		}
		coerced, reason := coerce(v, a.Type)
		if reason != "" {
			if invalid == nil {
				invalid = &InvalidArgumentsError{Tool: name}
			}
			if invalid.Reasons == nil {
				invalid.Reasons = map[string]string{}
			}
			invalid.Malformed = append(invalid.Malformed, a.Name)
			invalid.Reasons[a.Name] = reason
			continue
		}
		out[a.Name] = coerced
	}
	if invalid != nil {
		return nil, invalid
	}
	return out, nil
}

// List returns every registered spec sorted by name
func (r *InMemoryRegistry) List() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Has checks if a tool exists in the registry
func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Count returns the number of tools in the registry
func (r *InMemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}
