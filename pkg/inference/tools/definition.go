package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ArgType is the primitive type a tool argument is coerced to.
type ArgType string

const (
	ArgString  ArgType = "string"
	ArgNumber  ArgType = "number"
	ArgInteger ArgType = "integer"
	ArgBoolean ArgType = "boolean"
)

// ArgSpec declares one required argument of a tool.
type ArgSpec struct {
	Name        string  `json:"name" yaml:"name"`
	Type        ArgType `json:"type" yaml:"type"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// ToolSpec describes a tool the planner may request. Specs are immutable once
// registered.
type ToolSpec struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Args        []ArgSpec `json:"args" yaml:"args"`
	// Network marks tools that cross a network boundary. Their calls are
	// dispatched through the retrying invoker.
	Network bool `json:"network,omitempty" yaml:"network,omitempty"`
}

// ArgNames returns the required argument names in declaration order.
func (s ToolSpec) ArgNames() []string {
	names := make([]string, 0, len(s.Args))
	for _, a := range s.Args {
		names = append(names, a.Name)
	}
	return names
}

// Schema renders the spec as a JSON schema object, the shape structured
// planner backends expect for function parameters.
func (s ToolSpec) Schema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	for _, a := range s.Args {
		props.Set(a.Name, &jsonschema.Schema{
			Type:        string(a.Type),
			Description: a.Description,
		})
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             s.ArgNames(),
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// ToolFunc is the implementation of a tool. It receives arguments already
// coerced to the declared types.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool pairs a spec with its implementation.
type Tool struct {
	Spec ToolSpec
	Impl ToolFunc
}

// NewTypedFunc adapts a function taking a typed input struct into a ToolFunc.
// The coerced arguments are round-tripped through JSON into In.
func NewTypedFunc[In any, Out any](fn func(context.Context, In) (Out, error)) ToolFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal arguments: %w", err)
		}
		var in In
		if err := json.Unmarshal(b, &in); err != nil {
			log.Error().
				Err(err).
				Str("input_type", fmt.Sprintf("%T", in)).
				Str("args", string(b)).
				Msg("tools: failed to unmarshal arguments")
			return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
		}
		return fn(ctx, in)
	}
}
