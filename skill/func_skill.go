package skill

import (
	"context"

	"github.com/supermean/supermean/internal/util"
)

// FuncSkill is a generic adapter that exposes a plain Go function as a skill.
//
// It holds a lightweight JSON-Schema-like argument specification used by the
// Registry for validation before the wrapped function runs. A FuncSkill has
// no internal mutable state after construction and is safe for concurrent use
// by multiple goroutines.
type FuncSkill struct {
	// Skill identifier (snake_case recommended)
	name string
	// Category groups related skills
	category string
	// JSON schema describing accepted arguments
	schema map[string]any
	// User supplied implementation
	fn func(ctx context.Context, args map[string]any) (any, error)
}

// NewFuncSkill constructs a FuncSkill from an explicit schema and function.
//
// Example:
//
//	reverse := NewFuncSkill(
//	  "reverse_text",
//	  "text",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "text": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"text"},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    // args already validated against the schema
//	    ...
//	  },
//	)
func NewFuncSkill(
	name, category string,
	schema map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FuncSkill {
	return &FuncSkill{
		name:     name,
		category: category,
		schema:   schema,
		fn:       fn,
	}
}

// NewFuncSkillFromStruct derives the argument schema from a struct using
// reflection. It is a convenience for simple argument containers and produces
// a schema equivalent to util.CreateSchema(structType).
//
// Example:
//
//	type SummarizeArgs struct {
//	  Text      string `json:"text" description:"Text to summarize"`
//	  MaxLength *int   `json:"max_length,omitempty" description:"Optional length cap"`
//	}
//
//	s := NewFuncSkillFromStruct("summarize", "text", SummarizeArgs{}, impl)
func NewFuncSkillFromStruct(
	name, category string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FuncSkill {
	return NewFuncSkill(name, category, util.CreateSchema(structType), fn)
}

// Name returns the unique skill name used for registration and routing.
func (s *FuncSkill) Name() string { return s.name }

// Category returns the skill's category.
func (s *FuncSkill) Category() string { return s.category }

// Schema returns the (minimal) JSON schema describing expected arguments.
func (s *FuncSkill) Schema() map[string]any { return s.schema }

// Invoke runs the wrapped function. Argument validation happens in the
// Registry before this is reached.
func (s *FuncSkill) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return s.fn(ctx, args)
}
