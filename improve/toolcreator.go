package improve

import (
	"context"
	"fmt"
	"strings"

	"github.com/supermean/supermean/internal/util"
	"github.com/supermean/supermean/logging"
	"github.com/supermean/supermean/router"
	"github.com/supermean/supermean/skill"
)

const toolInstructionsPrompt = `You are defining a new tool for an agent system.
Tool name: {{.name}}
Purpose: {{.description}}

Write concise operating instructions for this tool. The instructions will be
used verbatim as the system prompt when the tool is invoked with a text input.
Respond with the instructions only.`

// ToolCreatorOptions configures a ToolCreator.
type ToolCreatorOptions struct {
	// Category assigned to created skills. Defaults to "generated".
	Category string
	// ModelPreference names the backend used for instruction synthesis.
	ModelPreference string
	// Logger receives creation reports.
	Logger logging.Logger
}

// ToolCreator synthesizes missing skills at runtime. It asks a model to draft
// operating instructions for the requested tool, then registers a skill whose
// invocations run those instructions through the router. The generated skill
// accepts a single "input" string argument.
type ToolCreator struct {
	router   *router.Router
	skills   *skill.Registry
	category string
	pref     string
	logger   logging.Logger
}

// NewToolCreator creates a tool creator over the given router and registry.
func NewToolCreator(r *router.Router, skills *skill.Registry, optFns ...func(o *ToolCreatorOptions)) *ToolCreator {
	opts := ToolCreatorOptions{
		Category: "generated",
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &ToolCreator{
		router:   r,
		skills:   skills,
		category: opts.Category,
		pref:     opts.ModelPreference,
		logger:   opts.Logger,
	}
}

// CreateTool synthesizes and registers a skill under the given name. The
// description guides the instruction synthesis; it may be empty, in which
// case the name alone is used.
func (tc *ToolCreator) CreateTool(ctx context.Context, name, description string) (skill.Skill, error) {
	if name == "" {
		return nil, fmt.Errorf("create tool: name is required")
	}
	if description == "" {
		description = "a tool named " + name
	}

	prompt, err := util.RenderTemplate(toolInstructionsPrompt, map[string]any{
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, fmt.Errorf("create tool %s: render prompt: %w", name, err)
	}

	instructions, err := tc.router.Generate(ctx, prompt, router.GenerateOptions{
		Preference: tc.pref,
	})
	if err != nil {
		return nil, fmt.Errorf("create tool %s: synthesize instructions: %w", name, err)
	}
	instructions = strings.TrimSpace(instructions)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "Text input for the tool",
			},
		},
		"required": []string{"input"},
	}

	created := skill.NewFuncSkill(name, tc.category, schema,
		func(ctx context.Context, args map[string]any) (any, error) {
			input, _ := args["input"].(string)
			return tc.router.Generate(ctx, input, router.GenerateOptions{
				Preference:   tc.pref,
				Instructions: instructions,
			})
		})

	if err := tc.skills.Register(created); err != nil {
		return nil, fmt.Errorf("create tool %s: register: %w", name, err)
	}

	tc.logger.Info("tool creator registered skill name=%s category=%s", name, tc.category)
	return created, nil
}

// Executor adapts the tool creator to the planner's create_tool action. The
// action target is the tool name; params may carry a "detail" description
// from the originating issue.
func (tc *ToolCreator) Executor() ActionExecutor {
	return func(ctx context.Context, action Action) error {
		description, _ := action.Params["detail"].(string)
		_, err := tc.CreateTool(ctx, action.Target, description)
		return err
	}
}
