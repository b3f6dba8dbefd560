package skill

import (
	"context"
	"fmt"
	"strings"

	"github.com/supermean/supermean/router"
)

// NewSummarizeSkill returns the built-in "summarize" skill: it condenses a
// piece of text to the requested length hint by generating through the model
// router. Empty input yields an empty summary without a model call.
func NewSummarizeSkill(r *router.Router) *FuncSkill {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":   map[string]any{"type": "string", "description": "Text to summarize"},
			"length": map[string]any{"type": "string", "description": "Length hint: concise, medium or detailed"},
			"model":  map[string]any{"type": "string", "description": "Preferred model backend"},
		},
		"required": []string{"text"},
	}

	return NewFuncSkill("summarize", "text", schema, func(ctx context.Context, args map[string]any) (any, error) {
		text, _ := args["text"].(string)
		if strings.TrimSpace(text) == "" {
			return "", nil
		}

		length, _ := args["length"].(string)
		if length == "" {
			length = "concise"
		}
		preference, _ := args["model"].(string)

		prompt := fmt.Sprintf("Please provide a %s summary of the following text:\n\nTEXT:\n%s\n\nSUMMARY (%s):", length, text, length)

		summary, err := r.Generate(ctx, prompt, router.GenerateOptions{Preference: preference})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(summary) == "" {
			return nil, fmt.Errorf("model returned an empty summary")
		}

		return strings.TrimSpace(summary), nil
	})
}
