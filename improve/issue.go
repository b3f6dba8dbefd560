package improve

// IssueType classifies a detected problem. The set is closed; the planner's
// rule table keys on it and unmatched types are logged without action.
type IssueType string

const (
	// IssueMissingTool reports a capability the system needs but has no
	// registered skill for.
	IssueMissingTool IssueType = "missing_tool"
	// IssueTestFailure reports a failing check from the delegated test run.
	IssueTestFailure IssueType = "test_failure"
	// IssueUnhealthy reports a failed health probe.
	IssueUnhealthy IssueType = "unhealthy"
)

// Issue is a structured problem report produced by the reflector. Component
// names what is affected (a tool name, a test name, a subsystem) so the
// planner can target its action.
type Issue struct {
	Type      IssueType `json:"type"`
	Component string    `json:"component"`
	Detail    string    `json:"detail,omitempty"`
}

func issuesToDetails(issues []Issue) []map[string]any {
	out := make([]map[string]any, 0, len(issues))
	for _, is := range issues {
		d := map[string]any{
			"type":      string(is.Type),
			"component": is.Component,
		}
		if is.Detail != "" {
			d["detail"] = is.Detail
		}
		out = append(out, d)
	}
	return out
}
