// Package improve implements the self-improvement control loop: periodic
// self-reflection, rule-based remediation planning, and an append-only audit
// log of every step.
//
// The Reflector runs delegated health and test probes on an interval and
// turns negative findings into structured issues. The Planner maps issues to
// actions through a declarative rule table and executes plans against
// registered executors, tolerating partial failure. The ToolCreator is the
// built-in executor for the create_tool action: it synthesizes a prompt-backed
// skill through the model router and registers it. Every issue, plan, and
// action execution lands in the Log.
package improve
