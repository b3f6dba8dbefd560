// Package orchestrator implements admission control and dispatch of tasks to
// a pool of agents.
//
// Tasks are submitted through Submit, queued FIFO, and dispatched to idle
// agents whose capability matches the task's requested skill or model. A hard
// concurrency ceiling bounds the number of simultaneously running tasks; the
// running count, queue, and agent pool share a single mutex so admission
// decisions are atomic with respect to concurrent submissions and
// completions.
//
// Every status transition is published on the event bus under the task.*
// topics. Submitters observe outcomes through Status polling or bus
// subscription; execution failures become a terminal failed status, never an
// error raised back to the submitter.
package orchestrator
