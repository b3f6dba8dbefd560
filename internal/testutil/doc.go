// Package testutil provides fluent builders for constructing tasks and
// events in tests. Chain only the parts you need; sensible defaults are
// applied.
package testutil
