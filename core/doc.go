// Package core provides the foundational domain types and interfaces used by
// SuperMean. It defines the core abstractions for:
//
//   - Tasks (submitted units of work with a strict status state machine)
//   - Agents (worker units executing one task at a time)
//   - Events (topic-scoped notifications broadcast through the event bus)
//   - SharedMemory (key-scoped store visible to all agents)
//   - The common error taxonomy shared across packages
//
// The package intentionally keeps implementation concerns (dispatch policy,
// model routing, skill invocation, persistence) out of scope, exposing small
// interfaces so every other package can import it without cycles.
package core
