// Package model defines the uniform backend contract for large language model
// providers plus shared request/response structures. Concrete providers live
// in subpackages (anthropic, openai); MockBackend supports tests and demos.
//
// Backends are deliberately thin: they shape a prompt into the provider's
// wire format and stream text back. Selection, failover and health tracking
// are the router's concern, never the backend's.
package model
