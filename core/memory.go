package core

// SharedMemory is a key-scoped store visible to all agents, used for
// cross-agent context and as an input signal for the self-improvement loop.
// Implementations must make each write atomic at entry granularity and be
// safe for concurrent use.
type SharedMemory interface {
	// Get returns the value stored under key and whether it exists.
	Get(key string) (any, bool)

	// Put stores value under key, replacing any previous value.
	Put(key string, value any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys lists stored keys beginning with prefix, in unspecified order.
	// An empty prefix lists all keys.
	Keys(prefix string) []string
}
