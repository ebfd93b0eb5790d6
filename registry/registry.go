// Package registry provides discovery of RFC runtime processes.
//
// A development process normally reaches its runtime peer through a fixed
// endpoint URL from configuration. When several runtime processes serve the
// same sandbox, they can instead announce themselves in a shared registry and
// the client resolves an instance per call.
package registry

import "context"

// Instance is one announced runtime process.
type Instance struct {
	Addr    string // host:port of the RFC HTTP listener
	Weight  int    // Relative capacity, used by weighted balancers
	Version string // Build identifier, informational
}

// Registry announces and discovers runtime instances. Implementations must
// be safe for concurrent use.
type Registry interface {
	// Register announces an instance under the given service name with a
	// TTL in seconds; the entry disappears automatically if the process
	// stops renewing it.
	Register(ctx context.Context, service string, inst Instance, ttl int64) error

	// Deregister withdraws an instance. Called first during graceful
	// shutdown so peers stop routing new calls here.
	Deregister(ctx context.Context, service string, addr string) error

	// Discover lists the currently announced instances for a service.
	Discover(ctx context.Context, service string) ([]Instance, error)

	// Watch emits the full updated instance list whenever membership
	// changes.
	Watch(ctx context.Context, service string) <-chan []Instance
}
