// Package loadbalance selects which discovered runtime instance receives a
// forwarded call.
//
// Strategies:
//   - RoundRobin:      equal-capacity instances, stateless operations
//   - WeightedRandom:  heterogeneous instances
//   - ConsistentHash:  route the same operation to the same instance
//     (cache/affinity; keyed by "module.function")
package loadbalance

import (
	"errors"

	"github.com/GaryOcean428/gary-zero-sub006/registry"
)

// ErrNoInstances is returned when discovery produced an empty instance list.
var ErrNoInstances = errors.New("loadbalance: no instances available")

// Balancer picks one instance from the discovered list. Pick runs on every
// forwarded call and must be goroutine-safe.
type Balancer interface {
	Pick(instances []registry.Instance) (*registry.Instance, error)
	Name() string
}
