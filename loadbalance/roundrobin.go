package loadbalance

import (
	"sync/atomic"

	"github.com/GaryOcean428/gary-zero-sub006/registry"
)

// RoundRobin cycles through instances in order using an atomic counter,
// lock-free and evenly distributed. The zero value is ready to use.
type RoundRobin struct {
	counter atomic.Int64
}

func (b *RoundRobin) Pick(instances []registry.Instance) (*registry.Instance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	index := b.counter.Add(1) % int64(len(instances))
	return &instances[index], nil
}

func (b *RoundRobin) Name() string {
	return "RoundRobin"
}
