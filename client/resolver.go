package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/GaryOcean428/gary-zero-sub006/loadbalance"
	"github.com/GaryOcean428/gary-zero-sub006/registry"
)

// Resolver yields the base URL of the runtime process for one call. The
// common setup is a single fixed endpoint from configuration; discovery-based
// resolution exists for sandboxes running several runtime processes.
type Resolver interface {
	Resolve(ctx context.Context, module, function string) (string, error)
}

// StaticResolver always returns the configured endpoint.
type StaticResolver struct {
	Endpoint string
}

func (r StaticResolver) Resolve(ctx context.Context, module, function string) (string, error) {
	return r.Endpoint, nil
}

// DiscoveryResolver looks up announced runtime instances per call and picks
// one with the configured balancer. With Affinity set, picks instead go
// through a consistent-hash ring keyed by "module.function", so the same
// operation keeps hitting the same instance while membership is stable.
type DiscoveryResolver struct {
	Registry registry.Registry
	Service  string                // Service name instances announce under, e.g. "runtime"
	Balancer loadbalance.Balancer  // Used when Affinity is nil
	Affinity *loadbalance.ConsistentHash

	mu        sync.Mutex
	ringAddrs string // Fingerprint of the instance set the ring was built from
}

func (r *DiscoveryResolver) Resolve(ctx context.Context, module, function string) (string, error) {
	instances, err := r.Registry.Discover(ctx, r.Service)
	if err != nil {
		return "", fmt.Errorf("client: discover %s: %w", r.Service, err)
	}

	inst, err := r.pick(instances, module+"."+function)
	if err != nil {
		return "", err
	}
	return "http://" + inst.Addr, nil
}

func (r *DiscoveryResolver) pick(instances []registry.Instance, key string) (*registry.Instance, error) {
	if r.Affinity == nil {
		return r.Balancer.Pick(instances)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fingerprint := ""
	for _, inst := range instances {
		fingerprint += inst.Addr + ";"
	}
	if fingerprint != r.ringAddrs {
		r.Affinity.Rebuild(instances)
		r.ringAddrs = fingerprint
	}
	return r.Affinity.PickKey(key)
}
