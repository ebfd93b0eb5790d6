package client

import (
	"context"
	"testing"

	"github.com/GaryOcean428/gary-zero-sub006/loadbalance"
	"github.com/GaryOcean428/gary-zero-sub006/registry"
)

// fakeRegistry serves a fixed instance list without etcd.
type fakeRegistry struct {
	instances []registry.Instance
}

func (f *fakeRegistry) Register(ctx context.Context, service string, inst registry.Instance, ttl int64) error {
	f.instances = append(f.instances, inst)
	return nil
}

func (f *fakeRegistry) Deregister(ctx context.Context, service string, addr string) error {
	return nil
}

func (f *fakeRegistry) Discover(ctx context.Context, service string) ([]registry.Instance, error) {
	return f.instances, nil
}

func (f *fakeRegistry) Watch(ctx context.Context, service string) <-chan []registry.Instance {
	ch := make(chan []registry.Instance)
	close(ch)
	return ch
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{Endpoint: "http://runtime:8880"}
	endpoint, err := r.Resolve(context.Background(), "m", "f")
	if err != nil || endpoint != "http://runtime:8880" {
		t.Fatalf("Resolve = %q, %v", endpoint, err)
	}
}

func TestDiscoveryResolverRoundRobin(t *testing.T) {
	reg := &fakeRegistry{instances: []registry.Instance{
		{Addr: "10.0.0.1:8880"},
		{Addr: "10.0.0.2:8880"},
	}}
	r := &DiscoveryResolver{
		Registry: reg,
		Service:  "runtime",
		Balancer: &loadbalance.RoundRobin{},
	}

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		endpoint, err := r.Resolve(context.Background(), "m", "f")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		seen[endpoint] = true
	}
	if len(seen) != 2 {
		t.Errorf("Round-robin visited %d endpoints, want 2: %v", len(seen), seen)
	}
}

func TestDiscoveryResolverAffinity(t *testing.T) {
	reg := &fakeRegistry{instances: []registry.Instance{
		{Addr: "10.0.0.1:8880"},
		{Addr: "10.0.0.2:8880"},
		{Addr: "10.0.0.3:8880"},
	}}
	r := &DiscoveryResolver{
		Registry: reg,
		Service:  "runtime",
		Affinity: loadbalance.NewConsistentHash(),
	}

	first, err := r.Resolve(context.Background(), "calendar", "create_event")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		endpoint, err := r.Resolve(context.Background(), "calendar", "create_event")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if endpoint != first {
			t.Fatalf("Affinity broken: got %s, want %s", endpoint, first)
		}
	}
}

func TestDiscoveryResolverEmpty(t *testing.T) {
	r := &DiscoveryResolver{
		Registry: &fakeRegistry{},
		Service:  "runtime",
		Balancer: &loadbalance.RoundRobin{},
	}
	if _, err := r.Resolve(context.Background(), "m", "f"); err == nil {
		t.Fatal("Resolve with no instances succeeded")
	}
}
