package registry

import (
	"context"
	"encoding/json"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// keyPrefix namespaces all announcements:
// /gary-zero/rfc/{service}/{addr} → JSON-encoded Instance.
const keyPrefix = "/gary-zero/rfc/"

// EtcdRegistry announces runtime instances in etcd v3 using TTL leases.
// If a runtime process dies, its lease stops being renewed and the entry
// expires on its own; no ghost instances.
type EtcdRegistry struct {
	client *clientv3.Client // Shared, goroutine-safe etcd client
}

// NewEtcdRegistry connects to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, fmt.Errorf("registry: etcd connect: %w", err)
	}
	return &EtcdRegistry{client: c}, nil
}

// Close releases the underlying etcd client.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}

func instanceKey(service, addr string) string {
	return keyPrefix + service + "/" + addr
}

// Register puts the instance under a TTL lease and starts background
// KeepAlive renewal. The lease ID stays local to this call so a single
// EtcdRegistry can safely announce several instances.
func (r *EtcdRegistry) Register(ctx context.Context, service string, inst Instance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("registry: lease grant: %w", err)
	}

	val, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("registry: encode instance: %w", err)
	}

	_, err = r.client.Put(ctx, instanceKey(service, inst.Addr), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("registry: put: %w", err)
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("registry: keepalive: %w", err)
	}
	// Drain renewal acks so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister deletes the instance entry immediately, without waiting for the
// lease to lapse.
func (r *EtcdRegistry) Deregister(ctx context.Context, service string, addr string) error {
	_, err := r.client.Delete(ctx, instanceKey(service, addr))
	if err != nil {
		return fmt.Errorf("registry: delete: %w", err)
	}
	return nil
}

// Discover lists all instances currently announced for the service.
// Entries that fail to decode are skipped rather than failing the lookup.
func (r *EtcdRegistry) Discover(ctx context.Context, service string) ([]Instance, error) {
	resp, err := r.client.Get(ctx, keyPrefix+service+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("registry: get: %w", err)
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// Watch re-lists the service on every membership change and emits the full
// instance set. Simpler than folding individual watch events, and membership
// changes are rare on this path.
func (r *EtcdRegistry) Watch(ctx context.Context, service string) <-chan []Instance {
	ch := make(chan []Instance, 1)
	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, keyPrefix+service+"/", clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(ctx, service)
			if err != nil {
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
