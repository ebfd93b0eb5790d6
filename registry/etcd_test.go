package registry

import (
	"context"
	"testing"
	"time"
)

// Requires a local etcd at localhost:2379; skipped when unreachable so the
// rest of the suite stays runnable without infrastructure.
func TestRegisterAndDiscover(t *testing.T) {
	reg, err := NewEtcdRegistry([]string{"localhost:2379"})
	if err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	inst1 := Instance{Addr: "127.0.0.1:8001", Weight: 10, Version: "dev"}
	inst2 := Instance{Addr: "127.0.0.1:8002", Weight: 5, Version: "dev"}

	if err := reg.Register(ctx, "runtime", inst1, 10); err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	if err := reg.Register(ctx, "runtime", inst2, 10); err != nil {
		t.Fatal(err)
	}

	instances, err := reg.Discover(ctx, "runtime")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 2 {
		t.Fatalf("expect 2 instances, got %d", len(instances))
	}

	if err := reg.Deregister(ctx, "runtime", inst1.Addr); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	instances, err = reg.Discover(ctx, "runtime")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 1 {
		t.Fatalf("expect 1 instance after deregister, got %d", len(instances))
	}
	if instances[0].Addr != inst2.Addr {
		t.Fatalf("surviving instance is %s, want %s", instances[0].Addr, inst2.Addr)
	}

	_ = reg.Deregister(ctx, "runtime", inst2.Addr)
}
