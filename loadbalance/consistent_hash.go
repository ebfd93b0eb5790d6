package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"

	"github.com/GaryOcean428/gary-zero-sub006/registry"
)

// ConsistentHash maps operation keys onto a hash ring of instances, so the
// same "module.function" keeps landing on the same runtime process while the
// membership is stable. Useful when an operation builds per-process state
// (warm caches, loaded models) worth revisiting.
//
// Each instance occupies many virtual nodes on the ring; without them a
// handful of instances clusters badly and load skews. ConsistentHash does not
// implement Balancer; its pick is key-based, not list-based.
type ConsistentHash struct {
	replicas int
	ring     []uint32
	nodes    map[uint32]registry.Instance
}

// NewConsistentHash builds an empty ring with 100 virtual nodes per instance.
func NewConsistentHash() *ConsistentHash {
	return &ConsistentHash{
		replicas: 100,
		nodes:    make(map[uint32]registry.Instance),
	}
}

// Rebuild replaces the ring contents with the given instance list. Call it
// whenever discovery reports a membership change; not safe to run
// concurrently with PickKey.
func (b *ConsistentHash) Rebuild(instances []registry.Instance) {
	b.ring = b.ring[:0]
	clear(b.nodes)
	for _, inst := range instances {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", inst.Addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = inst
		}
	}
	sort.Slice(b.ring, func(i, j int) bool { return b.ring[i] < b.ring[j] })
}

// PickKey returns the instance owning the given key, walking clockwise to
// the nearest virtual node and wrapping at the end of the ring.
func (b *ConsistentHash) PickKey(key string) (*registry.Instance, error) {
	if len(b.ring) == 0 {
		return nil, ErrNoInstances
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool { return b.ring[i] >= hash })
	if idx == len(b.ring) {
		idx = 0
	}
	inst := b.nodes[b.ring[idx]]
	return &inst, nil
}

func (b *ConsistentHash) Name() string {
	return "ConsistentHash"
}
