package hook

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/btree"
)

// tickIndex maps (pool, tick) to the ids of orders resting at that tick.
// Each bucket is capacity-capped so a single price-crossing event never has
// unbounded work to do. Buckets are append-only except for compaction,
// which swap-and-truncates; order within a bucket carries no meaning.
//
// Per pool the buckets live in an ordered btree map keyed by tick, so
// range queries over ticks come out in tick order.
type tickIndex struct {
	capacity int
	pools    map[common.Hash]*btree.Map[int32, *tickBucket]
}

type tickBucket struct {
	ids []uint64
}

func newTickIndex(capacity int) *tickIndex {
	return &tickIndex{
		capacity: capacity,
		pools:    make(map[common.Hash]*btree.Map[int32, *tickBucket]),
	}
}

// append adds an order id to the bucket at (pool, tick). Reports false when
// the bucket is at capacity.
func (ti *tickIndex) append(pool common.Hash, tick int32, id uint64) bool {
	m, ok := ti.pools[pool]
	if !ok {
		m = new(btree.Map[int32, *tickBucket])
		ti.pools[pool] = m
	}
	b, ok := m.Get(tick)
	if !ok {
		b = &tickBucket{}
		m.Set(tick, b)
	}
	if len(b.ids) >= ti.capacity {
		return false
	}
	b.ids = append(b.ids, id)
	return true
}

// get returns a copy of the ids at (pool, tick).
func (ti *tickIndex) get(pool common.Hash, tick int32) []uint64 {
	m, ok := ti.pools[pool]
	if !ok {
		return nil
	}
	b, ok := m.Get(tick)
	if !ok || len(b.ids) == 0 {
		return nil
	}
	out := make([]uint64, len(b.ids))
	copy(out, b.ids)
	return out
}

// count returns the number of index entries at (pool, tick), including
// entries whose orders have since terminated but not yet been compacted.
func (ti *tickIndex) count(pool common.Hash, tick int32) int {
	m, ok := ti.pools[pool]
	if !ok {
		return 0
	}
	b, ok := m.Get(tick)
	if !ok {
		return 0
	}
	return len(b.ids)
}

// compact removes every id at (pool, tick) for which keep returns false,
// using swap-and-truncate, and returns the number of slots freed. An empty
// bucket is dropped from the tree.
func (ti *tickIndex) compact(pool common.Hash, tick int32, keep func(id uint64) bool) int {
	m, ok := ti.pools[pool]
	if !ok {
		return 0
	}
	b, ok := m.Get(tick)
	if !ok {
		return 0
	}

	removed := 0
	for i := 0; i < len(b.ids); {
		if keep(b.ids[i]) {
			i++
			continue
		}
		last := len(b.ids) - 1
		b.ids[i] = b.ids[last]
		b.ids = b.ids[:last]
		removed++
	}
	if len(b.ids) == 0 {
		m.Delete(tick)
	}
	return removed
}
