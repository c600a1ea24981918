package hook

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTickIndexAppendAndGet(t *testing.T) {
	ti := newTickIndex(4)
	pool := common.HexToHash("0x01")

	if got := ti.get(pool, 10); got != nil {
		t.Fatalf("empty index returned %v", got)
	}
	for id := uint64(1); id <= 3; id++ {
		if !ti.append(pool, 10, id) {
			t.Fatalf("append %d rejected under capacity", id)
		}
	}
	if n := ti.count(pool, 10); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	got := ti.get(pool, 10)
	if len(got) != 3 {
		t.Fatalf("get returned %d ids, want 3", len(got))
	}
	// get hands out a copy; mutating it must not touch the bucket.
	got[0] = 999
	if ti.get(pool, 10)[0] == 999 {
		t.Error("get returned the live slice")
	}

	// Distinct pools and ticks are independent buckets.
	other := common.HexToHash("0x02")
	if n := ti.count(other, 10); n != 0 {
		t.Errorf("other pool count = %d, want 0", n)
	}
	if n := ti.count(pool, 20); n != 0 {
		t.Errorf("other tick count = %d, want 0", n)
	}
}

func TestTickIndexCapacity(t *testing.T) {
	ti := newTickIndex(2)
	pool := common.HexToHash("0x01")

	if !ti.append(pool, 0, 1) || !ti.append(pool, 0, 2) {
		t.Fatal("appends under capacity rejected")
	}
	if ti.append(pool, 0, 3) {
		t.Error("append over capacity accepted")
	}
	if n := ti.count(pool, 0); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	// The neighbouring tick still has room.
	if !ti.append(pool, 1, 3) {
		t.Error("append at a different tick rejected")
	}
}

func TestTickIndexCompact(t *testing.T) {
	ti := newTickIndex(8)
	pool := common.HexToHash("0x01")
	for id := uint64(1); id <= 6; id++ {
		ti.append(pool, 0, id)
	}

	// Drop the even ids.
	removed := ti.compact(pool, 0, func(id uint64) bool { return id%2 == 1 })
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	left := ti.get(pool, 0)
	if len(left) != 3 {
		t.Fatalf("bucket holds %d ids, want 3", len(left))
	}
	seen := make(map[uint64]bool, len(left))
	for _, id := range left {
		if id%2 == 0 {
			t.Errorf("compact kept dropped id %d", id)
		}
		seen[id] = true
	}
	for _, id := range []uint64{1, 3, 5} {
		if !seen[id] {
			t.Errorf("compact lost kept id %d", id)
		}
	}

	// Compacting with nothing to drop frees no slots.
	if removed := ti.compact(pool, 0, func(uint64) bool { return true }); removed != 0 {
		t.Errorf("no-op compact removed %d", removed)
	}

	// Dropping everything deletes the bucket.
	if removed := ti.compact(pool, 0, func(uint64) bool { return false }); removed != 3 {
		t.Errorf("final compact removed %d, want 3", removed)
	}
	if m, ok := ti.pools[pool]; ok {
		if _, exists := m.Get(0); exists {
			t.Error("empty bucket was not dropped from the tree")
		}
	}

	// Missing pool or tick compacts to zero.
	if removed := ti.compact(common.HexToHash("0x02"), 0, func(uint64) bool { return false }); removed != 0 {
		t.Errorf("compact of unknown pool removed %d", removed)
	}
}
