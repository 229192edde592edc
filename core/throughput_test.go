package core

import "testing"

func TestFairSharingModelInsertPopOrdering(t *testing.T) {
	m := NewFixedThroughputModel[string](2.0)
	m.Insert(0, 2, "a")
	m.Insert(0, 10, "b")

	finish, item, ok := m.Pop()
	if !ok || item != "a" {
		t.Fatalf("expected a to finish first, got %v ok=%v", item, ok)
	}
	if finish <= 0 {
		t.Fatalf("expected positive finish time, got %v", finish)
	}

	_, item2, ok := m.Pop()
	if !ok || item2 != "b" {
		t.Fatalf("expected b to finish second, got %v ok=%v", item2, ok)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty model after draining, len=%d", m.Len())
	}
}

func TestFairSharingModelPeekDoesNotRemove(t *testing.T) {
	m := NewFixedThroughputModel[string](1.0)
	m.Insert(0, 1, "only")

	f1, v1, ok := m.Peek()
	if !ok || v1 != "only" {
		t.Fatalf("expected peek to find the item")
	}
	f2, v2, ok := m.Pop()
	if !ok || v2 != "only" || f1 != f2 {
		t.Fatalf("expected peek and pop to agree: peek=(%v,%v) pop=(%v,%v)", f1, v1, f2, v2)
	}
}

func TestFairSharingModelCancelTombstoneSkippedOnPop(t *testing.T) {
	m := NewFixedThroughputModel[string](2.0)
	idA := m.Insert(0, 100, "slow")
	m.Insert(0, 1, "fast")

	done, item, ok := m.Cancel(0.1, idA)
	if !ok || item != "slow" {
		t.Fatalf("expected cancel to return the cancelled item, got %v ok=%v", item, ok)
	}
	if done < 0 {
		t.Fatalf("expected non-negative volume done, got %v", done)
	}
	if m.Len() != 1 {
		t.Fatalf("expected one surviving activity, got %d", m.Len())
	}

	_, survivor, ok := m.Pop()
	if !ok || survivor != "fast" {
		t.Fatalf("expected the surviving activity to be the only pop result, got %v ok=%v", survivor, ok)
	}
	if _, _, ok := m.Pop(); ok {
		t.Fatalf("expected queue empty after draining the survivor")
	}
}

func TestFairSharingModelRebasesAboveThreshold(t *testing.T) {
	m := NewFixedThroughputModel[int](1.0)
	m.Insert(0, 1, 1)
	// Force a rebase by jumping the clock far enough that accumulated work
	// exceeds totalWorkRebaseThreshold before the next operation.
	m.Insert(totalWorkRebaseThreshold*2, 1, 2)
	if m.totalWork > totalWorkRebaseThreshold {
		t.Fatalf("expected totalWork to have been rebased, got %v", m.totalWork)
	}
	if m.Len() != 2 {
		t.Fatalf("expected both activities to survive a rebase, got %d", m.Len())
	}
}

// TestFairSharingModelsAgreeWithReference feeds the fast heap-based model and
// the naive O(n) reference model the same sequence of inserts and pops and
// asserts they produce identical (finish_time, item) results throughout, per
// the fast/slow equivalence the two implementations are required to hold.
func TestFairSharingModelsAgreeWithReference(t *testing.T) {
	throughput := func(n int) float64 { return 4.0 }
	factor := func(v int) float64 { return 1.0 }

	fast := NewFairSharingModel[int](throughput, factor)
	slow := NewReferenceFairSharingModel[int](throughput, factor)

	type op struct {
		insertAt float64
		volume   float64
		item     int
		popAt    bool
	}
	ops := []op{
		{insertAt: 0, volume: 10, item: 1},
		{insertAt: 0, volume: 4, item: 2},
		{insertAt: 1, volume: 20, item: 3},
		{popAt: true},
		{insertAt: 2, volume: 6, item: 4},
		{popAt: true},
		{popAt: true},
		{popAt: true},
	}

	for i, o := range ops {
		if o.popAt {
			ft1, it1, ok1 := fast.Pop()
			ft2, it2, ok2 := slow.Pop()
			if ok1 != ok2 {
				t.Fatalf("op %d: ok mismatch fast=%v slow=%v", i, ok1, ok2)
			}
			if !ok1 {
				continue
			}
			if it1 != it2 {
				t.Fatalf("op %d: item mismatch fast=%v slow=%v", i, it1, it2)
			}
			if diff := ft1 - ft2; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("op %d: finish time mismatch fast=%v slow=%v", i, ft1, ft2)
			}
			continue
		}
		id1 := fast.Insert(o.insertAt, o.volume, o.item)
		id2 := slow.Insert(o.insertAt, o.volume, o.item)
		if id1 != ActivityID(id2) {
			t.Fatalf("op %d: activity id mismatch fast=%v slow=%v", i, id1, id2)
		}
	}
}
