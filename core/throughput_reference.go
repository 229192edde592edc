package core

// ReferenceFairSharingModel is a deliberately naive O(n)-per-transition
// implementation of the same fair-sharing contract as FairSharingModel: on
// every insert, pop, or cancel it walks every still-running activity and
// subtracts the work each has completed since the last recalculation, then
// recomputes throughput for the new activity count. It exists purely to let
// core/throughput_test.go assert that the fast, heap-based model produces
// an identical (finish_time, item) sequence to this reference, per
// spec.md §8's throughput fast/slow equivalence property. Grounded on
// original_source/crates/dslab-models/src/throughput_sharing/fair_slow.rs.
type ReferenceFairSharingModel[T any] struct {
	throughput ThroughputFunc
	factor     ActivityFactorFunc[T]

	entries []referenceActivity[T]
	nextID  ActivityID

	lastThroughputPerItem float64
	lastRecalc            float64
}

type referenceActivity[T any] struct {
	id        ActivityID
	remaining float64
	item      T
}

// NewReferenceFairSharingModel creates a reference model with the same
// throughput and factor functions a FairSharingModel would use.
func NewReferenceFairSharingModel[T any](throughput ThroughputFunc, factor ActivityFactorFunc[T]) *ReferenceFairSharingModel[T] {
	if factor == nil {
		factor = func(T) float64 { return 1 }
	}
	return &ReferenceFairSharingModel[T]{throughput: throughput, factor: factor}
}

func (m *ReferenceFairSharingModel[T]) recalculate(currentTime float64, throughputPerItem float64) {
	processed := (currentTime - m.lastRecalc) * m.lastThroughputPerItem
	for i := range m.entries {
		m.entries[i].remaining -= processed
	}
	m.lastThroughputPerItem = throughputPerItem
	m.lastRecalc = currentTime
}

func (m *ReferenceFairSharingModel[T]) throughputPerItemFor(count int) float64 {
	if count == 0 {
		return 0
	}
	return m.throughput(count) / float64(count)
}

// Insert adds item with the given volume of work at currentTime.
func (m *ReferenceFairSharingModel[T]) Insert(currentTime float64, volume float64, item T) ActivityID {
	m.recalculate(currentTime, m.throughputPerItemFor(len(m.entries)+1))
	volume /= m.factor(item)
	id := m.nextID
	m.nextID++
	m.entries = append(m.entries, referenceActivity[T]{id: id, remaining: volume, item: item})
	return id
}

func (m *ReferenceFairSharingModel[T]) indexOfEarliest() int {
	best := -1
	for i, e := range m.entries {
		if best == -1 || e.remaining < m.entries[best].remaining ||
			(e.remaining == m.entries[best].remaining && e.id < m.entries[best].id) {
			best = i
		}
	}
	return best
}

// Pop removes and returns the earliest-finishing activity and the simulated
// time it finishes at.
func (m *ReferenceFairSharingModel[T]) Pop() (float64, T, bool) {
	idx := m.indexOfEarliest()
	if idx < 0 {
		var zero T
		return 0, zero, false
	}
	e := m.entries[idx]
	completeTime := m.lastRecalc + e.remaining/m.lastThroughputPerItem
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	if len(m.entries) == 0 {
		m.lastThroughputPerItem = 0
		m.lastRecalc = completeTime
	} else {
		m.recalculate(completeTime, m.throughputPerItemFor(len(m.entries)))
	}
	return completeTime, e.item, true
}

// Peek reports the earliest-finishing activity without removing it.
func (m *ReferenceFairSharingModel[T]) Peek() (float64, T, bool) {
	idx := m.indexOfEarliest()
	if idx < 0 {
		var zero T
		return 0, zero, false
	}
	e := m.entries[idx]
	completeTime := m.lastRecalc + e.remaining/m.lastThroughputPerItem
	return completeTime, e.item, true
}

// Cancel removes id, returning the volume of work it had completed so far.
func (m *ReferenceFairSharingModel[T]) Cancel(currentTime float64, id ActivityID) (float64, T, bool) {
	idx := -1
	for i, e := range m.entries {
		if e.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		var zero T
		return 0, zero, false
	}
	orig := m.entries[idx].remaining
	m.recalculate(currentTime, m.throughputPerItemFor(len(m.entries)-1))
	done := orig - m.entries[idx].remaining
	item := m.entries[idx].item
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	if len(m.entries) == 0 {
		m.lastThroughputPerItem = 0
	}
	return done, item, true
}

// Len reports the number of currently running activities.
func (m *ReferenceFairSharingModel[T]) Len() int { return len(m.entries) }
