package core

import "container/heap"

// totalWorkRebaseThreshold bounds how large the running work accumulator is
// allowed to grow before every pending entry is rebased against it, so the
// float64 finish-work values in the heap never lose precision over a long
// run. Grounded on TOTAL_WORK_MAX_VALUE in
// original_source/crates/dslab-models/src/throughput_sharing/fair_fast_with_cancel.rs.
const totalWorkRebaseThreshold = 1e12

// ActivityID identifies one unit of work inserted into a FairSharingModel.
type ActivityID uint64

// ThroughputFunc returns the aggregate throughput available when n
// activities are sharing it. A model with fixed capacity C ignores n and
// always returns C.
type ThroughputFunc func(n int) float64

// ActivityFactorFunc scales how much of an activity's declared volume
// actually counts against the shared throughput pool — an activity with
// factor 2 completes in half the time a factor-1 activity of the same
// volume would. Returning 1 for every item reduces to plain fair sharing.
type ActivityFactorFunc[T any] func(item T) float64

type activityInfo struct {
	id         ActivityID
	finishWork float64
}

type activityHeap []activityInfo

func (h activityHeap) Len() int { return len(h) }
func (h activityHeap) Less(i, j int) bool {
	if h[i].finishWork != h[j].finishWork {
		return h[i].finishWork < h[j].finishWork
	}
	return h[i].id < h[j].id
}
func (h activityHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *activityHeap) Push(x any)        { *h = append(*h, x.(activityInfo)) }
func (h *activityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type runningActivity[T any] struct {
	startWork float64
	item      T
}

// FairSharingModel implements processor-sharing throughput allocation: every
// concurrently running activity gets an equal slice of the resource's
// throughput (after applying its factor), and the model can tell a caller
// the simulated time at which any given activity will finish, in O(log n)
// per operation. Grounded line-for-line on
// original_source/crates/dslab-models/src/throughput_sharing/fair_fast_with_cancel.rs.
type FairSharingModel[T any] struct {
	queue      activityHeap
	running    map[ActivityID]runningActivity[T]
	throughput ThroughputFunc
	factor     ActivityFactorFunc[T]

	throughputPerActivity float64
	nextID                ActivityID
	totalWork             float64
	lastUpdate            float64
}

// NewFairSharingModel creates a model with a dynamic aggregate throughput
// function and a per-activity factor function.
func NewFairSharingModel[T any](throughput ThroughputFunc, factor ActivityFactorFunc[T]) *FairSharingModel[T] {
	if factor == nil {
		factor = func(T) float64 { return 1 }
	}
	return &FairSharingModel[T]{
		running:    make(map[ActivityID]runningActivity[T]),
		throughput: throughput,
		factor:     factor,
	}
}

// NewFixedThroughputModel creates a model with a constant aggregate throughput.
func NewFixedThroughputModel[T any](throughput float64) *FairSharingModel[T] {
	return NewFairSharingModel[T](func(int) float64 { return throughput }, nil)
}

func (m *FairSharingModel[T]) incrementTotalWork(delta float64) {
	m.totalWork += delta
	if m.totalWork <= totalWorkRebaseThreshold {
		return
	}
	rebased := make(activityHeap, 0, len(m.queue))
	for len(m.queue) > 0 {
		a := heap.Pop(&m.queue).(activityInfo)
		a.finishWork -= m.totalWork
		rebased = append(rebased, a)
	}
	m.queue = rebased
	heap.Init(&m.queue)
	for id, a := range m.running {
		a.startWork -= m.totalWork
		m.running[id] = a
	}
	m.totalWork = 0
}

func (m *FairSharingModel[T]) recalculateThroughput() {
	count := len(m.running)
	if count == 0 {
		m.throughputPerActivity = 0
		return
	}
	m.throughputPerActivity = m.throughput(count) / float64(count)
}

// Insert adds item with the given volume of work at currentTime, returning
// its ActivityID.
func (m *FairSharingModel[T]) Insert(currentTime float64, volume float64, item T) ActivityID {
	if len(m.queue) > 0 {
		m.incrementTotalWork((currentTime - m.lastUpdate) * m.throughputPerActivity)
	}
	volume /= m.factor(item)
	finishWork := m.totalWork + volume
	id := m.nextID
	m.nextID++
	heap.Push(&m.queue, activityInfo{id: id, finishWork: finishWork})
	m.running[id] = runningActivity[T]{startWork: m.totalWork, item: item}
	m.recalculateThroughput()
	m.lastUpdate = currentTime
	return id
}

// Pop removes and returns the earliest-finishing live activity and the
// simulated time it finishes at. Cancelled activities are skipped lazily.
func (m *FairSharingModel[T]) Pop() (float64, T, bool) {
	for len(m.queue) > 0 {
		entry := heap.Pop(&m.queue).(activityInfo)
		a, ok := m.running[entry.id]
		if !ok {
			continue
		}
		delete(m.running, entry.id)
		remainingWork := entry.finishWork - m.totalWork
		finishTime := m.lastUpdate + remainingWork/m.throughputPerActivity
		m.incrementTotalWork(remainingWork)
		m.recalculateThroughput()
		m.lastUpdate = finishTime
		return finishTime, a.item, true
	}
	var zero T
	return 0, zero, false
}

// Peek reports the earliest-finishing live activity without removing it.
func (m *FairSharingModel[T]) Peek() (float64, T, bool) {
	for len(m.queue) > 0 {
		entry := m.queue[0]
		a, ok := m.running[entry.id]
		if !ok {
			heap.Pop(&m.queue)
			continue
		}
		finishTime := m.lastUpdate + (entry.finishWork-m.totalWork)/m.throughputPerActivity
		return finishTime, a.item, true
	}
	var zero T
	return 0, zero, false
}

// Cancel removes id from the running set without waiting for it to finish,
// returning the volume of work it had completed so far and its item. The
// heap entry is left in place as a tombstone and skipped lazily by the next
// Pop or Peek. Grounded on fair_fast_with_cancel.rs's cancel.
func (m *FairSharingModel[T]) Cancel(currentTime float64, id ActivityID) (float64, T, bool) {
	a, ok := m.running[id]
	if !ok {
		var zero T
		return 0, zero, false
	}
	delete(m.running, id)
	if len(m.queue) > 0 {
		m.incrementTotalWork((currentTime - m.lastUpdate) * m.throughputPerActivity)
	}
	m.recalculateThroughput()
	m.lastUpdate = currentTime
	volumeDone := m.totalWork - a.startWork
	return volumeDone, a.item, true
}

// Len reports the number of currently running (non-cancelled) activities.
func (m *FairSharingModel[T]) Len() int { return len(m.running) }
