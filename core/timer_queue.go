package core

import "container/heap"

// timerQueue holds scheduled timers in (fire time, id) order, with the same
// lazy-cancellation discipline as eventQueue. Grounded on
// original_source/crates/async-dslab-core/src/async_state.rs's
// BinaryHeap<Timer> and the tombstone idiom from fair_fast_with_cancel.rs.
type timerQueue struct {
	heap      timerHeap
	cancelled map[TimerID]struct{}
	nextID    TimerID
}

func newTimerQueue() *timerQueue {
	return &timerQueue{cancelled: make(map[TimerID]struct{})}
}

func (q *timerQueue) schedule(owner ComponentID, fire float64, handle *timerHandle) TimerID {
	id := q.nextID
	q.nextID++
	heap.Push(&q.heap, &timerEntry{id: id, fire: fire, owner: owner, handle: handle})
	return id
}

func (q *timerQueue) cancel(id TimerID) {
	q.cancelled[id] = struct{}{}
}

func (q *timerQueue) pop() (*timerEntry, bool) {
	for q.heap.Len() > 0 {
		entry := heap.Pop(&q.heap).(*timerEntry)
		if _, dead := q.cancelled[entry.id]; dead {
			delete(q.cancelled, entry.id)
			continue
		}
		return entry, true
	}
	return nil, false
}

func (q *timerQueue) peekTime() (float64, bool) {
	for q.heap.Len() > 0 {
		top := q.heap[0]
		if _, dead := q.cancelled[top.id]; dead {
			heap.Pop(&q.heap)
			delete(q.cancelled, top.id)
			continue
		}
		return top.fire, true
	}
	return 0, false
}

func (q *timerQueue) len() int { return q.heap.Len() }
