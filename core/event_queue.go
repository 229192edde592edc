package core

import "container/heap"

// eventQueue holds not-yet-delivered events in (time, id) order and applies
// lazy deletion for cancelled entries: cancelling marks an id rather than
// touching the heap, and pop/peek silently skip tombstoned entries.
// Grounded on original_source/core/src/sim.rs's canceled_events: HashSet<u64>.
type eventQueue struct {
	heap      eventHeap
	cancelled map[EventID]struct{}
	nextID    EventID
}

func newEventQueue() *eventQueue {
	return &eventQueue{cancelled: make(map[EventID]struct{})}
}

// add schedules a new event, returning its assigned id.
func (q *eventQueue) add(src, dest ComponentID, payload any, time float64) EventID {
	id := q.nextID
	q.nextID++
	heap.Push(&q.heap, &eventEntry{event: Event{ID: id, Time: time, Src: src, Dest: dest, Payload: payload}})
	return id
}

// cancel marks id as cancelled; it is silently discarded the next time it
// would otherwise be popped or peeked.
func (q *eventQueue) cancel(id EventID) {
	q.cancelled[id] = struct{}{}
}

// cancelMatching cancels every live, not-yet-delivered event satisfying
// pred, returning how many were cancelled.
func (q *eventQueue) cancelMatching(pred func(Event) bool) int {
	count := 0
	for _, e := range q.heap {
		if _, dead := q.cancelled[e.event.ID]; dead {
			continue
		}
		if pred(e.event) {
			q.cancelled[e.event.ID] = struct{}{}
			count++
		}
	}
	return count
}

// pop removes and returns the earliest live event, discarding any
// cancelled entries in its way. Returns false when no live event remains.
func (q *eventQueue) pop() (Event, bool) {
	for q.heap.Len() > 0 {
		entry := heap.Pop(&q.heap).(*eventEntry)
		if _, dead := q.cancelled[entry.event.ID]; dead {
			delete(q.cancelled, entry.event.ID)
			continue
		}
		return entry.event, true
	}
	return Event{}, false
}

// peekTime reports the time of the earliest live event without removing it.
func (q *eventQueue) peekTime() (float64, bool) {
	for q.heap.Len() > 0 {
		top := q.heap[0]
		if _, dead := q.cancelled[top.event.ID]; dead {
			heap.Pop(&q.heap)
			delete(q.cancelled, top.event.ID)
			continue
		}
		return top.event.Time, true
	}
	return 0, false
}

// len reports the number of entries still physically in the heap, including
// not-yet-swept tombstones; useful only for queue-depth metrics.
func (q *eventQueue) len() int { return q.heap.Len() }
