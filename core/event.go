package core

// ComponentID identifies a registered component. IDs are dense and assigned
// in registration order, starting at zero.
type ComponentID uint32

// EventID uniquely identifies an event within a Simulation, in the order it
// was added to the event queue.
type EventID uint64

// Event is a single scheduled occurrence: a payload value travelling from a
// source component to a destination component, due to arrive at Time.
type Event struct {
	ID      EventID
	Time    float64
	Src     ComponentID
	Dest    ComponentID
	Payload any
}

// eventEntry is the heap element backing the event queue. Ordered by
// (Time, ID) with ID as a tiebreak, giving FIFO delivery of same-time
// events — mirrors original_source/core/src/sim.rs's EventEntry Ord.
type eventEntry struct {
	event Event
}

type eventHeap []*eventEntry

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].event.Time, h[j].event.Time
	if ti != tj {
		return ti < tj
	}
	return h[i].event.ID < h[j].event.ID
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*eventEntry))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
