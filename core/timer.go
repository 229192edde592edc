package core

// TimerID uniquely identifies a scheduled timer within a Simulation.
type TimerID uint64

// timerHandle carries the callback run once, when its timer fires. A timer
// cancelled before its deadline (e.g. the losing side of the race in
// awaitEventOrTimeout in task.go) is discarded by timerQueue without
// calling onFire.
type timerHandle struct {
	onFire func()
}

type timerEntry struct {
	id     TimerID
	fire   float64
	owner  ComponentID
	handle *timerHandle
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	ti, tj := h[i].fire, h[j].fire
	if ti != tj {
		return ti < tj
	}
	return h[i].id < h[j].id
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*timerEntry))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
