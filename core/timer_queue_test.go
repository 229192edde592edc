package core

import "testing"

func TestTimerQueueOrdersByFireThenID(t *testing.T) {
	q := newTimerQueue()
	idLate := q.schedule(0, 10, &timerHandle{})
	idEarly := q.schedule(0, 1, &timerHandle{})
	idTie := q.schedule(0, 10, &timerHandle{})

	first, ok := q.pop()
	if !ok || first.id != idEarly {
		t.Fatalf("expected earliest timer first, got %+v", first)
	}
	second, ok := q.pop()
	if !ok || second.id != idLate {
		t.Fatalf("expected later timer (lower id at tied fire time) next, got %+v", second)
	}
	third, ok := q.pop()
	if !ok || third.id != idTie {
		t.Fatalf("expected the higher-id timer at the tied fire time last, got %+v", third)
	}
}

func TestTimerQueueCancelSkipsEntry(t *testing.T) {
	q := newTimerQueue()
	id1 := q.schedule(0, 1, &timerHandle{})
	id2 := q.schedule(0, 2, &timerHandle{})
	q.cancel(id1)

	entry, ok := q.pop()
	if !ok || entry.id != id2 {
		t.Fatalf("expected cancelled timer skipped, got %+v ok=%v", entry, ok)
	}
	if _, ok := q.pop(); ok {
		t.Fatalf("expected queue empty")
	}
}
