package core

// executor owns the ready queue of tasks waiting to be polled. Grounded on
// original_source/crates/async-dslab-core/src/executor.rs's
// process_tasks-drains-to-quiescence behavior, translated from an mpsc
// channel to a plain FIFO slice since there is only ever one goroutine
// actually producing/consuming it at a time.
type executor struct {
	ready []*Task
	bound int
}

func newExecutor(bound int) *executor {
	return &executor{bound: bound}
}

// enqueue appends t to the ready queue. Panics with ErrReadyQueueFull if the
// queue is already at its configured bound, mirroring the original's
// bounded sync_channel("too many tasks queued").
func (e *executor) enqueue(t *Task) {
	if e.bound > 0 && len(e.ready) >= e.bound {
		fatalf(ErrReadyQueueFull, "bound=%d", e.bound)
	}
	e.ready = append(e.ready, t)
}

// drain polls every task in the ready queue to quiescence: a task that
// enqueues itself or spawns a new task while being polled is picked up
// within the same drain call, since the loop re-checks the queue length on
// every iteration rather than snapshotting it up front.
func (e *executor) drain() {
	for len(e.ready) > 0 {
		t := e.ready[0]
		e.ready = e.ready[1:]
		if t.finished {
			continue
		}
		t.poll()
	}
}

func (e *executor) depth() int { return len(e.ready) }
