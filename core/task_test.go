package core

import "testing"

type greeting struct{ Text string }

func TestTaskRecvFromAnySource(t *testing.T) {
	s := New(1)
	a := s.CreateContext("a")
	b := s.CreateContext("b")

	var received string
	done := false
	b.Spawn(func(task *Task) {
		_, g := Recv[greeting](task)
		received = g.Text
		done = true
	})

	a.Emit(greeting{Text: "hello"}, b.Self(), 1)
	s.StepUntilNoEvents()

	if !done || received != "hello" {
		t.Fatalf("expected task to receive greeting, got done=%v received=%q", done, received)
	}
	if s.Time() != 1 {
		t.Fatalf("expected clock to land on the event time, got %v", s.Time())
	}
}

func TestTaskRecvFromSpecificSource(t *testing.T) {
	s := New(1)
	a := s.CreateContext("a")
	x := s.CreateContext("x")
	b := s.CreateContext("b")

	var from string
	b.Spawn(func(task *Task) {
		ev, _ := RecvFrom[greeting](task, x.Self())
		name, _ := s.LookupName(ev.Src)
		from = name
	})

	a.Emit(greeting{Text: "wrong sender"}, b.Self(), 1)
	x.Emit(greeting{Text: "right sender"}, b.Self(), 2)
	s.StepUntilNoEvents()

	if from != "x" {
		t.Fatalf("expected receipt specifically from x, got %q", from)
	}
}

type tagged struct {
	Key  int64
	Text string
}

func TestTaskRecvByKey(t *testing.T) {
	s := New(1)
	RegisterKeyGetter(s, func(p tagged) int64 { return p.Key })

	a := s.CreateContext("a")
	b := s.CreateContext("b")

	var got string
	b.Spawn(func(task *Task) {
		_, p := RecvByKey[tagged](task, 42)
		got = p.Text
	})

	a.Emit(tagged{Key: 1, Text: "not this one"}, b.Self(), 1)
	a.Emit(tagged{Key: 42, Text: "this one"}, b.Self(), 2)
	s.StepUntilNoEvents()

	if got != "this one" {
		t.Fatalf("expected the keyed event to be matched, got %q", got)
	}
}

func TestTaskSleepAdvancesClock(t *testing.T) {
	s := New(1)
	c := s.CreateContext("c")

	var woke bool
	c.Spawn(func(task *Task) {
		task.Sleep(5)
		woke = true
	})

	s.StepUntilNoEvents()
	if !woke {
		t.Fatalf("expected task to resume after sleeping")
	}
	if s.Time() != 5 {
		t.Fatalf("expected clock at 5 after sleep, got %v", s.Time())
	}
}

func TestTaskSleepNegativeDelayPanics(t *testing.T) {
	s := New(1)
	c := s.CreateContext("c")

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on negative sleep delay")
		}
	}()
	c.Spawn(func(task *Task) {
		task.Sleep(-1)
	})
	s.StepUntilNoEvents()
}

func TestTaskSpawnRunsConcurrentlyScheduled(t *testing.T) {
	s := New(1)
	c := s.CreateContext("c")

	order := []string{}
	c.Spawn(func(task *Task) {
		task.Spawn(func(inner *Task) {
			order = append(order, "child")
		})
		order = append(order, "parent")
	})

	s.StepUntilNoEvents()
	if len(order) != 2 || order[0] != "parent" || order[1] != "child" {
		t.Fatalf("expected parent to run to its first suspension before child starts, got %v", order)
	}
}

func TestRecvWithTimeoutFiresOnTimeout(t *testing.T) {
	s := New(1)
	c := s.CreateContext("c")

	var result AwaitResult[greeting]
	c.Spawn(func(task *Task) {
		result = RecvWithTimeout[greeting](task, 3)
	})

	s.StepUntilNoEvents()
	if !result.TimedOut() {
		t.Fatalf("expected timeout since no event was ever emitted")
	}
	if s.Time() != 3 {
		t.Fatalf("expected clock at the timeout deadline, got %v", s.Time())
	}
}

func TestRecvWithTimeoutResolvesBeforeDeadline(t *testing.T) {
	s := New(1)
	a := s.CreateContext("a")
	b := s.CreateContext("b")

	var result AwaitResult[greeting]
	b.Spawn(func(task *Task) {
		result = RecvWithTimeout[greeting](task, 10)
	})
	a.Emit(greeting{Text: "on time"}, b.Self(), 2)

	s.StepUntilNoEvents()
	if result.TimedOut() {
		t.Fatalf("expected the event to win the race against the timeout")
	}
	if result.Value().Text != "on time" {
		t.Fatalf("expected payload from the winning event, got %+v", result.Value())
	}
	if s.Time() != 2 {
		t.Fatalf("expected clock to land on the event's time, not the timeout's, got %v", s.Time())
	}
}
