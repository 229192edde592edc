package core

import "testing"

func TestEmitSelfNowDeliversAtSameInstant(t *testing.T) {
	s := New(1)
	var got []float64
	s.AddHandler("a", func(ctx *Context, e Event) {
		got = append(got, ctx.Time())
	})
	s.CreateContext("a").EmitSelfNow("go")
	s.StepUntilNoEvents()

	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected one delivery at t=0, got %v", got)
	}
}

func TestEmitSelfNowEquivalentToZeroDelayEmitSelf(t *testing.T) {
	s := New(1)
	a := s.CreateContext("a")
	id1 := a.EmitSelf("x", 0)
	id2 := a.EmitSelfNow("x")
	if id2 <= id1 {
		t.Fatalf("expected EmitSelfNow to schedule a distinct, later event id")
	}
}
