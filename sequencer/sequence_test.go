package sequencer

import (
	"context"
	"testing"
	"time"
)

func countingSequence(n int) (*Sequence, []int) {
	s := NewSequence()
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		s.AddEvent(func() { counts[i]++ })
	}
	return s, counts
}

func TestSequenceRepeat(t *testing.T) {
	s, counts := countingSequence(3)
	s.Play()
	for i := 0; i < 7; i++ {
		s.OnTick(Tick{})
	}
	if counts[0] != 3 || counts[1] != 2 || counts[2] != 2 {
		t.Errorf("counts = %v, want [3 2 2]", counts)
	}
	if got := s.Position(); got != 1 {
		t.Errorf("Position() = %d, want 1", got)
	}
	if !s.Running() {
		t.Error("repeating sequence stopped")
	}
}

func TestSequenceWithoutRepeatStopsAfterOnePass(t *testing.T) {
	s, counts := countingSequence(3)
	s.SetRepeat(false)
	s.Play()
	for i := 0; i < 5; i++ {
		s.OnTick(Tick{})
	}
	if counts[0] != 1 || counts[1] != 1 || counts[2] != 1 {
		t.Errorf("counts = %v, want [1 1 1]", counts)
	}
	if s.Running() || s.Position() != 0 {
		t.Errorf("Running() = %v Position() = %d, want stopped at 0", s.Running(), s.Position())
	}
}

func TestSequenceTransport(t *testing.T) {
	s, counts := countingSequence(4)

	s.OnTick(Tick{})
	if counts[0] != 0 {
		t.Fatal("stopped sequence fired")
	}

	s.Play()
	s.OnTick(Tick{})
	s.OnTick(Tick{})
	s.Pause()
	s.OnTick(Tick{})
	if got := s.Position(); got != 2 {
		t.Fatalf("paused Position() = %d, want 2", got)
	}

	s.Play()
	s.OnTick(Tick{})
	if counts[2] != 1 {
		t.Errorf("resume did not continue from step 2: %v", counts)
	}

	s.Stop()
	if s.Running() || s.Position() != 0 {
		t.Errorf("Stop left Running() = %v Position() = %d", s.Running(), s.Position())
	}
	s.Stop()
	if s.Running() || s.Position() != 0 || s.Len() != 4 {
		t.Errorf("second Stop left Running() = %v Position() = %d Len() = %d", s.Running(), s.Position(), s.Len())
	}

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d", s.Len())
	}
	s.Play()
	s.OnTick(Tick{}) // empty sequence is a no-op
}

func TestSequenceEditing(t *testing.T) {
	var fired []string
	s := NewSequence()
	for _, name := range []string{"a", "b", "c"} {
		s.AddEvent(func() { fired = append(fired, name) })
	}

	s.ReplaceEventAtPosition(1, func() { fired = append(fired, "B") })
	s.ReplaceEventAtPosition(3, func() { fired = append(fired, "x") })
	s.ReplaceEventAtPosition(-1, func() { fired = append(fired, "x") })
	s.RemoveEventAtPosition(5)
	s.RemoveEventAtPosition(-1)
	if s.Len() != 3 {
		t.Fatalf("out of range edits changed length to %d", s.Len())
	}

	s.Play()
	s.OnTick(Tick{})
	s.OnTick(Tick{})
	// position is now 2, the last step; removing it rewinds
	s.RemoveEventAtPosition(2)
	if got := s.Position(); got != 0 {
		t.Fatalf("Position() = %d after removing last step, want 0", got)
	}
	s.OnTick(Tick{})

	if want := []string{"a", "B", "a"}; !equalStrings(fired, want) {
		t.Errorf("fired = %v, want %v", fired, want)
	}
}

func TestSequenceActionMayCallBack(t *testing.T) {
	s := NewSequence()
	s.AddEvent(func() { s.Pause() })
	s.AddEvent(func() {})
	s.Play()

	done := make(chan struct{})
	go func() {
		s.OnTick(Tick{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("action calling back into the sequence deadlocked")
	}
	if s.Running() {
		t.Error("Pause from action did not stick")
	}
	if got := s.Position(); got != 1 {
		t.Errorf("Position() = %d, want 1", got)
	}
}

// Four steps [on off off on] played through a running dispatcher
func TestSequencePatternThroughDispatcher(t *testing.T) {
	ft := newFakeTime()
	d := NewDispatcher(WithTimeSource(ft), WithInterval(125*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pattern := []bool{true, false, false, true}
	hits := make(chan int, 16)
	s := NewSequence()
	for i, on := range pattern {
		s.AddEvent(func() {
			if on {
				hits <- i
			}
		})
	}
	d.AddSequence(s)
	if err := d.Init(ctx, nil); err != nil {
		t.Fatal(err)
	}

	s.Play()
	d.Start()

	// tick 0 plus five firings covers steps 0-3 and wraps to 0, 1
	for i := 0; i < 5; i++ {
		req := ft.nextRequest(t)
		req.ch <- ft.advance(req.d)
	}
	want := []int{0, 3, 0}
	for _, w := range want {
		select {
		case got := <-hits:
			if got != w {
				t.Fatalf("hit step %d, want %d", got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for step %d", w)
		}
	}
	waitFor(t, func() bool { return s.Position() == 2 })
	select {
	case got := <-hits:
		t.Errorf("unexpected hit on step %d", got)
	default:
	}
}
