package sequencer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestIntervalForTempo(t *testing.T) {
	tests := []struct {
		name   string
		bpm    float64
		step   float64
		want   time.Duration
		wantOK bool
	}{
		{"sixteenths at 120", 120, 1.0 / 16, 125 * time.Millisecond, true},
		{"quarters at 60", 60, 1.0 / 4, time.Second, true},
		{"eighths at 90", 90, 1.0 / 8, 333333333 * time.Nanosecond, true},
		{"zero tempo", 0, 1.0 / 16, 0, false},
		{"negative step", 120, -1, 0, false},
		{"NaN tempo", math.NaN(), 1.0 / 16, 0, false},
		{"infinite step", 120, math.Inf(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntervalForTempo(tt.bpm, tt.step)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("IntervalForTempo(%v, %v) = %v, %v; want %v, %v", tt.bpm, tt.step, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

type recorder struct {
	name string
	log  *[]string
}

func (r *recorder) OnTick(Tick) { *r.log = append(*r.log, r.name) }

func TestDispatchOrderAndRemoval(t *testing.T) {
	var log []string
	a := &recorder{"a", &log}
	b := &recorder{"b", &log}

	d := NewDispatcher()
	d.AddSequence(a)
	d.AddSequence(b)
	d.AddSequence(a)
	d.AddSequence(nil)
	if got := d.Sequences(); got != 3 {
		t.Fatalf("Sequences() = %d, want 3", got)
	}

	d.Dispatch(Tick{})
	if want := []string{"a", "b", "a"}; !equalStrings(log, want) {
		t.Fatalf("order = %v, want %v", log, want)
	}

	log = nil
	d.RemoveSequence(a)
	d.RemoveSequence(&recorder{"a", &log})
	d.Dispatch(Tick{})
	if want := []string{"b"}; !equalStrings(log, want) {
		t.Fatalf("after removal = %v, want %v", log, want)
	}
}

func TestDispatcherInitFailure(t *testing.T) {
	d := NewDispatcher(WithInterval(0))
	calls := 0
	var reported error
	err := d.Init(context.Background(), func(err error) {
		calls++
		reported = err
	})
	if !errors.Is(err, ErrClockInit) {
		t.Fatalf("Init err = %v, want ErrClockInit", err)
	}
	if calls != 1 || !errors.Is(reported, ErrClockInit) {
		t.Fatalf("onError called %d times with %v", calls, reported)
	}
	if d.Ready() {
		t.Error("Ready() = true after failed Init")
	}
	// inert, not panicking
	d.Start()
	d.Stop()
}

func TestDispatcherInitTwice(t *testing.T) {
	ft := newFakeTime()
	d := NewDispatcher(WithTimeSource(ft))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Init(ctx, nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	first := d.getClock()
	if err := d.Init(ctx, nil); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if d.getClock() != first {
		t.Error("second Init replaced the clock")
	}
}

func TestDispatcherUpdateTempo(t *testing.T) {
	d := NewDispatcher()
	if got := d.Interval(); got != DefaultInterval {
		t.Fatalf("initial interval = %v, want %v", got, DefaultInterval)
	}
	d.UpdateTempo(120, 1.0/16)
	if got := d.Interval(); got != 125*time.Millisecond {
		t.Fatalf("interval = %v, want 125ms", got)
	}
	d.UpdateTempo(0, 1.0/16)
	d.UpdateTempo(120, math.NaN())
	d.UpdateInterval(-time.Second)
	if got := d.Interval(); got != 125*time.Millisecond {
		t.Errorf("invalid update changed interval to %v", got)
	}
}

func TestDispatcherDeliversClockTicks(t *testing.T) {
	ft := newFakeTime()
	d := NewDispatcher(WithTimeSource(ft), WithInterval(125*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Tick, 8)
	d.AddSequence(tickFunc(func(t Tick) { got <- t }))
	if err := d.Init(ctx, nil); err != nil {
		t.Fatal(err)
	}
	d.Start()

	recvTick(t, got)
	req := ft.nextRequest(t)
	req.ch <- ft.advance(req.d)
	if tick := recvTick(t, got); tick.Count != 1 || tick.Interval != 125*time.Millisecond {
		t.Errorf("tick = %+v, want count 1 at 125ms", tick)
	}
}

type tickFunc func(Tick)

func (f tickFunc) OnTick(t Tick) { f(t) }

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
