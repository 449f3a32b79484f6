package sequencer

import (
	"context"
	"math"
	"sync"
	"time"

	"go-drum/debug"
)

// TickReceiver consumes clock ticks; Sequence implements it
type TickReceiver interface {
	OnTick(t Tick)
}

// DefaultInterval is the clock interval before any tempo is set
const DefaultInterval = time.Second

// IntervalForTempo converts a tempo and a step length (a fraction of a
// 4/4 measure, e.g. 1/16) to a clock interval. ok is false when either
// input is not a positive number.
func IntervalForTempo(bpm, stepDuration float64) (time.Duration, bool) {
	if !positive(bpm) || !positive(stepDuration) {
		return 0, false
	}
	ms := 60000.0 / bpm * 4 * stepDuration
	d := time.Duration(math.Round(ms * float64(time.Millisecond)))
	if d <= 0 {
		return 0, false
	}
	return d, true
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Dispatcher owns one StepClock and fans its ticks out to sequences
type Dispatcher struct {
	mu        sync.RWMutex
	receivers []TickReceiver
	clock     *StepClock
	interval  time.Duration

	src    TimeSource
	buffer int
	ready  bool
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithTimeSource replaces the wall clock, for tests
func WithTimeSource(src TimeSource) DispatcherOption {
	return func(d *Dispatcher) {
		d.src = src
	}
}

// WithInterval sets the initial clock interval
func WithInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.interval = interval
	}
}

// WithTickBuffer sets how many ticks may queue before they are dropped
func WithTickBuffer(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.buffer = n
	}
}

// NewDispatcher creates an uninitialized dispatcher; call Init before Start
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		interval: DefaultInterval,
		src:      SystemTime,
		buffer:   64,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init starts the clock and dispatch goroutines. If the clock cannot be
// created, onError is called once and the dispatcher stays inert.
func (d *Dispatcher) Init(ctx context.Context, onError func(error)) error {
	d.mu.Lock()
	if d.ready {
		d.mu.Unlock()
		return nil
	}
	clock, err := NewStepClock(d.interval, d.src, d.buffer)
	if err != nil {
		d.mu.Unlock()
		debug.Error("clock", err, "dispatcher init")
		if onError != nil {
			onError(err)
		}
		return err
	}
	d.clock = clock
	d.ready = true
	d.mu.Unlock()

	go clock.Run(ctx)
	go d.dispatchLoop(clock)
	return nil
}

// Ready reports whether Init succeeded
func (d *Dispatcher) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

func (d *Dispatcher) dispatchLoop(clock *StepClock) {
	for t := range clock.Ticks() {
		d.Dispatch(t)
	}
}

// Dispatch delivers t to every receiver in registration order
func (d *Dispatcher) Dispatch(t Tick) {
	d.mu.RLock()
	receivers := append([]TickReceiver(nil), d.receivers...)
	d.mu.RUnlock()

	debug.LogEvery(64, "tick", "count=%d drift=%v", t.Count, t.Drift)
	for _, r := range receivers {
		r.OnTick(t)
	}
}

// AddSequence registers r for ticks
func (d *Dispatcher) AddSequence(r TickReceiver) {
	if r == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receivers = append(d.receivers, r)
}

// RemoveSequence unregisters every registration of r
func (d *Dispatcher) RemoveSequence(r TickReceiver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.receivers[:0]
	for _, existing := range d.receivers {
		if existing != r {
			kept = append(kept, existing)
		}
	}
	clear(d.receivers[len(kept):])
	d.receivers = kept
}

// Sequences returns the number of registered receivers
func (d *Dispatcher) Sequences() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.receivers)
}

// Start starts the clock; a no-op before a successful Init
func (d *Dispatcher) Start() {
	if c := d.getClock(); c != nil {
		c.Start()
	}
}

// Stop stops the clock
func (d *Dispatcher) Stop() {
	if c := d.getClock(); c != nil {
		c.Stop()
	}
}

// Interval returns the current clock interval
func (d *Dispatcher) Interval() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.interval
}

// UpdateInterval sets the clock interval; non-positive values are ignored
func (d *Dispatcher) UpdateInterval(interval time.Duration) {
	if interval <= 0 {
		debug.Log("clock", "ignoring interval %v", interval)
		return
	}
	d.mu.Lock()
	d.interval = interval
	c := d.clock
	d.mu.Unlock()
	if c != nil {
		c.UpdateInterval(interval)
	}
}

// UpdateTempo sets the interval from a tempo and step length.
// Invalid input leaves the previous interval in place.
func (d *Dispatcher) UpdateTempo(bpm, stepDuration float64) {
	interval, ok := IntervalForTempo(bpm, stepDuration)
	if !ok {
		debug.Log("clock", "ignoring tempo %v step %v", bpm, stepDuration)
		return
	}
	d.UpdateInterval(interval)
}

func (d *Dispatcher) getClock() *StepClock {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clock
}
