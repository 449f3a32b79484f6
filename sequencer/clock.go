package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go-drum/debug"
)

// ErrClockInit is reported when the step clock cannot be started
var ErrClockInit = errors.New("step clock init failed")

// Tick is one timing pulse from the step clock
type Tick struct {
	Time     time.Duration // nominal elapsed time, Count * Interval
	Drift    time.Duration // measured elapsed minus nominal
	Count    int64
	Interval time.Duration
}

// TimeSource lets tests drive the clock without sleeping
type TimeSource interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time                         { return time.Now() }
func (systemTime) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemTime is the wall clock
var SystemTime TimeSource = systemTime{}

type clockCommand int

const (
	cmdStart clockCommand = iota
	cmdStop
	cmdInterval
)

type command struct {
	kind     clockCommand
	interval time.Duration
}

// StepClock emits drift-corrected ticks from its own goroutine. Its
// counters are owned by Run; other goroutines talk to it only through
// commands and the tick channel.
type StepClock struct {
	src      TimeSource
	commands chan command
	ticks    chan Tick
	done     chan struct{}
	running  atomic.Bool

	// owned by Run
	interval time.Duration
	base     time.Time
	elapsed  time.Duration
	drift    time.Duration
	count    int64
}

// NewStepClock creates a stopped clock. Ticks are buffered up to buffer;
// a consumer that falls further behind loses ticks.
func NewStepClock(interval time.Duration, src TimeSource, buffer int) (*StepClock, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval %v", ErrClockInit, interval)
	}
	if src == nil {
		src = SystemTime
	}
	if buffer < 1 {
		buffer = 1
	}
	return &StepClock{
		src:      src,
		commands: make(chan command, 16),
		ticks:    make(chan Tick, buffer),
		done:     make(chan struct{}),
		interval: interval,
	}, nil
}

// Ticks delivers ticks in the order they were produced
func (c *StepClock) Ticks() <-chan Tick {
	return c.ticks
}

// Running reports whether the clock is emitting ticks
func (c *StepClock) Running() bool {
	return c.running.Load()
}

// Start begins emitting ticks: one immediately, then every interval
func (c *StepClock) Start() { c.send(command{kind: cmdStart}) }

// Stop halts the clock and zeroes its counters
func (c *StepClock) Stop() { c.send(command{kind: cmdStop}) }

// UpdateInterval changes the interval used for future firings.
// Non-positive intervals are ignored.
func (c *StepClock) UpdateInterval(d time.Duration) {
	if d <= 0 {
		debug.Log("clock", "ignoring interval %v", d)
		return
	}
	c.send(command{kind: cmdInterval, interval: d})
}

func (c *StepClock) send(cmd command) {
	select {
	case c.commands <- cmd:
	case <-c.done:
	}
}

// Run processes commands and timer firings until ctx is cancelled.
// The tick channel is closed when Run returns.
func (c *StepClock) Run(ctx context.Context) {
	defer close(c.ticks)
	defer close(c.done)

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			c.running.Store(false)
			return

		case cmd := <-c.commands:
			switch cmd.kind {
			case cmdStart:
				if c.running.Load() {
					continue
				}
				c.running.Store(true)
				c.base = c.src.Now()
				c.emit()
				timer = c.src.After(c.interval)
			case cmdStop:
				c.running.Store(false)
				c.reset()
				// a firing already armed is dropped with the channel
				timer = nil
			case cmdInterval:
				c.interval = cmd.interval
				debug.Log("clock", "interval %v", cmd.interval)
			}

		case <-timer:
			if !c.running.Load() {
				timer = nil
				continue
			}
			c.count++
			c.elapsed += c.interval
			c.drift = c.src.Now().Sub(c.base) - c.elapsed
			c.emit()
			timer = c.src.After(c.interval - c.drift)
		}
	}
}

func (c *StepClock) reset() {
	c.base = time.Time{}
	c.elapsed = 0
	c.drift = 0
	c.count = 0
}

func (c *StepClock) emit() {
	t := Tick{
		Time:     c.elapsed,
		Drift:    c.drift,
		Count:    c.count,
		Interval: c.interval,
	}
	select {
	case c.ticks <- t:
	default:
		debug.Log("clock", "tick %d dropped, consumer behind", t.Count)
	}
}
