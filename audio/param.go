package audio

import (
	"math"
	"sort"
	"sync"
)

type eventKind int

const (
	setEvent eventKind = iota
	linearRampEvent
	exponentialRampEvent
)

type event struct {
	kind  eventKind
	value float64
	time  float64

	// where a ramp starts when no earlier event exists
	startTime  float64
	startValue float64
}

// Param is a time-addressable numeric control.
// Values are computed per frame from an intrinsic value plus a sorted list
// of automation events, the same model as a Web Audio AudioParam.
type Param struct {
	ctx *Context

	mu     sync.Mutex
	value  float64
	events []event
}

func newParam(ctx *Context, value float64) *Param {
	return &Param{ctx: ctx, value: value}
}

// CurrentTime returns the owning context's clock in seconds
func (p *Param) CurrentTime() float64 {
	return p.ctx.CurrentTime()
}

// Value returns the parameter's live value at the current time
func (p *Param) Value() float64 {
	now := p.ctx.CurrentTime()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueAt(now)
}

// SetValue sets the value from now on, like assigning AudioParam.value
func (p *Param) SetValue(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	now := p.ctx.CurrentTime()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
	if len(p.events) > 0 {
		p.insert(event{kind: setEvent, value: v, time: now})
	}
}

// CancelScheduledValues removes every event scheduled at or after t
func (p *Param) CancelScheduledValues(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time >= t })
	p.events = p.events[:i]
}

// LinearRampToValueAtTime ramps linearly from the previous event to v at t
func (p *Param) LinearRampToValueAtTime(v, t float64) {
	p.schedule(linearRampEvent, v, t)
}

// ExponentialRampToValueAtTime ramps exponentially from the previous event to v at t.
// A ramp with a zero endpoint, or endpoints of opposite sign, holds its start
// value until t and then jumps.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) {
	p.schedule(exponentialRampEvent, v, t)
}

func (p *Param) schedule(kind eventKind, v, t float64) {
	if math.IsNaN(v) || math.IsNaN(t) || math.IsInf(t, 0) {
		return
	}
	now := p.ctx.CurrentTime()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(now)
	p.insert(event{
		kind:       kind,
		value:      v,
		time:       t,
		startTime:  now,
		startValue: p.valueAt(now),
	})
}

// insert keeps events sorted by time; equal times keep insertion order
func (p *Param) insert(e event) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > e.time })
	p.events = append(p.events, event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

// prune drops events that ended before now, keeping the latest one as the anchor
func (p *Param) prune(now float64) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > now })
	if i >= 2 {
		n := copy(p.events, p.events[i-1:])
		p.events = p.events[:n]
	}
}

func (p *Param) valueAt(t float64) float64 {
	if len(p.events) == 0 {
		return p.value
	}
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > t })
	if i < len(p.events) {
		next := p.events[i]
		if next.kind != setEvent {
			t0, v0 := next.startTime, next.startValue
			if i > 0 {
				t0, v0 = p.events[i-1].time, p.events[i-1].value
			}
			return interpolate(next.kind, t0, v0, next.time, next.value, t)
		}
	}
	if i > 0 {
		return p.events[i-1].value
	}
	return p.value
}

func interpolate(kind eventKind, t0, v0, t1, v1, t float64) float64 {
	if t <= t0 || t1 <= t0 {
		return v0
	}
	frac := (t - t0) / (t1 - t0)
	switch kind {
	case exponentialRampEvent:
		if v0 == 0 || v1 == 0 || (v0 < 0) != (v1 < 0) {
			return v0
		}
		return v0 * math.Pow(v1/v0, frac)
	default:
		return v0 + (v1-v0)*frac
	}
}

// fill writes one value per frame starting at frame
func (p *Param) fill(frame int64, out []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		for i := range out {
			out[i] = p.value
		}
		return
	}
	p.prune(p.ctx.timeOf(frame))
	for i := range out {
		out[i] = p.valueAt(p.ctx.timeOf(frame + int64(i)))
	}
}
