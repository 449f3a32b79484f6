package synth

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go-drum/debug"
)

// ErrInvalidEnvelope is returned for configs with negative or non-finite values
var ErrInvalidEnvelope = errors.New("invalid envelope config")

const (
	// exponential ramps cannot reach zero; they target this level instead
	minExpLevel = 0.001
	// then fall linearly to zero over this many seconds
	zeroTail = 0.01
)

// Curve is the shape of an envelope segment
type Curve int

const (
	CurveLinear Curve = iota
	CurveExponential
)

func (c Curve) String() string {
	if c == CurveExponential {
		return "exponential"
	}
	return "linear"
}

// ParseCurve converts "linear" or "exponential" to a Curve
func ParseCurve(s string) (Curve, error) {
	switch s {
	case "linear":
		return CurveLinear, nil
	case "exponential":
		return CurveExponential, nil
	}
	return CurveLinear, fmt.Errorf("unknown curve %q", s)
}

// Param is the automation surface an envelope drives.
// audio.Param implements it.
type Param interface {
	CurrentTime() float64
	Value() float64
	CancelScheduledValues(t float64)
	LinearRampToValueAtTime(v, t float64)
	ExponentialRampToValueAtTime(v, t float64)
}

// EnvelopeConfig describes an attack-hold-decay-sustain-release shape.
// Times are seconds, values are in the bound parameter's units.
type EnvelopeConfig struct {
	AttackTime  float64
	HoldTime    float64
	DecayTime   float64
	ReleaseTime float64

	InitialValue float64
	HoldValue    float64
	SustainValue float64
	FinalValue   float64

	AttackCurve  Curve
	DecayCurve   Curve
	ReleaseCurve Curve
}

// DefaultEnvelopeConfig rises instantly to 1 and falls instantly to 0
func DefaultEnvelopeConfig() EnvelopeConfig {
	return EnvelopeConfig{
		HoldValue:    1,
		SustainValue: 1,
	}
}

// Validate checks that times are non-negative and every field is finite
func (c EnvelopeConfig) Validate() error {
	for name, v := range map[string]float64{
		"attack":  c.AttackTime,
		"hold":    c.HoldTime,
		"decay":   c.DecayTime,
		"release": c.ReleaseTime,
	} {
		if !validTime(v) {
			return fmt.Errorf("%w: %s time %v", ErrInvalidEnvelope, name, v)
		}
	}
	for name, v := range map[string]float64{
		"initial": c.InitialValue,
		"hold":    c.HoldValue,
		"sustain": c.SustainValue,
		"final":   c.FinalValue,
	} {
		if !finite(v) {
			return fmt.Errorf("%w: %s value %v", ErrInvalidEnvelope, name, v)
		}
	}
	return nil
}

// Envelope schedules AHDS rises and release falls on one parameter
type Envelope struct {
	mu    sync.Mutex
	cfg   EnvelopeConfig
	param Param
}

// NewEnvelope binds an envelope to param for its lifetime
func NewEnvelope(param Param, cfg EnvelopeConfig) (*Envelope, error) {
	if param == nil {
		return nil, fmt.Errorf("%w: nil param", ErrInvalidEnvelope)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Envelope{cfg: cfg, param: param}, nil
}

// Config returns a copy of the current settings
func (e *Envelope) Config() EnvelopeConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// On starts the attack, hold and decay stages from now
func (e *Envelope) On() {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	p := e.param
	t := p.CurrentTime()
	live := p.Value()
	p.CancelScheduledValues(t)

	// never jump backwards when retriggered mid-envelope
	start := math.Max(cfg.InitialValue, live)
	if cfg.AttackCurve == CurveExponential && start == 0 {
		start = minExpLevel
	}
	p.LinearRampToValueAtTime(start, t)

	t += cfg.AttackTime
	rampTo(p, cfg.AttackCurve, cfg.HoldValue, t)

	t += cfg.HoldTime
	p.LinearRampToValueAtTime(cfg.HoldValue, t)

	t += cfg.DecayTime
	rampTo(p, cfg.DecayCurve, cfg.SustainValue, t)
}

// Off starts the release stage from the parameter's live value
func (e *Envelope) Off() {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	p := e.param
	t := p.CurrentTime()
	live := p.Value()
	p.CancelScheduledValues(t)

	// the release ramp needs an event at the live value to start from
	p.LinearRampToValueAtTime(live, t)

	t += cfg.ReleaseTime
	rampTo(p, cfg.ReleaseCurve, cfg.FinalValue, t)
}

// Reset cancels scheduling and jumps to the initial value
func (e *Envelope) Reset() {
	e.mu.Lock()
	initial := e.cfg.InitialValue
	e.mu.Unlock()

	t := e.param.CurrentTime()
	e.param.CancelScheduledValues(t)
	e.param.LinearRampToValueAtTime(initial, t)
}

func rampTo(p Param, curve Curve, v, t float64) {
	if curve != CurveExponential {
		p.LinearRampToValueAtTime(v, t)
		return
	}
	if v == 0 {
		p.ExponentialRampToValueAtTime(minExpLevel, t)
		p.LinearRampToValueAtTime(0, t+zeroTail)
		return
	}
	p.ExponentialRampToValueAtTime(v, t)
}

// Setters ignore invalid input so live knob drags never interrupt playback.

func (e *Envelope) SetAttackTime(v float64)  { e.setTime("attack", &e.cfg.AttackTime, v) }
func (e *Envelope) SetHoldTime(v float64)    { e.setTime("hold", &e.cfg.HoldTime, v) }
func (e *Envelope) SetDecayTime(v float64)   { e.setTime("decay", &e.cfg.DecayTime, v) }
func (e *Envelope) SetReleaseTime(v float64) { e.setTime("release", &e.cfg.ReleaseTime, v) }

func (e *Envelope) SetInitialValue(v float64) { e.setValue("initial", &e.cfg.InitialValue, v) }
func (e *Envelope) SetHoldValue(v float64)    { e.setValue("hold", &e.cfg.HoldValue, v) }
func (e *Envelope) SetSustainValue(v float64) { e.setValue("sustain", &e.cfg.SustainValue, v) }
func (e *Envelope) SetFinalValue(v float64)   { e.setValue("final", &e.cfg.FinalValue, v) }

func (e *Envelope) SetAttackCurve(c Curve)  { e.setCurve(&e.cfg.AttackCurve, c) }
func (e *Envelope) SetDecayCurve(c Curve)   { e.setCurve(&e.cfg.DecayCurve, c) }
func (e *Envelope) SetReleaseCurve(c Curve) { e.setCurve(&e.cfg.ReleaseCurve, c) }

func (e *Envelope) setTime(name string, field *float64, v float64) {
	if !validTime(v) {
		debug.Log("env", "ignoring %s time %v", name, v)
		return
	}
	e.mu.Lock()
	*field = v
	e.mu.Unlock()
}

func (e *Envelope) setValue(name string, field *float64, v float64) {
	if !finite(v) {
		debug.Log("env", "ignoring %s value %v", name, v)
		return
	}
	e.mu.Lock()
	*field = v
	e.mu.Unlock()
}

func (e *Envelope) setCurve(field *Curve, c Curve) {
	if c != CurveLinear && c != CurveExponential {
		return
	}
	e.mu.Lock()
	*field = c
	e.mu.Unlock()
}

func validTime(v float64) bool {
	return finite(v) && v >= 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
