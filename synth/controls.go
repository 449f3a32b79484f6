package synth

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidControl is returned for knob or switch configs that cannot work
var ErrInvalidControl = errors.New("invalid control config")

// Control is one knob or switch on a voice panel
type Control interface {
	Name() string
	Section() string
	Increment()
	Decrement()
	Display() string
	Update()
}

// KnobConfig describes a rotary control. Angles are degrees.
type KnobConfig struct {
	Name    string
	Section string
	Min     float64
	Max     float64
	Value   float64
	Unit    string

	MinAngle float64 // default -135
	MaxAngle float64 // default 135
	Speed    float64 // degrees per drag unit, default 1
	Step     float64 // degrees per Increment, default 13.5
}

func (c *KnobConfig) applyDefaults() {
	if c.MinAngle == 0 && c.MaxAngle == 0 {
		c.MinAngle, c.MaxAngle = -135, 135
	}
	if c.Speed == 0 {
		c.Speed = 1
	}
	if c.Step == 0 {
		c.Step = (c.MaxAngle - c.MinAngle) / 20
	}
}

// Validate checks ranges are ordered and finite
func (c KnobConfig) Validate() error {
	for _, v := range []float64{c.Min, c.Max, c.Value, c.MinAngle, c.MaxAngle, c.Speed, c.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: knob %q has non-finite field", ErrInvalidControl, c.Name)
		}
	}
	if c.Max <= c.Min {
		return fmt.Errorf("%w: knob %q max %v <= min %v", ErrInvalidControl, c.Name, c.Max, c.Min)
	}
	if c.MaxAngle <= c.MinAngle {
		return fmt.Errorf("%w: knob %q angle range is empty", ErrInvalidControl, c.Name)
	}
	if c.Speed <= 0 || c.Step <= 0 {
		return fmt.Errorf("%w: knob %q speed and step must be positive", ErrInvalidControl, c.Name)
	}
	return nil
}

// Knob maps a rotation angle onto a value range
type Knob struct {
	cfg      KnobConfig
	angle    float64
	onUpdate func(float64)
}

// NewKnob creates a knob positioned at cfg.Value
func NewKnob(cfg KnobConfig, onUpdate func(float64)) (*Knob, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k := &Knob{cfg: cfg, onUpdate: onUpdate}
	k.angle = k.angleFromValue(cfg.Value)
	return k, nil
}

func (k *Knob) Name() string    { return k.cfg.Name }
func (k *Knob) Section() string { return k.cfg.Section }

// Angle returns the current rotation in degrees
func (k *Knob) Angle() float64 {
	return k.limitAngle(k.angle)
}

// Fraction returns the position within the range, 0..1
func (k *Knob) Fraction() float64 {
	return (k.Angle() - k.cfg.MinAngle) / (k.cfg.MaxAngle - k.cfg.MinAngle)
}

// Value returns the value for the current angle
func (k *Knob) Value() float64 {
	return (k.cfg.Max-k.cfg.Min)*k.Fraction() + k.cfg.Min
}

// SetValue moves the knob to v (clamped) and notifies
func (k *Knob) SetValue(v float64) {
	if math.IsNaN(v) {
		return
	}
	k.angle = k.angleFromValue(v)
	k.Update()
}

// Drag rotates by a vertical drag distance; dragging up (negative dy) turns clockwise
func (k *Knob) Drag(dy float64) {
	if math.IsNaN(dy) {
		return
	}
	k.angle = k.limitAngle(k.angle - dy*k.cfg.Speed)
	k.Update()
}

func (k *Knob) Increment() { k.Drag(-k.cfg.Step / k.cfg.Speed) }
func (k *Knob) Decrement() { k.Drag(k.cfg.Step / k.cfg.Speed) }

// Update pushes the current value to the bound parameter
func (k *Knob) Update() {
	if k.onUpdate != nil {
		k.onUpdate(k.Value())
	}
}

func (k *Knob) Display() string {
	v := k.Value()
	switch {
	case math.Abs(v) >= 100:
		return fmt.Sprintf("%.0f%s", v, k.cfg.Unit)
	case math.Abs(v) >= 10:
		return fmt.Sprintf("%.1f%s", v, k.cfg.Unit)
	default:
		return fmt.Sprintf("%.2f%s", v, k.cfg.Unit)
	}
}

func (k *Knob) limitAngle(a float64) float64 {
	return math.Min(math.Max(a, k.cfg.MinAngle), k.cfg.MaxAngle)
}

func (k *Knob) angleFromValue(v float64) float64 {
	v = math.Min(math.Max(v, k.cfg.Min), k.cfg.Max)
	frac := (v - k.cfg.Min) / (k.cfg.Max - k.cfg.Min)
	return (k.cfg.MaxAngle-k.cfg.MinAngle)*frac + k.cfg.MinAngle
}

// Switch selects one of several named poles
type Switch struct {
	name     string
	section  string
	poles    []string
	selected int
	onUpdate func(index int, value string)
}

// NewSwitch creates a switch with the given pole selected
func NewSwitch(name, section string, poles []string, selected int, onUpdate func(int, string)) (*Switch, error) {
	if len(poles) == 0 {
		return nil, fmt.Errorf("%w: switch %q has no poles", ErrInvalidControl, name)
	}
	s := &Switch{
		name:     name,
		section:  section,
		poles:    poles,
		onUpdate: onUpdate,
	}
	s.selected = s.limitIndex(selected)
	return s, nil
}

func (s *Switch) Name() string    { return s.name }
func (s *Switch) Section() string { return s.section }

// Poles returns the pole labels
func (s *Switch) Poles() []string { return s.poles }

// Index returns the selected pole
func (s *Switch) Index() int { return s.selected }

// Value returns the selected pole's label
func (s *Switch) Value() string { return s.poles[s.selected] }

// Select picks a pole (clamped) and notifies
func (s *Switch) Select(i int) {
	s.selected = s.limitIndex(i)
	s.Update()
}

func (s *Switch) Increment() { s.Select((s.selected + 1) % len(s.poles)) }
func (s *Switch) Decrement() { s.Select((s.selected - 1 + len(s.poles)) % len(s.poles)) }

func (s *Switch) Update() {
	if s.onUpdate != nil {
		s.onUpdate(s.selected, s.Value())
	}
}

func (s *Switch) Display() string {
	return s.Value()
}

func (s *Switch) limitIndex(i int) int {
	return min(max(i, 0), len(s.poles)-1)
}
