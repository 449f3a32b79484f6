package synth

import (
	"fmt"
	"math"

	"go-drum/audio"
)

var (
	oscPoles    = []string{string(audio.Sine), string(audio.Square), string(audio.Sawtooth), string(audio.Triangle)}
	filterPoles = []string{string(audio.Lowpass), string(audio.Highpass), string(audio.Bandpass)}
	curvePoles  = []string{CurveLinear.String(), CurveExponential.String()}
)

// Section groups the controls of one signal path
type Section struct {
	Name     string
	Controls []Control
}

// Panel is the control surface for one voice. Controls start at the
// voice's current settings and push them back when the panel is built,
// which also applies the panel's own coupling (decay drives release,
// amp sustain is zero).
type Panel struct {
	voice    *Voice
	sections []Section
	byName   map[string]Control
}

// NewPanel builds the knob and switch set for v
func NewPanel(v *Voice) (*Panel, error) {
	p := &Panel{voice: v, byName: make(map[string]Control)}
	b := &panelBuilder{p: p}

	// Amp envelopes always decay to silence
	v.ToneAmpEnv.SetSustainValue(0)
	v.NoiseAmpEnv.SetSustainValue(0)

	tp, tf, ta := v.TonePitchEnv.Config(), v.ToneFilterEnv.Config(), v.ToneAmpEnv.Config()
	nf, na := v.NoiseFilterEnv.Config(), v.NoiseAmpEnv.Config()

	b.section("tone")
	b.switchControl("osc", oscPoles, indexOf(oscPoles, string(v.Tone.Type())), func(_ int, s string) {
		v.Tone.SetType(audio.OscillatorType(s))
	})
	b.knob(KnobConfig{Name: "pitch hold", Min: 20, Max: 5000, Value: tp.HoldValue, Unit: "Hz"}, v.TonePitchEnv.SetHoldValue)
	b.knob(KnobConfig{Name: "pitch sustain", Min: 20, Max: 5000, Value: tp.SustainValue, Unit: "Hz"}, v.TonePitchEnv.SetSustainValue)
	b.knob(KnobConfig{Name: "pitch decay", Min: 0, Max: 1, Value: tp.DecayTime, Unit: "s"}, decayAndRelease(v.TonePitchEnv))
	b.curve("pitch curve", v.TonePitchEnv, tp.DecayCurve)

	b.switchControl("filter", filterPoles, indexOf(filterPoles, string(v.ToneFilter.Type())), func(_ int, s string) {
		v.ToneFilter.SetType(audio.FilterType(s))
	})
	b.knob(KnobConfig{Name: "filter q", Min: 0.1, Max: 20, Value: v.ToneFilter.Q.Value()}, v.ToneFilter.Q.SetValue)
	b.knob(KnobConfig{Name: "filter hold", Min: 20, Max: 20000, Value: tf.HoldValue, Unit: "Hz"}, v.ToneFilterEnv.SetHoldValue)
	b.knob(KnobConfig{Name: "filter sustain", Min: 20, Max: 20000, Value: tf.SustainValue, Unit: "Hz"}, v.ToneFilterEnv.SetSustainValue)
	b.knob(KnobConfig{Name: "filter decay", Min: 0, Max: 2, Value: tf.DecayTime, Unit: "s"}, decayAndRelease(v.ToneFilterEnv))
	b.curve("filter curve", v.ToneFilterEnv, tf.DecayCurve)

	b.knob(KnobConfig{Name: "amp level", Min: 0, Max: 1, Value: ta.HoldValue}, level(v.ToneAmpEnv))
	b.knob(KnobConfig{Name: "amp decay", Min: 0, Max: 2, Value: ta.DecayTime, Unit: "s"}, decayAndRelease(v.ToneAmpEnv))
	b.curve("amp curve", v.ToneAmpEnv, ta.DecayCurve)

	b.section("noise")
	b.knob(KnobConfig{Name: "color", Min: 0, Max: 8, Value: math.Log2(float64(v.Noise.BlockSize()))}, func(val float64) {
		v.SetNoiseBlockSize(ColorBlockSize(val))
	})
	b.switchControl("filter", filterPoles, indexOf(filterPoles, string(v.NoiseFilter.Type())), func(_ int, s string) {
		v.NoiseFilter.SetType(audio.FilterType(s))
	})
	b.knob(KnobConfig{Name: "filter q", Min: 0.1, Max: 20, Value: v.NoiseFilter.Q.Value()}, v.NoiseFilter.Q.SetValue)
	b.knob(KnobConfig{Name: "filter hold", Min: 20, Max: 20000, Value: nf.HoldValue, Unit: "Hz"}, v.NoiseFilterEnv.SetHoldValue)
	b.knob(KnobConfig{Name: "filter sustain", Min: 20, Max: 20000, Value: nf.SustainValue, Unit: "Hz"}, v.NoiseFilterEnv.SetSustainValue)
	b.knob(KnobConfig{Name: "filter decay", Min: 0, Max: 2, Value: nf.DecayTime, Unit: "s"}, decayAndRelease(v.NoiseFilterEnv))
	b.curve("filter curve", v.NoiseFilterEnv, nf.DecayCurve)

	b.knob(KnobConfig{Name: "amp level", Min: 0, Max: 1, Value: na.HoldValue}, level(v.NoiseAmpEnv))
	b.knob(KnobConfig{Name: "amp decay", Min: 0, Max: 2, Value: na.DecayTime, Unit: "s"}, decayAndRelease(v.NoiseAmpEnv))
	b.curve("amp curve", v.NoiseAmpEnv, na.DecayCurve)

	b.section("mix")
	b.knob(KnobConfig{Name: "gain", Min: 0, Max: 1, Value: v.Mix.Gain.Value()}, v.Mix.Gain.SetValue)

	if b.err != nil {
		return nil, b.err
	}
	for _, c := range p.Controls() {
		c.Update()
	}
	return p, nil
}

// Voice returns the voice the panel drives
func (p *Panel) Voice() *Voice { return p.voice }

// Sections returns the controls grouped by signal path
func (p *Panel) Sections() []Section { return p.sections }

// Controls returns every control in panel order
func (p *Panel) Controls() []Control {
	var out []Control
	for _, s := range p.sections {
		out = append(out, s.Controls...)
	}
	return out
}

// Control looks up a control by "section/name", e.g. "tone/pitch hold"
func (p *Panel) Control(id string) (Control, bool) {
	c, ok := p.byName[id]
	return c, ok
}

func indexOf(poles []string, v string) int {
	for i, p := range poles {
		if p == v {
			return i
		}
	}
	return 0
}

// ColorBlockSize converts a noise color knob value to a block size of 2^ceil(v).
// Values within rounding error of an integer do not round up.
func ColorBlockSize(v float64) int {
	return int(math.Pow(2, math.Ceil(math.Max(v, 0)-1e-9)))
}

func decayAndRelease(e *Envelope) func(float64) {
	return func(v float64) {
		e.SetDecayTime(v)
		e.SetReleaseTime(v)
	}
}

func level(e *Envelope) func(float64) {
	return func(v float64) {
		e.SetHoldValue(v)
		e.SetSustainValue(0)
	}
}

type panelBuilder struct {
	p       *Panel
	current string
	err     error
}

func (b *panelBuilder) section(name string) {
	b.current = name
	b.p.sections = append(b.p.sections, Section{Name: name})
}

func (b *panelBuilder) add(c Control) {
	s := &b.p.sections[len(b.p.sections)-1]
	s.Controls = append(s.Controls, c)
	b.p.byName[b.current+"/"+c.Name()] = c
}

func (b *panelBuilder) knob(cfg KnobConfig, onUpdate func(float64)) {
	if b.err != nil {
		return
	}
	cfg.Section = b.current
	k, err := NewKnob(cfg, onUpdate)
	if err != nil {
		b.err = fmt.Errorf("%s panel: %w", b.current, err)
		return
	}
	b.add(k)
}

func (b *panelBuilder) switchControl(name string, poles []string, selected int, onUpdate func(int, string)) {
	if b.err != nil {
		return
	}
	s, err := NewSwitch(name, b.current, poles, selected, onUpdate)
	if err != nil {
		b.err = fmt.Errorf("%s panel: %w", b.current, err)
		return
	}
	b.add(s)
}

func (b *panelBuilder) curve(name string, e *Envelope, current Curve) {
	b.switchControl(name, curvePoles, int(current), func(i int, _ string) {
		e.SetDecayCurve(Curve(i))
		e.SetReleaseCurve(Curve(i))
	})
}
