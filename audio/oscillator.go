package audio

import (
	"fmt"
	"math"
)

// OscillatorType is the waveform shape
type OscillatorType string

const (
	Sine     OscillatorType = "sine"
	Square   OscillatorType = "square"
	Sawtooth OscillatorType = "sawtooth"
	Triangle OscillatorType = "triangle"
)

// ParseOscillatorType converts a waveform name to an OscillatorType
func ParseOscillatorType(s string) (OscillatorType, error) {
	switch t := OscillatorType(s); t {
	case Sine, Square, Sawtooth, Triangle:
		return t, nil
	}
	return "", fmt.Errorf("unknown oscillator type %q", s)
}

// Oscillator is a free-running periodic source
type Oscillator struct {
	node
	Frequency *Param

	typ   OscillatorType
	phase float64
	freq  []float64
}

// NewOscillator creates a running oscillator
func (c *Context) NewOscillator(typ OscillatorType, frequency float64) *Oscillator {
	o := &Oscillator{
		Frequency: newParam(c, frequency),
		typ:       typ,
		freq:      make([]float64, RenderQuantum),
	}
	o.node = newNode(c, o.process)
	return o
}

// Type returns the current waveform
func (o *Oscillator) Type() OscillatorType {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	return o.typ
}

// SetType changes the waveform
func (o *Oscillator) SetType(typ OscillatorType) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.typ = typ
}

func (o *Oscillator) process(frame int64, out []float64) {
	freq := o.freq[:len(out)]
	o.Frequency.fill(frame, freq)
	sr := o.ctx.sampleRate
	for i := range out {
		out[i] = waveform(o.typ, o.phase)
		o.phase += freq[i] / sr
		o.phase -= math.Floor(o.phase)
	}
}

func waveform(typ OscillatorType, phase float64) float64 {
	switch typ {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*phase - 1
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
