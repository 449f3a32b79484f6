package audio

import (
	"fmt"
	"math"
)

// FilterType selects the biquad response
type FilterType string

const (
	Lowpass  FilterType = "lowpass"
	Highpass FilterType = "highpass"
	Bandpass FilterType = "bandpass"
	Notch    FilterType = "notch"
)

// ParseFilterType converts a filter name to a FilterType
func ParseFilterType(s string) (FilterType, error) {
	switch t := FilterType(s); t {
	case Lowpass, Highpass, Bandpass, Notch:
		return t, nil
	}
	return "", fmt.Errorf("unknown filter type %q", s)
}

const minQ = 0.0001

// BiquadFilter is a two-pole resonant filter (RBJ cookbook coefficients)
type BiquadFilter struct {
	node
	Frequency *Param
	Q         *Param

	typ FilterType

	// coefficients, normalized by a0
	b0, b1, b2, a1, a2 float64
	lastF, lastQ      float64
	lastTyp           FilterType

	x1, x2, y1, y2 float64

	in, freq, q []float64
}

// NewBiquadFilter creates a filter
func (c *Context) NewBiquadFilter(typ FilterType, frequency, q float64) *BiquadFilter {
	f := &BiquadFilter{
		Frequency: newParam(c, frequency),
		Q:         newParam(c, q),
		typ:       typ,
		lastF:     -1,
		in:        make([]float64, RenderQuantum),
		freq:      make([]float64, RenderQuantum),
		q:         make([]float64, RenderQuantum),
	}
	f.node = newNode(c, f.process)
	return f
}

// Type returns the current response
func (f *BiquadFilter) Type() FilterType {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	return f.typ
}

// SetType changes the response
func (f *BiquadFilter) SetType(typ FilterType) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	f.typ = typ
}

func (f *BiquadFilter) process(frame int64, out []float64) {
	n := len(out)
	in := f.in[:n]
	f.mixInputs(frame, in)
	freq, q := f.freq[:n], f.q[:n]
	f.Frequency.fill(frame, freq)
	f.Q.fill(frame, q)

	for i, x := range in {
		if freq[i] != f.lastF || q[i] != f.lastQ || f.typ != f.lastTyp {
			f.coefficients(freq[i], q[i])
		}
		y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, x
		f.y2, f.y1 = f.y1, y
		out[i] = y
	}
}

func (f *BiquadFilter) coefficients(freq, q float64) {
	f.lastF, f.lastQ, f.lastTyp = freq, q, f.typ

	nyquist := f.ctx.sampleRate / 2
	freq = math.Min(math.Max(freq, 10), nyquist*0.999)
	q = math.Max(q, minQ)

	w0 := 2 * math.Pi * freq / f.ctx.sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * q)

	var b0, b1, b2 float64
	switch f.typ {
	case Highpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
	case Bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	case Notch:
		b0 = 1
		b1 = -2 * cosw
		b2 = 1
	default:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
	}
	a0 := 1 + alpha
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha) / a0
}
