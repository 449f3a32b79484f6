package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// RenderQuantum is the number of frames rendered per graph pull
const RenderQuantum = 128

// Context owns the sample clock and the node graph.
// One goroutine renders (Render) while others schedule parameter changes
// and rewire nodes; mu serializes graph access between them.
type Context struct {
	sampleRate float64
	frames     atomic.Int64

	mu  sync.Mutex
	buf []float64

	// Destination is the final mix bus; connect voices here
	Destination *Gain
}

// NewContext creates a context running at sampleRate frames per second
func NewContext(sampleRate int) (*Context, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	c := &Context{
		sampleRate: float64(sampleRate),
		buf:        make([]float64, RenderQuantum),
	}
	c.Destination = c.NewGain(1.0)
	return c, nil
}

// SampleRate returns frames per second
func (c *Context) SampleRate() float64 {
	return c.sampleRate
}

// CurrentTime returns the time in seconds of the next frame to be rendered
func (c *Context) CurrentTime() float64 {
	return float64(c.frames.Load()) / c.sampleRate
}

// Render fills out with mono samples pulled from Destination and advances the clock
func (c *Context) Render(out []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(out) > 0 {
		n := min(len(out), RenderQuantum)
		block := c.buf[:n]
		c.Destination.pull(c.frames.Load(), block)
		for i, v := range block {
			out[i] = float32(clampSample(v))
		}
		c.frames.Add(int64(n))
		out = out[n:]
	}
}

// timeOf converts a frame index to seconds
func (c *Context) timeOf(frame int64) float64 {
	return float64(frame) / c.sampleRate
}

func clampSample(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
