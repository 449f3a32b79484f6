package audio

import (
	"math"
	"math/rand/v2"
)

// Noise is a white noise source whose samples are held for BlockSize frames.
// Larger blocks give coarser, darker noise. The hold length is driven by the
// Rate param (new samples per second) so it can be enveloped like a pitch.
type Noise struct {
	node
	Rate *Param

	rng     *rand.Rand
	phase   float64
	current float64
	rate    []float64
}

// NewNoise creates a noise source with the given block size
func (c *Context) NewNoise(blockSize int) *Noise {
	if blockSize < 1 {
		blockSize = 1
	}
	n := &Noise{
		Rate:  newParam(c, c.sampleRate/float64(blockSize)),
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		phase: 1,
		rate:  make([]float64, RenderQuantum),
	}
	n.node = newNode(c, n.process)
	return n
}

// BlockRate converts a block size to the equivalent Rate value
func (c *Context) BlockRate(blockSize int) float64 {
	if blockSize < 1 {
		blockSize = 1
	}
	return c.sampleRate / float64(blockSize)
}

// SetBlockSize sets how many frames each random value is repeated for
func (n *Noise) SetBlockSize(blockSize int) {
	if blockSize < 1 {
		return
	}
	n.Rate.SetValue(n.ctx.BlockRate(blockSize))
}

// BlockSize returns the current hold length in frames
func (n *Noise) BlockSize() int {
	rate := n.Rate.Value()
	if rate <= 0 {
		return math.MaxInt32
	}
	return max(1, int(math.Round(n.ctx.sampleRate/rate)))
}

func (n *Noise) process(frame int64, out []float64) {
	rate := n.rate[:len(out)]
	n.Rate.fill(frame, rate)
	sr := n.ctx.sampleRate
	for i := range out {
		if n.phase >= 1 {
			n.phase -= math.Floor(n.phase)
			n.current = n.rng.Float64()*2 - 1
		}
		out[i] = n.current
		n.phase += math.Max(rate[i], 0) / sr
	}
}
