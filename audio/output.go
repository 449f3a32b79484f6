//go:build !headless

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Output streams a Context to the system audio device
type Output struct {
	ctx     *oto.Context
	player  *oto.Player
	src     *Context
	buf     []float32
	started bool
	mutex   sync.Mutex // only for setup/control operations
}

// NewOutput opens the audio device at the context's sample rate.
// oto allows a single device context per process.
func NewOutput(src *Context, bufferSize time.Duration) (*Output, error) {
	op := &oto.NewContextOptions{
		SampleRate:   int(src.SampleRate()),
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	o := &Output{
		ctx: ctx,
		src: src,
		buf: make([]float32, 4096),
	}
	o.player = ctx.NewPlayer(o)
	return o, nil
}

// Read renders the graph into p as float32 little-endian frames
func (o *Output) Read(p []byte) (int, error) {
	n := len(p) / 4
	if len(o.buf) < n {
		o.buf = make([]float32, n)
	}
	samples := o.buf[:n]
	o.src.Render(samples)
	encodeFloat32LE(p, samples)
	return n * 4, nil
}

// Start begins playback
func (o *Output) Start() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.started && o.player != nil {
		o.player.Play()
		o.started = true
	}
}

// Close stops playback and releases the player
func (o *Output) Close() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.started = false
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

// IsStarted reports whether playback is running
func (o *Output) IsStarted() bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.started
}
