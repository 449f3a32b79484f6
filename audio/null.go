package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// NullOutput renders a Context in real time and discards the samples.
// Used when no audio device is available so envelopes still advance.
type NullOutput struct {
	src    *Context
	period time.Duration
	buf    []float32

	mutex   sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewNullOutput creates a sink that pulls one buffer every period
func NewNullOutput(src *Context, period time.Duration) *NullOutput {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	frames := int(src.SampleRate() * period.Seconds())
	return &NullOutput{
		src:    src,
		period: period,
		buf:    make([]float32, max(frames, 1)),
	}
}

// Start launches the render loop
func (o *NullOutput) Start() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.started {
		return
	}
	o.started = true
	o.stop = make(chan struct{})
	o.done = make(chan struct{})
	go o.loop(o.stop, o.done)
}

func (o *NullOutput) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(o.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.src.Render(o.buf)
		}
	}
}

// Close stops the render loop
func (o *NullOutput) Close() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if !o.started {
		return nil
	}
	o.started = false
	close(o.stop)
	<-o.done
	return nil
}

// IsStarted reports whether the render loop is running
func (o *NullOutput) IsStarted() bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.started
}

func encodeFloat32LE(p []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
}
