//go:build headless

package audio

import "time"

// Output in headless builds renders into a null sink so the clock keeps moving
type Output struct {
	*NullOutput
}

// NewOutput returns a null sink; no audio device is opened
func NewOutput(src *Context, bufferSize time.Duration) (*Output, error) {
	return &Output{NullOutput: NewNullOutput(src, bufferSize)}, nil
}
