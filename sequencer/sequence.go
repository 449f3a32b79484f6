package sequencer

import "sync"

// Action is the work done when a sequence reaches a step
type Action func()

// Sequence is an ordered list of step actions advanced one step per tick
type Sequence struct {
	mu       sync.Mutex
	running  bool
	repeat   bool
	position int
	steps    []Action
}

// NewSequence creates a stopped, empty, repeating sequence
func NewSequence() *Sequence {
	return &Sequence{repeat: true}
}

// SetRepeat controls whether the sequence wraps or stops after its last step
func (s *Sequence) SetRepeat(repeat bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = repeat
}

func (s *Sequence) Repeat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

// Play resumes from the current position
func (s *Sequence) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// Pause stops advancing but keeps the position
func (s *Sequence) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Stop stops advancing and rewinds to the first step
func (s *Sequence) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.position = 0
}

// Reset stops, rewinds and removes every step
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.position = 0
	s.steps = nil
}

// AddEvent appends a step
func (s *Sequence) AddEvent(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, a)
}

// ReplaceEventAtPosition swaps the action at pos; out of range is a no-op
func (s *Sequence) ReplaceEventAtPosition(pos int, a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 0 || pos >= len(s.steps) {
		return
	}
	s.steps[pos] = a
}

// RemoveEventAtPosition deletes the step at pos; out of range is a no-op.
// A position left past the end rewinds to 0.
func (s *Sequence) RemoveEventAtPosition(pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 0 || pos >= len(s.steps) {
		return
	}
	s.steps = append(s.steps[:pos], s.steps[pos+1:]...)
	if s.position >= len(s.steps) {
		s.position = 0
	}
}

func (s *Sequence) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Position returns the step that fires on the next tick
func (s *Sequence) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Sequence) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// OnTick fires the current step and advances. After the last step the
// position wraps to 0 and the sequence keeps running only if it repeats.
// The action runs outside the lock so it may call back into the sequence.
func (s *Sequence) OnTick(Tick) {
	s.mu.Lock()
	if !s.running || len(s.steps) == 0 {
		s.mu.Unlock()
		return
	}
	action := s.steps[s.position]
	s.advance()
	s.mu.Unlock()

	if action != nil {
		action()
	}
}

func (s *Sequence) advance() {
	if s.position < len(s.steps)-1 {
		s.position++
		return
	}
	s.position = 0
	s.running = s.repeat
}
