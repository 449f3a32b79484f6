package sequencer

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go-drum/audio"
	"go-drum/debug"
	"go-drum/midi"
	"go-drum/synth"
)

const (
	MaxVoices = 8
	MaxSteps  = 32
	MinTempo  = 20
	MaxTempo  = 300
)

// LED refresh rate
const ledFPS = 30

// Config sizes the machine and sets its starting tempo
type Config struct {
	Voices       int
	Steps        int
	Tempo        float64
	StepDuration float64 // fraction of a 4/4 measure
	Repeat       bool
	Kit          string
}

// DefaultConfig is four voices of sixteen 1/16 steps at 120 bpm
func DefaultConfig() Config {
	return Config{
		Voices:       4,
		Steps:        16,
		Tempo:        120,
		StepDuration: 1.0 / 16,
		Repeat:       true,
		Kit:          DefaultKit,
	}
}

func (c Config) Validate() error {
	if c.Voices < 1 || c.Voices > MaxVoices {
		return fmt.Errorf("voices %d out of range 1-%d", c.Voices, MaxVoices)
	}
	if c.Steps < 1 || c.Steps > MaxSteps {
		return fmt.Errorf("steps %d out of range 1-%d", c.Steps, MaxSteps)
	}
	if _, ok := IntervalForTempo(c.Tempo, c.StepDuration); !ok {
		return fmt.Errorf("invalid tempo %v with step %v", c.Tempo, c.StepDuration)
	}
	return nil
}

// VoiceController binds one voice to its sequence and step switches.
// The mute flag here is the only one; the voice itself never mutes.
type VoiceController struct {
	index    int
	name     string
	voice    *synth.Voice
	panel    *synth.Panel
	sequence *Sequence
	notify   func()

	mu        sync.RWMutex
	steps     []bool
	muted     bool
	highlight int
}

func newVoiceController(index int, actx *audio.Context, steps int, notify func()) (*VoiceController, error) {
	preset := SlotPreset(index)
	v, err := synth.NewVoice(actx, synth.PresetConfig(preset, actx.SampleRate()))
	if err != nil {
		return nil, fmt.Errorf("voice %d: %w", index, err)
	}
	panel, err := synth.NewPanel(v)
	if err != nil {
		return nil, fmt.Errorf("voice %d: %w", index, err)
	}
	v.Connect(nil)

	vc := &VoiceController{
		index:     index,
		name:      SlotNames[index],
		voice:     v,
		panel:     panel,
		sequence:  NewSequence(),
		notify:    notify,
		highlight: -1,
	}
	vc.resetSequence(steps)
	return vc, nil
}

func (vc *VoiceController) Name() string        { return vc.name }
func (vc *VoiceController) Voice() *synth.Voice { return vc.voice }
func (vc *VoiceController) Panel() *synth.Panel { return vc.panel }
func (vc *VoiceController) Sequence() *Sequence { return vc.sequence }

// Steps returns a copy of the step switches
func (vc *VoiceController) Steps() []bool {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return append([]bool(nil), vc.steps...)
}

func (vc *VoiceController) Muted() bool {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.muted
}

// Highlight returns the step last fired, or -1
func (vc *VoiceController) Highlight() int {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.highlight
}

func (vc *VoiceController) setStep(i int, on bool) bool {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if i < 0 || i >= len(vc.steps) {
		return false
	}
	vc.steps[i] = on
	return true
}

func (vc *VoiceController) toggleStep(i int) bool {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if i < 0 || i >= len(vc.steps) {
		return false
	}
	vc.steps[i] = !vc.steps[i]
	return true
}

func (vc *VoiceController) setMuted(muted bool) {
	vc.mu.Lock()
	vc.muted = muted
	vc.mu.Unlock()
}

func (vc *VoiceController) clearHighlight() {
	vc.mu.Lock()
	vc.highlight = -1
	vc.mu.Unlock()
}

// resetSequence rebuilds the sequence with n steps, keeping existing switches
func (vc *VoiceController) resetSequence(n int) {
	vc.mu.Lock()
	steps := make([]bool, n)
	copy(steps, vc.steps)
	vc.steps = steps
	vc.highlight = -1
	vc.mu.Unlock()

	vc.sequence.Reset()
	for i := 0; i < n; i++ {
		vc.sequence.AddEvent(vc.stepAction(i))
	}
}

// stepAction triggers the voice if step i is on and the voice is not muted,
// then moves the highlight to i
func (vc *VoiceController) stepAction(i int) Action {
	return func() {
		vc.mu.Lock()
		fire := i < len(vc.steps) && vc.steps[i] && !vc.muted
		vc.highlight = i
		vc.mu.Unlock()

		if fire {
			vc.voice.Trigger()
		}
		if vc.notify != nil {
			vc.notify()
		}
	}
}

// State is a snapshot for the UI
type State struct {
	Playing  bool
	Tempo    float64
	Step     int // highlighted step of the selected voice, -1 when idle
	Steps    int
	Selected int
	Page     int
	Pages    int
	Repeat   bool
	Kit      string
	Voices   int // sequences registered with the clock
}

// Machine is the drum machine: voices, their sequences, one shared clock
type Machine struct {
	mu         sync.RWMutex
	cfg        Config
	actx       *audio.Context
	dispatcher *Dispatcher
	voices     []*VoiceController
	kit        DrumKit
	playing    bool
	selected   int
	page       int

	controller midi.Controller

	// MIDI input
	midiInputChan chan midi.NoteEvent

	// LED rendering at fixed FPS
	ledDirty bool                // true if LEDs need refresh
	prevLEDs map[[2]int]LEDState // for diffing

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewMachine builds every voice on actx. Call StartRuntime before Play.
func NewMachine(actx *audio.Context, cfg Config, opts ...DispatcherOption) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	interval, _ := IntervalForTempo(cfg.Tempo, cfg.StepDuration)

	m := &Machine{
		cfg:           cfg,
		actx:          actx,
		kit:           GetKit(cfg.Kit),
		prevLEDs:      make(map[[2]int]LEDState),
		midiInputChan: make(chan midi.NoteEvent, 32),
		UpdateChan:    make(chan struct{}, 1),
	}
	m.dispatcher = NewDispatcher(append([]DispatcherOption{WithInterval(interval)}, opts...)...)

	for i := 0; i < cfg.Voices; i++ {
		vc, err := newVoiceController(i, actx, cfg.Steps, m.notifyUpdate)
		if err != nil {
			return nil, err
		}
		vc.sequence.SetRepeat(cfg.Repeat)
		m.voices = append(m.voices, vc)
		m.dispatcher.AddSequence(vc.sequence)
	}
	return m, nil
}

// StartRuntime starts the clock, LED and MIDI input goroutines. A clock
// that fails to start is reported through onError and leaves the machine
// unable to play.
func (m *Machine) StartRuntime(ctx context.Context, onError func(error)) error {
	go m.ledLoop(ctx)
	go m.midiInputLoop(ctx)
	return m.dispatcher.Init(ctx, onError)
}

// Dispatcher exposes the clock fan-out
func (m *Machine) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Voices returns the voice controllers in slot order
func (m *Machine) Voices() []*VoiceController {
	return m.voices
}

// Voice returns one controller, or nil when out of range
func (m *Machine) Voice(i int) *VoiceController {
	if i < 0 || i >= len(m.voices) {
		return nil
	}
	return m.voices[i]
}

// Play starts the clock and resumes every sequence from its position
func (m *Machine) Play() {
	if !m.dispatcher.Ready() {
		debug.Log("machine", "play ignored, clock not running")
		return
	}
	m.mu.Lock()
	if m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = true
	m.mu.Unlock()

	// sequences run before the first tick arrives
	for _, vc := range m.voices {
		vc.sequence.Play()
	}
	m.dispatcher.Start()
	m.notifyUpdate()
}

// Pause stops the clock and holds every sequence at its position
func (m *Machine) Pause() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()

	for _, vc := range m.voices {
		vc.sequence.Pause()
	}
	m.dispatcher.Stop()
	m.notifyUpdate()
}

// TogglePlay pauses when playing and plays when not
func (m *Machine) TogglePlay() {
	if m.Playing() {
		m.Pause()
	} else {
		m.Play()
	}
}

// Stop stops the clock, rewinds every sequence and clears the highlights
func (m *Machine) Stop() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()

	for _, vc := range m.voices {
		vc.sequence.Stop()
	}
	m.dispatcher.Stop()
	for _, vc := range m.voices {
		vc.clearHighlight()
	}
	m.notifyUpdate()
}

func (m *Machine) Playing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playing
}

// SetTempo clamps bpm to the supported range. Non-positive and
// non-finite values are ignored.
func (m *Machine) SetTempo(bpm float64) {
	if !(bpm > 0) || math.IsInf(bpm, 1) {
		return
	}
	bpm = math.Min(math.Max(bpm, MinTempo), MaxTempo)

	m.mu.Lock()
	m.cfg.Tempo = bpm
	step := m.cfg.StepDuration
	m.mu.Unlock()

	m.dispatcher.UpdateTempo(bpm, step)
	m.notifyUpdate()
}

func (m *Machine) Tempo() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Tempo
}

// SetStepDuration changes the step length; non-positive values are ignored
func (m *Machine) SetStepDuration(d float64) {
	m.mu.Lock()
	if _, ok := IntervalForTempo(m.cfg.Tempo, d); !ok {
		m.mu.Unlock()
		return
	}
	m.cfg.StepDuration = d
	bpm := m.cfg.Tempo
	m.mu.Unlock()

	m.dispatcher.UpdateTempo(bpm, d)
	m.notifyUpdate()
}

// SetRepeat sets whether sequences loop or stop after one pass
func (m *Machine) SetRepeat(repeat bool) {
	m.mu.Lock()
	m.cfg.Repeat = repeat
	m.mu.Unlock()
	for _, vc := range m.voices {
		vc.sequence.SetRepeat(repeat)
	}
	m.notifyUpdate()
}

// ToggleStep flips one step switch; out of range is ignored
func (m *Machine) ToggleStep(voice, step int) {
	if vc := m.Voice(voice); vc != nil && vc.toggleStep(step) {
		m.notifyUpdate()
	}
}

// SetStep sets one step switch; out of range is ignored
func (m *Machine) SetStep(voice, step int, on bool) {
	if vc := m.Voice(voice); vc != nil && vc.setStep(step, on) {
		m.notifyUpdate()
	}
}

func (m *Machine) SetMuted(voice int, muted bool) {
	if vc := m.Voice(voice); vc != nil {
		vc.setMuted(muted)
		m.notifyUpdate()
	}
}

func (m *Machine) ToggleMute(voice int) {
	if vc := m.Voice(voice); vc != nil {
		m.SetMuted(voice, !vc.Muted())
	}
}

// Trigger strikes a voice immediately. Manual hits ignore mute.
func (m *Machine) Trigger(voice int) {
	if vc := m.Voice(voice); vc != nil {
		vc.voice.Trigger()
	}
}

// ResetSequences resizes every sequence to steps (clamped to 1-MaxSteps),
// keeping the switches that still fit. Playing sequences keep playing.
func (m *Machine) ResetSequences(steps int) {
	steps = min(max(steps, 1), MaxSteps)

	m.mu.Lock()
	m.cfg.Steps = steps
	if m.page*midi.GridSize >= steps {
		m.page = 0
	}
	playing := m.playing
	m.mu.Unlock()

	for _, vc := range m.voices {
		vc.resetSequence(steps)
		if playing {
			vc.sequence.Play()
		}
	}
	m.notifyUpdate()
}

// SetKit changes the note mapping for MIDI input
func (m *Machine) SetKit(name string) {
	m.mu.Lock()
	m.cfg.Kit = name
	m.kit = GetKit(name)
	m.mu.Unlock()
	m.notifyUpdate()
}

// Select picks the voice shown in the control panel
func (m *Machine) Select(voice int) {
	if voice < 0 || voice >= len(m.voices) {
		return
	}
	m.mu.Lock()
	m.selected = voice
	m.mu.Unlock()
	m.notifyUpdate()
}

func (m *Machine) Selected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// SetPage shows a different 8-step window on the Launchpad
func (m *Machine) SetPage(page int) {
	m.mu.Lock()
	pages := (m.cfg.Steps + midi.GridSize - 1) / midi.GridSize
	if page < 0 || page >= pages || page == m.page {
		m.mu.Unlock()
		return
	}
	m.page = page
	m.mu.Unlock()
	m.notifyUpdate()
}

func (m *Machine) Page() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.page
}

// GetState returns the current machine state
func (m *Machine) GetState() State {
	m.mu.RLock()
	s := State{
		Playing:  m.playing,
		Tempo:    m.cfg.Tempo,
		Steps:    m.cfg.Steps,
		Selected: m.selected,
		Page:     m.page,
		Pages:    (m.cfg.Steps + midi.GridSize - 1) / midi.GridSize,
		Repeat:   m.cfg.Repeat,
		Kit:      m.cfg.Kit,
	}
	m.mu.RUnlock()

	s.Voices = m.dispatcher.Sequences()
	s.Step = -1
	if vc := m.Voice(s.Selected); vc != nil {
		s.Step = vc.Highlight()
	}
	return s
}

// HandleNote triggers the voice on the kit slot for note. A note off
// (velocity 0) releases it.
func (m *Machine) HandleNote(note, velocity uint8) {
	m.mu.RLock()
	kit := m.kit
	m.mu.RUnlock()

	slot, ok := kit.SlotForNote(note)
	if !ok || slot >= len(m.voices) {
		debug.Log("machine", "note %d not mapped in kit %s", note, kit.Name)
		return
	}
	if velocity == 0 {
		m.voices[slot].voice.Release()
		return
	}
	m.voices[slot].voice.Trigger()
	m.Select(slot)
}

// midiInputLoop consumes MIDI keyboard input and routes to voices
func (m *Machine) midiInputLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-m.midiInputChan:
			m.HandleNote(evt.Note, evt.Velocity)
		}
	}
}

// SetMIDIInput forwards a controller's notes until it closes
func (m *Machine) SetMIDIInput(ctrl midi.Controller) {
	if ctrl == nil {
		return
	}
	go func() {
		for evt := range ctrl.NoteEvents() {
			select {
			case m.midiInputChan <- evt:
			default:
				// Drop if channel full
			}
		}
	}()
}

// SetController sets the grid controller for LED feedback
func (m *Machine) SetController(c midi.Controller) {
	debug.Log("ctrl", "SetController called, resetting diff state")
	m.mu.Lock()
	m.controller = c
	m.prevLEDs = make(map[[2]int]LEDState) // reset state - diff will handle clearing
	m.ledDirty = c != nil
	m.mu.Unlock()
}

// markLEDsDirty flags that LEDs need refresh
func (m *Machine) markLEDsDirty() {
	m.mu.Lock()
	m.ledDirty = true
	m.mu.Unlock()
}

// notifyUpdate refreshes LEDs and notifies TUI
func (m *Machine) notifyUpdate() {
	m.markLEDsDirty()
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

// ledLoop runs at fixed FPS and flushes LED updates
func (m *Machine) ledLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			dirty := m.ledDirty
			m.ledDirty = false
			m.mu.Unlock()

			if dirty {
				m.flushLEDs()
			}
		}
	}
}

// flushLEDs sends only changed LEDs to the controller (diffing + batching)
func (m *Machine) flushLEDs() {
	m.mu.RLock()
	ctrl := m.controller
	m.mu.RUnlock()
	if ctrl == nil {
		return
	}

	updates := m.diffLEDs(m.RenderLEDs())
	if len(updates) > 0 {
		debug.Log("led", "flushLEDs: batch=%d", len(updates))
		if err := ctrl.SetLEDBatch(updates); err != nil {
			debug.Error("led", err, "flush")
		}
	}
}

// diffLEDs returns updates for LEDs that changed since the last frame,
// including blanking LEDs no longer drawn
func (m *Machine) diffLEDs(leds []LEDState) []midi.LEDUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[[2]int]LEDState, len(leds))
	var updates []midi.LEDUpdate

	for _, led := range leds {
		key := [2]int{led.Row, led.Col}
		next[key] = led
		if prev, ok := m.prevLEDs[key]; !ok || prev != led {
			updates = append(updates, midi.LEDUpdate{
				Row:     led.Row,
				Col:     led.Col,
				Color:   led.Color,
				Channel: led.Channel,
			})
		}
	}
	for key := range m.prevLEDs {
		if _, ok := next[key]; !ok {
			updates = append(updates, midi.LEDUpdate{Row: key[0], Col: key[1]})
		}
	}

	m.prevLEDs = next
	return updates
}
