package sequencer

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"go-drum/audio"
	"go-drum/midi"
)

const testRate = 8000

func newTestMachine(t *testing.T, cfg Config) (*Machine, *audio.Context, *fakeTime) {
	t.Helper()
	actx, err := audio.NewContext(testRate)
	if err != nil {
		t.Fatal(err)
	}
	ft := newFakeTime()
	m, err := NewMachine(actx, cfg, WithTimeSource(ft))
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m, actx, ft
}

// peak renders d of audio and returns the loudest sample
func peak(actx *audio.Context, d time.Duration) float64 {
	buf := make([]float32, int(d.Seconds()*testRate))
	actx.Render(buf)
	var p float64
	for _, s := range buf {
		p = math.Max(p, math.Abs(float64(s)))
	}
	return p
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no voices", func(c *Config) { c.Voices = 0 }},
		{"too many voices", func(c *Config) { c.Voices = MaxVoices + 1 }},
		{"no steps", func(c *Config) { c.Steps = 0 }},
		{"too many steps", func(c *Config) { c.Steps = MaxSteps + 1 }},
		{"zero tempo", func(c *Config) { c.Tempo = 0 }},
		{"NaN step", func(c *Config) { c.StepDuration = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestNewMachineBuildsVoices(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())
	if got := len(m.Voices()); got != 4 {
		t.Fatalf("voices = %d, want 4", got)
	}
	for i, vc := range m.Voices() {
		if vc.Name() != SlotNames[i] {
			t.Errorf("voice %d name = %q, want %q", i, vc.Name(), SlotNames[i])
		}
		if vc.Sequence().Len() != 16 || len(vc.Steps()) != 16 {
			t.Errorf("voice %d has %d events and %d steps, want 16", i, vc.Sequence().Len(), len(vc.Steps()))
		}
		if vc.Panel() == nil || vc.Voice() == nil {
			t.Errorf("voice %d missing panel or voice", i)
		}
	}
	if got := m.Dispatcher().Sequences(); got != 4 {
		t.Errorf("dispatcher has %d sequences, want 4", got)
	}
	if got := m.GetState().Voices; got != 4 {
		t.Errorf("State.Voices = %d, want 4", got)
	}
	if got := m.Dispatcher().Interval(); got != 125*time.Millisecond {
		t.Errorf("interval = %v, want 125ms", got)
	}
	if m.Voice(4) != nil || m.Voice(-1) != nil {
		t.Error("Voice out of range returned a controller")
	}
}

func TestToggleStep(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())
	m.ToggleStep(1, 3)
	m.ToggleStep(1, 99)
	m.ToggleStep(9, 0)

	steps := m.Voice(1).Steps()
	if !steps[3] {
		t.Fatal("step 3 not set")
	}
	steps[3] = false
	if !m.Voice(1).Steps()[3] {
		t.Error("Steps() returned the live slice")
	}

	m.ToggleStep(1, 3)
	if m.Voice(1).Steps()[3] {
		t.Error("second toggle did not clear step 3")
	}
}

func TestStepActionRespectsSwitchAndMute(t *testing.T) {
	tests := []struct {
		name  string
		on    bool
		muted bool
		sound bool
	}{
		{"step on", true, false, true},
		{"step off", false, false, false},
		{"muted", true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, actx, _ := newTestMachine(t, DefaultConfig())
			m.SetStep(0, 0, tt.on)
			m.SetMuted(0, tt.muted)

			vc := m.Voice(0)
			vc.Sequence().Play()
			vc.Sequence().OnTick(Tick{})

			if got := vc.Highlight(); got != 0 {
				t.Errorf("Highlight() = %d, want 0", got)
			}
			p := peak(actx, 50*time.Millisecond)
			if tt.sound && p < 0.01 {
				t.Errorf("peak = %v, want sound", p)
			}
			if !tt.sound && p != 0 {
				t.Errorf("peak = %v, want silence", p)
			}
		})
	}
}

func TestManualTriggerIgnoresMute(t *testing.T) {
	m, actx, _ := newTestMachine(t, DefaultConfig())
	m.ToggleMute(0)
	if !m.Voice(0).Muted() {
		t.Fatal("ToggleMute did not mute")
	}
	m.Trigger(0)
	if p := peak(actx, 50*time.Millisecond); p < 0.01 {
		t.Errorf("peak = %v, want sound from manual trigger", p)
	}
}

func TestHandleNote(t *testing.T) {
	m, actx, _ := newTestMachine(t, DefaultConfig())

	m.HandleNote(38, 100) // gm snare
	if got := m.Selected(); got != 1 {
		t.Errorf("Selected() = %d, want 1", got)
	}
	if p := peak(actx, 50*time.Millisecond); p < 0.01 {
		t.Errorf("peak = %v, want sound", p)
	}

	m.HandleNote(51, 100) // ride is slot 8, past the last voice
	m.HandleNote(1, 100)
	if got := m.Selected(); got != 1 {
		t.Errorf("unmapped note changed selection to %d", got)
	}

	m.SetKit("rd8")
	m.HandleNote(40, 100)
	if got := m.Selected(); got != 1 {
		t.Errorf("rd8 snare selected %d, want 1", got)
	}
	m.HandleNote(40, 0)
}

func TestSetTempo(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())
	tests := []struct {
		bpm          float64
		wantTempo    float64
		wantInterval time.Duration
	}{
		{500, MaxTempo, 50 * time.Millisecond},
		{0, MaxTempo, 50 * time.Millisecond},
		{-10, MaxTempo, 50 * time.Millisecond},
		{math.NaN(), MaxTempo, 50 * time.Millisecond},
		{math.Inf(1), MaxTempo, 50 * time.Millisecond},
		{5, MinTempo, 750 * time.Millisecond},
		{240, 240, 62500 * time.Microsecond},
	}
	for _, tt := range tests {
		m.SetTempo(tt.bpm)
		if got := m.Tempo(); got != tt.wantTempo {
			t.Errorf("SetTempo(%v): Tempo() = %v, want %v", tt.bpm, got, tt.wantTempo)
		}
		if got := m.Dispatcher().Interval(); got != tt.wantInterval {
			t.Errorf("SetTempo(%v): interval = %v, want %v", tt.bpm, got, tt.wantInterval)
		}
	}

	m.SetStepDuration(1.0 / 8)
	if got := m.Dispatcher().Interval(); got != 125*time.Millisecond {
		t.Errorf("1/8 at 240 = %v, want 125ms", got)
	}
	m.SetStepDuration(0)
	if got := m.Dispatcher().Interval(); got != 125*time.Millisecond {
		t.Errorf("invalid step changed interval to %v", got)
	}
}

func TestPagesAndResize(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())
	m.SetStep(0, 2, true)
	m.SetStep(0, 12, true)

	m.SetPage(1)
	if m.Page() != 1 {
		t.Fatalf("Page() = %d, want 1", m.Page())
	}
	m.SetPage(2)
	if m.Page() != 1 {
		t.Errorf("SetPage past the end moved to %d", m.Page())
	}

	m.ResetSequences(8)
	if m.Page() != 0 {
		t.Errorf("Page() = %d after shrinking, want 0", m.Page())
	}
	vc := m.Voice(0)
	if vc.Sequence().Len() != 8 || len(vc.Steps()) != 8 || !vc.Steps()[2] {
		t.Errorf("after resize: %d events, steps %v", vc.Sequence().Len(), vc.Steps())
	}

	m.ResetSequences(100)
	if got := m.GetState(); got.Steps != MaxSteps || got.Pages != 4 {
		t.Errorf("state = %+v, want %d steps over 4 pages", got, MaxSteps)
	}
	if vc.Steps()[12] {
		t.Error("step 12 survived a shrink to 8")
	}
}

func TestHandlePad(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())

	m.HandlePad(6, 3) // voice 1, step 3
	if !m.Voice(1).Steps()[3] || m.Selected() != 1 {
		t.Errorf("grid press: steps %v selected %d", m.Voice(1).Steps(), m.Selected())
	}

	m.HandlePad(midi.TopRow, padPageNext)
	m.HandlePad(7, 0) // voice 0, step 8
	if !m.Voice(0).Steps()[8] {
		t.Error("page 1 press did not set step 8")
	}

	m.HandlePad(5, midi.SideCol)
	if !m.Voice(2).Muted() {
		t.Error("side pad did not mute voice 2")
	}

	m.HandlePad(0, 0) // row of a voice that does not exist
	m.HandlePad(midi.TopRow, padTempoUp)
	if m.Tempo() != 121 {
		t.Errorf("Tempo() = %v, want 121", m.Tempo())
	}

	// play needs a running clock
	m.HandlePad(midi.TopRow, padPlay)
	if m.Playing() {
		t.Error("playing without a clock")
	}
}

func TestRenderLEDs(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())
	m.SetStep(0, 1, true)
	m.SetMuted(3, true)

	leds := make(map[[2]int]LEDState)
	for _, l := range m.RenderLEDs() {
		leds[[2]int{l.Row, l.Col}] = l
	}

	if got := leds[[2]int{7, 1}].Color; got != colorStepOn {
		t.Errorf("step on color = %v", got)
	}
	if got := leds[[2]int{7, 0}].Color; got != colorStepOff {
		t.Errorf("step off color = %v", got)
	}
	if got := leds[[2]int{4, midi.SideCol}].Color; got != colorMuted {
		t.Errorf("muted side color = %v", got)
	}
	if got := leds[[2]int{7, midi.SideCol}].Channel; got != midi.ChannelPulse {
		t.Errorf("selected side channel = %d, want pulse", got)
	}
	if _, ok := leds[[2]int{3, 0}]; ok {
		t.Error("drew a row with no voice")
	}
	if _, ok := leds[[2]int{midi.TopRow, padPagePrev}]; ok {
		t.Error("page prev lit on the first page")
	}
	if _, ok := leds[[2]int{midi.TopRow, padPageNext}]; !ok {
		t.Error("page next dark with a second page")
	}
}

type fakeController struct {
	mu      sync.Mutex
	batches [][]midi.LEDUpdate
}

func (f *fakeController) ID() string                        { return "fake" }
func (f *fakeController) Type() midi.ControllerType         { return midi.ControllerLaunchpad }
func (f *fakeController) PadEvents() <-chan midi.PadEvent   { return nil }
func (f *fakeController) NoteEvents() <-chan midi.NoteEvent { return nil }
func (f *fakeController) Close() error                      { return nil }
func (f *fakeController) SetLEDBatch(u []midi.LEDUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, u)
	return nil
}

func TestFlushLEDsSendsOnlyChanges(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())
	ctrl := &fakeController{}
	m.SetController(ctrl)

	m.flushLEDs()
	m.flushLEDs()
	m.ToggleStep(0, 0)
	m.flushLEDs()

	if len(ctrl.batches) != 2 {
		t.Fatalf("sent %d batches, want 2", len(ctrl.batches))
	}
	if got := len(ctrl.batches[0]); got != len(m.RenderLEDs()) {
		t.Errorf("first batch = %d updates, want full frame %d", got, len(m.RenderLEDs()))
	}
	second := ctrl.batches[1]
	if len(second) != 1 || second[0].Row != 7 || second[0].Col != 0 || second[0].Color != colorStepOn {
		t.Errorf("second batch = %+v, want one step on at 7,0", second)
	}

	// page prev appears, page next goes dark
	m.SetPage(1)
	m.flushLEDs()
	var blanked bool
	for _, u := range ctrl.batches[2] {
		if u.Row == midi.TopRow && u.Col == padPageNext && u.Color == [3]uint8{} {
			blanked = true
		}
	}
	if !blanked {
		t.Error("page next was not blanked")
	}
}

func TestPlayAndStop(t *testing.T) {
	m, _, ft := newTestMachine(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartRuntime(ctx, nil); err != nil {
		t.Fatalf("StartRuntime: %v", err)
	}

	m.Play()
	if !m.Playing() {
		t.Fatal("not playing")
	}
	waitFor(t, func() bool { return m.Voice(0).Highlight() == 0 })

	req := ft.nextRequest(t)
	req.ch <- ft.advance(req.d)
	waitFor(t, func() bool { return m.GetState().Step == 1 })
	// let the tick reach every voice before pausing
	waitFor(t, func() bool {
		for _, vc := range m.Voices() {
			if vc.Highlight() != 1 {
				return false
			}
		}
		return true
	})

	m.Pause()
	if m.Playing() || m.Voice(0).Sequence().Position() != 2 {
		t.Errorf("Pause: playing %v position %d", m.Playing(), m.Voice(0).Sequence().Position())
	}

	m.Stop()
	for i, vc := range m.Voices() {
		if vc.Highlight() != -1 || vc.Sequence().Position() != 0 || vc.Sequence().Running() {
			t.Errorf("voice %d not rewound after Stop", i)
		}
	}
}

func TestPauseIgnoresBufferedTick(t *testing.T) {
	m, _, _ := newTestMachine(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartRuntime(ctx, nil); err != nil {
		t.Fatalf("StartRuntime: %v", err)
	}
	m.Play()
	waitFor(t, func() bool {
		for _, vc := range m.Voices() {
			if vc.Sequence().Position() != 1 || vc.Highlight() != 0 {
				return false
			}
		}
		return true
	})

	m.Pause()
	// a tick the clock emitted just before the pause
	m.Dispatcher().Dispatch(Tick{Count: 1})
	for i, vc := range m.Voices() {
		if got := vc.Sequence().Position(); got != 1 {
			t.Errorf("voice %d advanced to %d after Pause", i, got)
		}
	}
	if got := m.Voice(0).Highlight(); got != 0 {
		t.Errorf("voice 0 highlight = %d after Pause, want 0", got)
	}

	m.Stop()
	m.Dispatcher().Dispatch(Tick{Count: 2})
	for i, vc := range m.Voices() {
		if vc.Sequence().Position() != 0 || vc.Highlight() != -1 {
			t.Errorf("voice %d fired after Stop", i)
		}
	}
}

func TestStartRuntimeReportsClockFailure(t *testing.T) {
	actx, err := audio.NewContext(testRate)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMachine(actx, DefaultConfig(), WithInterval(0))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reported int
	if err := m.StartRuntime(ctx, func(error) { reported++ }); err == nil {
		t.Fatal("StartRuntime succeeded with a zero interval")
	}
	if reported != 1 {
		t.Errorf("onError called %d times, want 1", reported)
	}
	m.Play()
	if m.Playing() {
		t.Error("playing after clock failure")
	}
}
