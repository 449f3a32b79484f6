package synth

import (
	"errors"
	"testing"

	"go-drum/audio"
)

func TestKnobValueAngleMapping(t *testing.T) {
	var pushed float64
	k, err := NewKnob(KnobConfig{Name: "level", Min: 0, Max: 1, Value: 0.5}, func(v float64) { pushed = v })
	if err != nil {
		t.Fatalf("NewKnob: %v", err)
	}
	if got := k.Angle(); got != 0 {
		t.Fatalf("Angle() = %v, want 0 for mid value", got)
	}

	tests := []struct {
		name      string
		dy        float64
		wantAngle float64
		wantValue float64
	}{
		{"drag up turns clockwise", -67.5, 67.5, 0.75},
		{"clamps at max angle", -1000, 135, 1},
		{"drag down turns back", 270, -135, 0},
		{"clamps at min angle", 50, -135, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k.Drag(tt.dy)
			if got := k.Angle(); !near(got, tt.wantAngle) {
				t.Errorf("Angle() = %v, want %v", got, tt.wantAngle)
			}
			if got := k.Value(); !near(got, tt.wantValue) {
				t.Errorf("Value() = %v, want %v", got, tt.wantValue)
			}
			if !near(pushed, tt.wantValue) {
				t.Errorf("pushed %v, want %v", pushed, tt.wantValue)
			}
		})
	}
}

func TestKnobSetValueClamps(t *testing.T) {
	k, err := NewKnob(KnobConfig{Name: "hold", Min: 20, Max: 2000, Value: 220}, nil)
	if err != nil {
		t.Fatal(err)
	}
	k.SetValue(5000)
	if got := k.Value(); !near(got, 2000) {
		t.Errorf("Value() = %v, want 2000", got)
	}
	k.SetValue(-1)
	if got := k.Value(); !near(got, 20) {
		t.Errorf("Value() = %v, want 20", got)
	}
}

func TestKnobIncrementStepsTwentieths(t *testing.T) {
	k, err := NewKnob(KnobConfig{Name: "gain", Min: 0, Max: 1, Value: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	k.Increment()
	if got := k.Value(); !near(got, 0.05) {
		t.Errorf("after Increment Value() = %v, want 0.05", got)
	}
	k.Decrement()
	k.Decrement()
	if got := k.Value(); !near(got, 0) {
		t.Errorf("after Decrement Value() = %v, want 0", got)
	}
}

func TestNewKnobRejectsBadConfig(t *testing.T) {
	bad := []KnobConfig{
		{Name: "empty", Min: 1, Max: 1},
		{Name: "reversed", Min: 1, Max: 0},
		{Name: "angles", Min: 0, Max: 1, MinAngle: 90, MaxAngle: -90},
		{Name: "speed", Min: 0, Max: 1, Speed: -1},
	}
	for _, cfg := range bad {
		if _, err := NewKnob(cfg, nil); !errors.Is(err, ErrInvalidControl) {
			t.Errorf("%s: err = %v, want ErrInvalidControl", cfg.Name, err)
		}
	}
}

func TestKnobDisplay(t *testing.T) {
	tests := []struct {
		cfg  KnobConfig
		want string
	}{
		{KnobConfig{Min: 0, Max: 20000, Value: 1760, Unit: "Hz"}, "1760Hz"},
		{KnobConfig{Min: 0, Max: 20, Value: 12.5}, "12.5"},
		{KnobConfig{Min: 0, Max: 1, Value: 0.3, Unit: "s"}, "0.30s"},
	}
	for _, tt := range tests {
		k, err := NewKnob(tt.cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := k.Display(); got != tt.want {
			t.Errorf("Display() = %q, want %q", got, tt.want)
		}
	}
}

func TestSwitchWraps(t *testing.T) {
	var gotIndex int
	var gotValue string
	s, err := NewSwitch("curve", "amp", []string{"a", "b", "c"}, 9, func(i int, v string) {
		gotIndex, gotValue = i, v
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Index() != 2 {
		t.Fatalf("out of range selection = %d, want clamped to 2", s.Index())
	}
	s.Increment()
	if gotIndex != 0 || gotValue != "a" {
		t.Errorf("Increment wrapped to %d %q, want 0 \"a\"", gotIndex, gotValue)
	}
	s.Decrement()
	if s.Value() != "c" {
		t.Errorf("Decrement wrapped to %q, want \"c\"", s.Value())
	}

	if _, err := NewSwitch("none", "", nil, 0, nil); !errors.Is(err, ErrInvalidControl) {
		t.Errorf("empty poles: err = %v, want ErrInvalidControl", err)
	}
}

func TestColorBlockSize(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0, 1},
		{0.2, 2},
		{1, 2},
		{1.01, 4},
		{8, 256},
		{-3, 1},
	}
	for _, tt := range tests {
		if got := ColorBlockSize(tt.v); got != tt.want {
			t.Errorf("ColorBlockSize(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestPanelStartsFromVoiceSettings(t *testing.T) {
	_, v := newTestVoice(t)
	p, err := NewPanel(v)
	if err != nil {
		t.Fatalf("NewPanel: %v", err)
	}

	var names []string
	for _, s := range p.Sections() {
		names = append(names, s.Name)
	}
	if len(names) != 3 || names[0] != "tone" || names[1] != "noise" || names[2] != "mix" {
		t.Fatalf("sections = %v", names)
	}

	if got := v.Tone.Type(); got != audio.Square {
		t.Errorf("osc type = %v, want square", got)
	}
	if got := v.NoiseFilter.Type(); got != audio.Highpass {
		t.Errorf("noise filter type = %v, want highpass", got)
	}
	cfg := v.ToneAmpEnv.Config()
	if cfg.DecayCurve != CurveLinear || cfg.ReleaseCurve != CurveLinear {
		t.Errorf("amp curves = %v/%v, want linear", cfg.DecayCurve, cfg.ReleaseCurve)
	}
	if !near(cfg.HoldValue, 0.5) || cfg.SustainValue != 0 {
		t.Errorf("amp hold/sustain = %v/%v, want 0.5/0", cfg.HoldValue, cfg.SustainValue)
	}
	if got := v.Noise.BlockSize(); got != 2 {
		t.Errorf("noise block size = %d, want 2", got)
	}
}

func TestPanelControlsDriveVoice(t *testing.T) {
	_, v := newTestVoice(t)
	p, err := NewPanel(v)
	if err != nil {
		t.Fatalf("NewPanel: %v", err)
	}

	control := func(id string) Control {
		t.Helper()
		c, ok := p.Control(id)
		if !ok {
			t.Fatalf("no control %q", id)
		}
		return c
	}

	control("tone/pitch decay").(*Knob).SetValue(0.5)
	if cfg := v.TonePitchEnv.Config(); !near(cfg.DecayTime, 0.5) || !near(cfg.ReleaseTime, 0.5) {
		t.Errorf("pitch decay/release = %v/%v, want 0.5", cfg.DecayTime, cfg.ReleaseTime)
	}

	control("noise/amp level").(*Knob).SetValue(0.8)
	if cfg := v.NoiseAmpEnv.Config(); !near(cfg.HoldValue, 0.8) || cfg.SustainValue != 0 {
		t.Errorf("noise amp hold/sustain = %v/%v, want 0.8/0", cfg.HoldValue, cfg.SustainValue)
	}

	control("tone/filter curve").(*Switch).Select(0)
	if cfg := v.ToneFilterEnv.Config(); cfg.DecayCurve != CurveLinear || cfg.ReleaseCurve != CurveLinear {
		t.Errorf("filter curves = %v/%v, want linear", cfg.DecayCurve, cfg.ReleaseCurve)
	}

	control("tone/osc").Increment()
	if got := v.Tone.Type(); got != audio.Sawtooth {
		t.Errorf("osc type = %v, want sawtooth", got)
	}

	// one step from 1 lands at 1.4, so 2^ceil(1.4) = 4
	control("noise/color").Increment()
	if got := v.Noise.BlockSize(); got != 4 {
		t.Errorf("block size = %d, want 4", got)
	}

	control("mix/gain").(*Knob).SetValue(0.25)
	if got := v.Mix.Gain.Value(); !near(got, 0.25) {
		t.Errorf("mix gain = %v, want 0.25", got)
	}
}

func TestPanelKeepsPresetSettings(t *testing.T) {
	ctx, err := audio.NewContext(testRate)
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewVoice(ctx, PresetConfig(PresetKick, testRate))
	if err != nil {
		t.Fatalf("NewVoice: %v", err)
	}
	if _, err := NewPanel(v); err != nil {
		t.Fatalf("NewPanel: %v", err)
	}

	if got := v.Tone.Type(); got != audio.Sine {
		t.Errorf("osc type = %v, want sine", got)
	}
	cfg := v.TonePitchEnv.Config()
	if !near(cfg.HoldValue, 160) || cfg.DecayCurve != CurveExponential {
		t.Errorf("pitch env = %+v, want hold 160 exponential", cfg)
	}
	if !near(cfg.ReleaseTime, cfg.DecayTime) {
		t.Errorf("pitch release %v not coupled to decay %v", cfg.ReleaseTime, cfg.DecayTime)
	}
}
