package synth

import (
	"math"
	"runtime"
	"sync"
	"testing"

	"go-drum/audio"
)

const testRate = 1000

func newTestVoice(t *testing.T) (*audio.Context, *Voice) {
	t.Helper()
	ctx, err := audio.NewContext(testRate)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	v, err := NewVoice(ctx, DefaultVoiceConfig(testRate))
	if err != nil {
		t.Fatalf("NewVoice: %v", err)
	}
	v.Connect(nil)
	return ctx, v
}

func TestVoiceSilentUntilTriggered(t *testing.T) {
	ctx, _ := newTestVoice(t)
	out := make([]float32, 256)
	ctx.Render(out)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("frame %d = %v before trigger, want 0", i, s)
		}
	}
}

func TestVoiceTriggerRunsAmpEnvelope(t *testing.T) {
	ctx, v := newTestVoice(t)
	v.Trigger()

	out := make([]float32, 10)
	ctx.Render(out)

	loud := false
	for _, s := range out {
		if s != 0 {
			loud = true
		}
	}
	if !loud {
		t.Error("no output during attack")
	}
	if got := v.ToneAmp.Gain.Value(); math.Abs(got-0.5) > 1e-3 {
		t.Errorf("tone amp after attack = %v, want 0.5", got)
	}
	// pitch starts from the oscillator's 440, drops to 220, then decays toward 110 over 0.1s
	if got := v.Tone.Frequency.Value(); math.Abs(got-209) > 1e-3 {
		t.Errorf("tone pitch 10ms in = %v, want 209", got)
	}

	ctx.Render(make([]float32, 400))
	if got := v.ToneAmp.Gain.Value(); got != 0 {
		t.Errorf("tone amp after decay = %v, want 0", got)
	}
	if got := v.Tone.Frequency.Value(); got != 110 {
		t.Errorf("tone pitch after decay = %v, want 110", got)
	}
}

func TestVoiceReleaseFallsFromLiveValue(t *testing.T) {
	ctx, v := newTestVoice(t)
	v.Trigger()
	ctx.Render(make([]float32, 10))

	before := v.NoiseAmp.Gain.Value()
	v.Release()
	if got := v.NoiseAmp.Gain.Value(); got != before {
		t.Errorf("release jumped from %v to %v", before, got)
	}

	ctx.Render(make([]float32, 400))
	if got := v.NoiseAmp.Gain.Value(); got != 0 {
		t.Errorf("noise amp after release = %v, want 0", got)
	}
}

func TestVoiceEnvelopeOrder(t *testing.T) {
	_, v := newTestVoice(t)
	envs := v.Envelopes()
	want := []*Envelope{v.TonePitchEnv, v.ToneFilterEnv, v.ToneAmpEnv, v.NoisePitchEnv, v.NoiseFilterEnv, v.NoiseAmpEnv}
	if len(envs) != len(want) {
		t.Fatalf("Envelopes() len = %d, want %d", len(envs), len(want))
	}
	for i := range want {
		if envs[i] != want[i] {
			t.Errorf("envelope %d out of order", i)
		}
	}
}

func TestVoiceNoiseBlockSizeSurvivesTrigger(t *testing.T) {
	ctx, v := newTestVoice(t)
	if got := v.Noise.BlockSize(); got != 2 {
		t.Fatalf("default block size = %d, want 2", got)
	}

	v.SetNoiseBlockSize(8)
	v.Trigger()
	ctx.Render(make([]float32, 128))

	if got := v.Noise.BlockSize(); got != 8 {
		t.Errorf("block size after trigger = %d, want 8", got)
	}
	if got := v.NoisePitchEnv.Config().HoldValue; got != ctx.BlockRate(8) {
		t.Errorf("noise pitch hold = %v, want %v", got, ctx.BlockRate(8))
	}
}

func TestVoiceResetReturnsToInitial(t *testing.T) {
	ctx, v := newTestVoice(t)
	v.Trigger()
	ctx.Render(make([]float32, 10))
	v.Reset()
	if got := v.NoiseFilter.Frequency.Value(); got != 220 {
		t.Errorf("noise filter after reset = %v, want 220", got)
	}
	if got := v.ToneAmp.Gain.Value(); got != 0 {
		t.Errorf("tone amp after reset = %v, want 0", got)
	}
}

func TestNewVoiceRejectsBadConfig(t *testing.T) {
	ctx, err := audio.NewContext(testRate)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		modify func(c *VoiceConfig)
	}{
		{"unknown oscillator", func(c *VoiceConfig) { c.ToneType = "pulse" }},
		{"unknown filter", func(c *VoiceConfig) { c.NoiseFilterType = "comb" }},
		{"zero block size", func(c *VoiceConfig) { c.NoiseBlockSize = 0 }},
		{"negative mix", func(c *VoiceConfig) { c.MixGain = -1 }},
		{"bad envelope", func(c *VoiceConfig) { c.ToneAmp.DecayTime = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultVoiceConfig(testRate)
			tt.modify(&cfg)
			if _, err := NewVoice(ctx, cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// lockedParam records calls from several goroutines
type lockedParam struct {
	mu sync.Mutex
	recordParam
}

func (p *lockedParam) CancelScheduledValues(t float64) {
	p.mu.Lock()
	p.recordParam.CancelScheduledValues(t)
	p.mu.Unlock()
	runtime.Gosched()
}

func (p *lockedParam) LinearRampToValueAtTime(v, t float64) {
	p.mu.Lock()
	p.recordParam.LinearRampToValueAtTime(v, t)
	p.mu.Unlock()
	runtime.Gosched()
}

func (p *lockedParam) ExponentialRampToValueAtTime(v, t float64) {
	p.mu.Lock()
	p.recordParam.ExponentialRampToValueAtTime(v, t)
	p.mu.Unlock()
	runtime.Gosched()
}

func TestVoiceConcurrentTriggersDoNotInterleave(t *testing.T) {
	_, v := newTestVoice(t)
	p := &lockedParam{}
	v.ToneAmpEnv = newTestEnvelope(t, p, EnvelopeConfig{
		AttackTime:   0.01,
		HoldTime:     0.1,
		DecayTime:    0.3,
		HoldValue:    1,
		SustainValue: 0.5,
	})

	const workers, hits = 8, 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range hits {
				v.Trigger()
			}
		}()
	}
	wg.Wait()

	// each On is cancel followed by four ramps
	const perOn = 5
	if len(p.calls) != workers*hits*perOn {
		t.Fatalf("got %d calls, want %d", len(p.calls), workers*hits*perOn)
	}
	for i, c := range p.calls {
		if (c.op == "cancel") != (i%perOn == 0) {
			t.Fatalf("call %d is %q: envelope schedules interleaved", i, c.op)
		}
	}
}
