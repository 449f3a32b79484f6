package synth

import (
	"fmt"
	"math"
	"sync"

	"go-drum/audio"
)

// VoiceConfig is the patch for one drum voice
type VoiceConfig struct {
	ToneType            audio.OscillatorType
	ToneFrequency       float64
	ToneFilterType      audio.FilterType
	ToneFilterFrequency float64
	ToneFilterQ         float64

	NoiseBlockSize       int
	NoiseFilterType      audio.FilterType
	NoiseFilterFrequency float64
	NoiseFilterQ         float64

	MixGain float64

	TonePitch   EnvelopeConfig
	ToneFilter  EnvelopeConfig
	ToneAmp     EnvelopeConfig
	NoisePitch  EnvelopeConfig // over the noise rate, in new samples per second
	NoiseFilter EnvelopeConfig
	NoiseAmp    EnvelopeConfig
}

// DefaultVoiceConfig returns the stock drum patch.
// The noise pitch envelope is flat at the block size's rate.
func DefaultVoiceConfig(sampleRate float64) VoiceConfig {
	const blockSize = 2
	noiseRate := sampleRate / blockSize

	return VoiceConfig{
		ToneType:            audio.Square,
		ToneFrequency:       440,
		ToneFilterType:      audio.Lowpass,
		ToneFilterFrequency: 20000,
		ToneFilterQ:         1,

		NoiseBlockSize:       blockSize,
		NoiseFilterType:      audio.Highpass,
		NoiseFilterFrequency: 20000,
		NoiseFilterQ:         1,

		MixGain: 0.5,

		TonePitch: EnvelopeConfig{
			DecayTime:    0.1,
			ReleaseTime:  0.1,
			HoldValue:    220,
			SustainValue: 110,
		},
		ToneFilter: EnvelopeConfig{
			DecayTime:    0.1,
			ReleaseTime:  0.1,
			HoldValue:    1760,
			SustainValue: 440,
		},
		ToneAmp: EnvelopeConfig{
			AttackTime:  0.01,
			DecayTime:   0.3,
			ReleaseTime: 0.3,
			HoldValue:   0.5,
		},
		NoisePitch: EnvelopeConfig{
			InitialValue: noiseRate,
			HoldValue:    noiseRate,
			SustainValue: noiseRate,
			FinalValue:   noiseRate,
		},
		NoiseFilter: EnvelopeConfig{
			DecayTime:    0.3,
			ReleaseTime:  0.3,
			InitialValue: 220,
			HoldValue:    220,
			SustainValue: 1760,
		},
		NoiseAmp: EnvelopeConfig{
			AttackTime:  0.01,
			DecayTime:   0.3,
			ReleaseTime: 0.3,
			HoldValue:   0.5,
		},
	}
}

// Validate checks node settings and every envelope
func (c VoiceConfig) Validate() error {
	if _, err := audio.ParseOscillatorType(string(c.ToneType)); err != nil {
		return err
	}
	if _, err := audio.ParseFilterType(string(c.ToneFilterType)); err != nil {
		return err
	}
	if _, err := audio.ParseFilterType(string(c.NoiseFilterType)); err != nil {
		return err
	}
	if c.NoiseBlockSize < 1 {
		return fmt.Errorf("noise block size %d must be at least 1", c.NoiseBlockSize)
	}
	for name, v := range map[string]float64{
		"tone frequency":         c.ToneFrequency,
		"tone filter frequency":  c.ToneFilterFrequency,
		"tone filter Q":          c.ToneFilterQ,
		"noise filter frequency": c.NoiseFilterFrequency,
		"noise filter Q":         c.NoiseFilterQ,
		"mix gain":               c.MixGain,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid %s: %v", name, v)
		}
	}
	envs := []struct {
		name string
		cfg  EnvelopeConfig
	}{
		{"tone pitch", c.TonePitch},
		{"tone filter", c.ToneFilter},
		{"tone amp", c.ToneAmp},
		{"noise pitch", c.NoisePitch},
		{"noise filter", c.NoiseFilter},
		{"noise amp", c.NoiseAmp},
	}
	for _, e := range envs {
		if err := e.cfg.Validate(); err != nil {
			return fmt.Errorf("%s envelope: %w", e.name, err)
		}
	}
	return nil
}

// Voice is one drum sound: an enveloped tone path and noise path summed
// into a mix gain. Created once per slot; the graph lives as long as the voice.
type Voice struct {
	ctx *audio.Context

	// serializes envelope scheduling between the sequencer and manual hits
	mu sync.Mutex

	Tone       *audio.Oscillator
	ToneFilter *audio.BiquadFilter
	ToneAmp    *audio.Gain

	Noise       *audio.Noise
	NoiseFilter *audio.BiquadFilter
	NoiseAmp    *audio.Gain

	Mix *audio.Gain

	TonePitchEnv   *Envelope
	ToneFilterEnv  *Envelope
	ToneAmpEnv     *Envelope
	NoisePitchEnv  *Envelope
	NoiseFilterEnv *Envelope
	NoiseAmpEnv    *Envelope
}

// NewVoice builds the voice graph on ctx. The voice is not connected to
// any output until Connect is called.
func NewVoice(ctx *audio.Context, cfg VoiceConfig) (*Voice, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("voice config: %w", err)
	}

	v := &Voice{ctx: ctx}

	v.Tone = ctx.NewOscillator(cfg.ToneType, cfg.ToneFrequency)
	v.ToneFilter = ctx.NewBiquadFilter(cfg.ToneFilterType, cfg.ToneFilterFrequency, cfg.ToneFilterQ)
	v.ToneAmp = ctx.NewGain(0)
	v.Tone.Connect(v.ToneFilter)
	v.ToneFilter.Connect(v.ToneAmp)

	v.Noise = ctx.NewNoise(cfg.NoiseBlockSize)
	v.NoiseFilter = ctx.NewBiquadFilter(cfg.NoiseFilterType, cfg.NoiseFilterFrequency, cfg.NoiseFilterQ)
	v.NoiseAmp = ctx.NewGain(0)
	v.Noise.Connect(v.NoiseFilter)
	v.NoiseFilter.Connect(v.NoiseAmp)

	v.Mix = ctx.NewGain(cfg.MixGain)
	v.ToneAmp.Connect(v.Mix)
	v.NoiseAmp.Connect(v.Mix)

	bindings := []struct {
		env   **Envelope
		param *audio.Param
		cfg   EnvelopeConfig
	}{
		{&v.TonePitchEnv, v.Tone.Frequency, cfg.TonePitch},
		{&v.ToneFilterEnv, v.ToneFilter.Frequency, cfg.ToneFilter},
		{&v.ToneAmpEnv, v.ToneAmp.Gain, cfg.ToneAmp},
		{&v.NoisePitchEnv, v.Noise.Rate, cfg.NoisePitch},
		{&v.NoiseFilterEnv, v.NoiseFilter.Frequency, cfg.NoiseFilter},
		{&v.NoiseAmpEnv, v.NoiseAmp.Gain, cfg.NoiseAmp},
	}
	for _, b := range bindings {
		env, err := NewEnvelope(b.param, b.cfg)
		if err != nil {
			return nil, err
		}
		*b.env = env
	}

	return v, nil
}

// Envelopes returns the envelopes in trigger order:
// tone pitch, filter, amp, then noise pitch, filter, amp
func (v *Voice) Envelopes() []*Envelope {
	return []*Envelope{
		v.TonePitchEnv,
		v.ToneFilterEnv,
		v.ToneAmpEnv,
		v.NoisePitchEnv,
		v.NoiseFilterEnv,
		v.NoiseAmpEnv,
	}
}

// Trigger strikes the tone and noise layers together
func (v *Voice) Trigger() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, env := range v.Envelopes() {
		env.On()
	}
}

// Release sends every envelope into its release stage
func (v *Voice) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, env := range v.Envelopes() {
		env.Off()
	}
}

// Reset returns every envelope to its initial value
func (v *Voice) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, env := range v.Envelopes() {
		env.Reset()
	}
}

// SetNoiseBlockSize changes the noise coarseness. The noise pitch envelope
// is flattened at the new rate so triggers keep the same block size.
func (v *Voice) SetNoiseBlockSize(blockSize int) {
	if blockSize < 1 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	rate := v.ctx.BlockRate(blockSize)
	env := v.NoisePitchEnv
	env.SetInitialValue(rate)
	env.SetHoldValue(rate)
	env.SetSustainValue(rate)
	env.SetFinalValue(rate)
	v.Noise.SetBlockSize(blockSize)
}

// Connect routes the mix to dst, or to the context destination when dst is nil
func (v *Voice) Connect(dst audio.Node) {
	v.Disconnect()
	if dst == nil {
		dst = v.ctx.Destination
	}
	v.Mix.Connect(dst)
}

// Disconnect detaches the mix from every output
func (v *Voice) Disconnect() {
	v.Mix.Disconnect()
}
