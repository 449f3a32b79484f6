package synth

import "go-drum/audio"

// Preset names understood by PresetConfig
const (
	PresetKick      = "kick"
	PresetSnare     = "snare"
	PresetClosedHat = "closed hat"
	PresetOpenHat   = "open hat"
	PresetTom       = "tom"
	PresetCrash     = "crash"
	PresetRide      = "ride"
	PresetClap      = "clap"
)

// PresetConfig returns a starting patch for a drum sound. Unknown names
// get the stock voice.
func PresetConfig(name string, sampleRate float64) VoiceConfig {
	cfg := DefaultVoiceConfig(sampleRate)
	exp := CurveExponential

	switch name {
	case PresetKick:
		cfg.ToneType = audio.Sine
		cfg.TonePitch.HoldValue = 160
		cfg.TonePitch.SustainValue = 45
		cfg.TonePitch.DecayTime = 0.08
		cfg.TonePitch.DecayCurve = exp
		cfg.ToneAmp.HoldValue = 0.9
		cfg.ToneAmp.DecayTime = 0.4
		cfg.ToneAmp.DecayCurve = exp
		cfg.NoiseAmp.HoldValue = 0.05
		cfg.NoiseAmp.DecayTime = 0.02

	case PresetSnare:
		cfg.ToneType = audio.Triangle
		cfg.TonePitch.HoldValue = 240
		cfg.TonePitch.SustainValue = 180
		cfg.ToneAmp.HoldValue = 0.4
		cfg.ToneAmp.DecayTime = 0.12
		cfg.NoiseFilter.InitialValue = 1200
		cfg.NoiseFilter.HoldValue = 1200
		cfg.NoiseFilter.SustainValue = 2400
		cfg.NoiseAmp.HoldValue = 0.6
		cfg.NoiseAmp.DecayTime = 0.2
		cfg.NoiseAmp.DecayCurve = exp

	case PresetClosedHat, PresetOpenHat, PresetRide:
		cfg.ToneAmp.HoldValue = 0
		cfg.NoiseBlockSize = 1
		cfg.NoiseFilter.InitialValue = 7000
		cfg.NoiseFilter.HoldValue = 7000
		cfg.NoiseFilter.SustainValue = 9000
		cfg.NoiseAmp.HoldValue = 0.4
		cfg.NoiseAmp.DecayCurve = exp
		switch name {
		case PresetClosedHat:
			cfg.NoiseAmp.DecayTime = 0.05
		case PresetOpenHat:
			cfg.NoiseAmp.DecayTime = 0.35
		case PresetRide:
			cfg.ToneType = audio.Square
			cfg.TonePitch.HoldValue = 3200
			cfg.TonePitch.SustainValue = 3100
			cfg.ToneAmp.HoldValue = 0.08
			cfg.ToneAmp.DecayTime = 0.6
			cfg.NoiseAmp.DecayTime = 0.8
		}

	case PresetTom:
		cfg.ToneType = audio.Sine
		cfg.TonePitch.HoldValue = 220
		cfg.TonePitch.SustainValue = 140
		cfg.TonePitch.DecayTime = 0.2
		cfg.ToneAmp.HoldValue = 0.7
		cfg.ToneAmp.DecayTime = 0.35
		cfg.ToneAmp.DecayCurve = exp
		cfg.NoiseAmp.HoldValue = 0.05

	case PresetCrash:
		cfg.ToneAmp.HoldValue = 0
		cfg.NoiseBlockSize = 1
		cfg.NoiseFilter.InitialValue = 3000
		cfg.NoiseFilter.HoldValue = 3000
		cfg.NoiseFilter.SustainValue = 6000
		cfg.NoiseFilter.DecayTime = 1
		cfg.NoiseAmp.HoldValue = 0.5
		cfg.NoiseAmp.DecayTime = 1.5
		cfg.NoiseAmp.DecayCurve = exp

	case PresetClap:
		cfg.ToneAmp.HoldValue = 0
		cfg.NoiseFilterType = audio.Bandpass
		cfg.NoiseFilterQ = 2
		cfg.NoiseFilter.InitialValue = 1100
		cfg.NoiseFilter.HoldValue = 1100
		cfg.NoiseFilter.SustainValue = 1100
		cfg.NoiseAmp.HoldTime = 0.02
		cfg.NoiseAmp.HoldValue = 0.7
		cfg.NoiseAmp.DecayTime = 0.18
		cfg.NoiseAmp.DecayCurve = exp
	}

	cfg.ToneAmp.ReleaseTime = cfg.ToneAmp.DecayTime
	cfg.ToneAmp.ReleaseCurve = cfg.ToneAmp.DecayCurve
	cfg.NoiseAmp.ReleaseTime = cfg.NoiseAmp.DecayTime
	cfg.NoiseAmp.ReleaseCurve = cfg.NoiseAmp.DecayCurve
	cfg.NoisePitch = flatEnvelope(sampleRate / float64(cfg.NoiseBlockSize))
	return cfg
}

func flatEnvelope(v float64) EnvelopeConfig {
	return EnvelopeConfig{
		InitialValue: v,
		HoldValue:    v,
		SustainValue: v,
		FinalValue:   v,
	}
}
