package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Sentinel errors returned by Validate
var (
	ErrInvalidTempo      = errors.New("invalid tempo")
	ErrInvalidStep       = errors.New("invalid step duration")
	ErrInvalidVoices     = errors.New("invalid voice count")
	ErrInvalidSteps      = errors.New("invalid steps per voice")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidBuffer     = errors.New("invalid audio buffer")
	ErrInvalidChannel    = errors.New("invalid input channel")
)

// Limits shared with the sequencer
const (
	MinTempo  = 20
	MaxTempo  = 300
	MaxVoices = 8
	MaxSteps  = 32
)

// ControllerType identifies the kind of controller
type ControllerType string

const (
	ControllerLaunchpadX    ControllerType = "launchpad-x"
	ControllerLaunchpadMini ControllerType = "launchpad-mini"
	ControllerLaunchpadPro  ControllerType = "launchpad-pro"
	ControllerKeyboard      ControllerType = "keyboard"
)

// ControllerConfig defines a saved controller configuration
type ControllerConfig struct {
	PortName     string         `json:"portName"`
	Type         ControllerType `json:"type"`
	AutoConnect  bool           `json:"autoConnect"`
	InputChannel int            `json:"inputChannel,omitempty"` // for keyboards, 0 = omni
}

// AudioConfig sets up the output device
type AudioConfig struct {
	SampleRate int  `json:"sampleRate"`
	BufferMS   int  `json:"bufferMs"`
	Headless   bool `json:"headless,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Tempo        float64            `json:"tempo"`
	StepDuration float64            `json:"stepDuration"` // fraction of a measure
	Voices       int                `json:"voices"`
	Steps        int                `json:"steps"`
	Repeat       bool               `json:"repeat"`
	Kit          string             `json:"kit"`
	Audio        AudioConfig        `json:"audio"`
	Controllers  []ControllerConfig `json:"controllers,omitempty"`
	Palette      string             `json:"palette,omitempty"`
	Debug        bool               `json:"debug,omitempty"`
	DebugLog     string             `json:"debugLog,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tempo:        120,
		StepDuration: 1.0 / 16,
		Voices:       4,
		Steps:        16,
		Repeat:       true,
		Kit:          "gm",
		Audio: AudioConfig{
			SampleRate: 44100,
			BufferMS:   20,
		},
		Controllers: []ControllerConfig{
			{
				PortName:    "Launchpad X LPX MIDI",
				Type:        ControllerLaunchpadX,
				AutoConnect: true,
			},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-drum"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults
// and a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks every field against the machine's limits
func (c *Config) Validate() error {
	if !finite(c.Tempo) || c.Tempo < MinTempo || c.Tempo > MaxTempo {
		return fmt.Errorf("%w: %v (want %d-%d)", ErrInvalidTempo, c.Tempo, MinTempo, MaxTempo)
	}
	if !finite(c.StepDuration) || c.StepDuration <= 0 || c.StepDuration > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidStep, c.StepDuration)
	}
	if c.Voices < 1 || c.Voices > MaxVoices {
		return fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidVoices, c.Voices, MaxVoices)
	}
	if c.Steps < 1 || c.Steps > MaxSteps {
		return fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidSteps, c.Steps, MaxSteps)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.BufferMS < 1 || c.Audio.BufferMS > 1000 {
		return fmt.Errorf("%w: %dms", ErrInvalidBuffer, c.Audio.BufferMS)
	}
	for _, ctrl := range c.Controllers {
		if ctrl.InputChannel < 0 || ctrl.InputChannel > 16 {
			return fmt.Errorf("%w: %s channel %d", ErrInvalidChannel, ctrl.PortName, ctrl.InputChannel)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FindController finds a controller config by port name
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == portName {
			return &c.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == ctrl.PortName {
			c.Controllers[i] = ctrl
			return
		}
	}
	c.Controllers = append(c.Controllers, ctrl)
}

// AutoConnectControllers returns controllers with autoConnect enabled
func (c *Config) AutoConnectControllers() []ControllerConfig {
	var result []ControllerConfig
	for _, ctrl := range c.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}

// KeyboardPorts returns auto-connect keyboard port names
func (c *Config) KeyboardPorts() []string {
	var names []string
	for _, ctrl := range c.AutoConnectControllers() {
		if ctrl.Type == ControllerKeyboard {
			names = append(names, ctrl.PortName)
		}
	}
	return names
}

// KeyboardChannel returns the input channel of the first auto-connect
// keyboard that sets one, or 0 for omni
func (c *Config) KeyboardChannel() int {
	for _, ctrl := range c.AutoConnectControllers() {
		if ctrl.Type == ControllerKeyboard && ctrl.InputChannel > 0 {
			return ctrl.InputChannel
		}
	}
	return 0
}
