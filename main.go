package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-drum/audio"
	"go-drum/config"
	"go-drum/debug"
	"go-drum/midi"
	"go-drum/sequencer"
	"go-drum/theme"
	"go-drum/tui"
)

// output is either the oto player or the silent fallback
type output interface {
	Start()
	Close() error
}

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/go-drum/config.json)")
	headless := flag.Bool("headless", false, "run without an audio device")
	debugFlag := flag.Bool("debug", false, "write a debug log")
	flag.Parse()

	if err := run(*configPath, *headless, *debugFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, headless, debugFlag bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if debugFlag || cfg.Debug {
		if err := debug.Enable(cfg.DebugLog); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		defer debug.Disable()
	}

	palette, err := theme.Load(cfg.Palette)
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	th := theme.New(palette)

	actx, err := audio.NewContext(cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	out := openOutput(actx, cfg, headless)
	defer out.Close()

	machine, err := sequencer.NewMachine(actx, sequencer.Config{
		Voices:       cfg.Voices,
		Steps:        cfg.Steps,
		Tempo:        cfg.Tempo,
		StepDuration: cfg.StepDuration,
		Repeat:       cfg.Repeat,
		Kit:          cfg.Kit,
	})
	if err != nil {
		return fmt.Errorf("machine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var status string
	if err := machine.StartRuntime(ctx, func(err error) {
		debug.Error("main", err, "clock")
	}); err != nil {
		status = fmt.Sprintf("clock failed: %v", err)
	}
	out.Start()

	// Create MIDI device manager (handles hot-plug)
	var opts []midi.Option
	if names := cfg.KeyboardPorts(); len(names) > 0 {
		opts = append(opts, midi.WithKeyboards(names...))
	}
	if ch := cfg.KeyboardChannel(); ch > 0 {
		opts = append(opts, midi.WithInputChannel(ch))
	}
	deviceMgr := midi.NewDeviceManager(opts...)
	go deviceMgr.Run(ctx)

	m := tui.NewModel(machine, deviceMgr, th).WithStatus(status)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}

	// remember the last tempo and kit
	state := machine.GetState()
	if state.Tempo == cfg.Tempo && state.Kit == cfg.Kit {
		return nil
	}
	cfg.Tempo, cfg.Kit = state.Tempo, state.Kit
	if configPath != "" {
		return cfg.SaveTo(configPath)
	}
	return cfg.Save()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// openOutput falls back to a silent renderer when no device can be opened,
// so the clock and sequencer still run
func openOutput(actx *audio.Context, cfg *config.Config, headless bool) output {
	buffer := time.Duration(cfg.Audio.BufferMS) * time.Millisecond
	if !headless && !cfg.Audio.Headless {
		o, err := audio.NewOutput(actx, buffer)
		if err == nil {
			return o
		}
		debug.Error("audio", err, "open output, falling back to silent render")
	}
	return audio.NewNullOutput(actx, buffer)
}
