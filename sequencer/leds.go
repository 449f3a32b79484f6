package sequencer

import "go-drum/midi"

// LEDState describes the state of a single LED
type LEDState struct {
	Row, Col int
	Color    [3]uint8 // RGB color - controller maps to its palette
	Channel  uint8    // 0=static, 2=pulse
}

// Grid colors
var (
	colorStepOn    = [3]uint8{255, 100, 0}
	colorStepOff   = [3]uint8{40, 60, 120}
	colorPlayhead  = [3]uint8{255, 255, 255}
	colorHitStep   = [3]uint8{0, 255, 0}
	colorMuted     = [3]uint8{255, 0, 0}
	colorUnmuted   = [3]uint8{0, 100, 0}
	colorSelected  = [3]uint8{0, 200, 200}
	colorPlaying   = [3]uint8{0, 255, 0}
	colorTransport = [3]uint8{180, 180, 60}
	colorPage      = [3]uint8{0, 100, 255}
)

// LegendEntry names one of the colors the Launchpad shows
type LegendEntry struct {
	Color [3]uint8
	Name  string
	Desc  string
}

// LEDLegend lists the pad colors in the order they are explained to the user
func LEDLegend() []LegendEntry {
	return []LegendEntry{
		{colorStepOn, "Step", "switched on"},
		{colorStepOff, "Step", "switched off"},
		{colorPlayhead, "Playhead", "current step"},
		{colorHitStep, "Hit", "playhead on an active step"},
		{colorMuted, "Mute", "voice silenced"},
		{colorSelected, "Select", "voice shown in the panel"},
		{colorPage, "Page", "previous / next page"},
	}
}

// Top row buttons on the Launchpad
const (
	padPlay = iota
	padStop
	padPagePrev
	padPageNext
	padTempoDown
	padTempoUp
)

// Pad layout: grid row 7 (top) is voice 0, columns are the steps of the
// current page, the side column mutes, the top row is transport.

func voiceForRow(row int) int { return midi.GridSize - 1 - row }
func rowForVoice(v int) int   { return midi.GridSize - 1 - v }

// RenderLEDs draws the machine on a Launchpad grid
func (m *Machine) RenderLEDs() []LEDState {
	m.mu.RLock()
	playing := m.playing
	page := m.page
	selected := m.selected
	steps := m.cfg.Steps
	m.mu.RUnlock()

	var leds []LEDState
	offset := page * midi.GridSize

	for vi, vc := range m.voices {
		if vi >= midi.GridSize {
			break
		}
		row := rowForVoice(vi)
		pattern := vc.Steps()
		head := vc.Highlight()

		for col := 0; col < midi.GridSize; col++ {
			step := offset + col
			if step >= steps {
				break
			}
			on := step < len(pattern) && pattern[step]
			switch {
			case step == head && on:
				leds = append(leds, LEDState{Row: row, Col: col, Color: colorHitStep})
			case step == head:
				leds = append(leds, LEDState{Row: row, Col: col, Color: colorPlayhead})
			case on:
				leds = append(leds, LEDState{Row: row, Col: col, Color: colorStepOn})
			default:
				leds = append(leds, LEDState{Row: row, Col: col, Color: colorStepOff})
			}
		}

		side := colorUnmuted
		if vc.Muted() {
			side = colorMuted
		}
		if vi == selected {
			leds = append(leds, LEDState{Row: row, Col: midi.SideCol, Color: side, Channel: midi.ChannelPulse})
		} else {
			leds = append(leds, LEDState{Row: row, Col: midi.SideCol, Color: side})
		}
	}

	play := colorTransport
	if playing {
		play = colorPlaying
	}
	leds = append(leds,
		LEDState{Row: midi.TopRow, Col: padPlay, Color: play},
		LEDState{Row: midi.TopRow, Col: padStop, Color: colorTransport},
		LEDState{Row: midi.TopRow, Col: padTempoDown, Color: colorSelected},
		LEDState{Row: midi.TopRow, Col: padTempoUp, Color: colorSelected},
	)
	if page > 0 {
		leds = append(leds, LEDState{Row: midi.TopRow, Col: padPagePrev, Color: colorPage})
	}
	if offset+midi.GridSize < steps {
		leds = append(leds, LEDState{Row: midi.TopRow, Col: padPageNext, Color: colorPage})
	}
	return leds
}

// HandlePad maps a Launchpad press onto machine actions
func (m *Machine) HandlePad(row, col int) {
	if row == midi.TopRow {
		m.handleTopPad(col)
		return
	}
	vi := voiceForRow(row)
	if vi < 0 || vi >= len(m.voices) {
		return
	}
	if col == midi.SideCol {
		m.ToggleMute(vi)
		return
	}

	m.mu.RLock()
	step := m.page*midi.GridSize + col
	m.mu.RUnlock()

	m.Select(vi)
	m.ToggleStep(vi, step)
}

func (m *Machine) handleTopPad(col int) {
	switch col {
	case padPlay:
		m.TogglePlay()
	case padStop:
		m.Stop()
	case padPagePrev:
		m.SetPage(m.Page() - 1)
	case padPageNext:
		m.SetPage(m.Page() + 1)
	case padTempoDown:
		m.SetTempo(m.Tempo() - 1)
	case padTempoUp:
		m.SetTempo(m.Tempo() + 1)
	}
}
