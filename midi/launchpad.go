package midi

import (
	"fmt"
	"sync/atomic"

	"go-drum/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Grid dimensions of a Launchpad X in programmer mode.
// Rows 0-7 and cols 0-7 are the pads, col 8 the scene buttons, row 8 the top buttons.
const (
	GridSize = 8
	SideCol  = 8
	TopRow   = 8
)

var (
	// F0 00 20 29 02 0C 00 7F F7
	sysexProgrammerMode = []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}
	// F0 00 20 29 02 0C 00 00 F7
	sysexLiveMode = []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x00}
	// F0 00 20 29 02 0C 08 <brightness> F7
	sysexBrightness = []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}
)

var ledSendCount atomic.Uint64

// LaunchpadController handles a Novation Launchpad X
type LaunchpadController struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

// NewLaunchpadController switches the device into programmer mode and listens for pads
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:       id,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}

	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send
		for _, msg := range [][]byte{sysexProgrammerMode, sysexBrightness} {
			if err := lp.send(gomidi.SysEx(msg)); err != nil {
				return nil, fmt.Errorf("configure %s: %w", id, err)
			}
		}
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			evt, ok := padEvent(msg)
			if !ok {
				return
			}
			select {
			case lp.padChan <- evt:
			default:
				debug.Log("lp", "%s: dropped pad %d,%d", lp.id, evt.Row, evt.Col)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

// padEvent decodes a press on the grid, side column or top row.
// Releases (velocity 0) are ignored.
func padEvent(msg gomidi.Message) (PadEvent, bool) {
	var channel, key, value uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &value) && value > 0:
		if row, col := noteToRowCol(key); row >= 0 {
			return PadEvent{Row: row, Col: col, Velocity: value}, true
		}
	case msg.GetControlChange(&channel, &key, &value) && value > 0:
		if row, col := ccToRowCol(key); row >= 0 {
			return PadEvent{Row: row, Col: col, Velocity: value}, true
		}
	}
	return PadEvent{}, false
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

func (lp *LaunchpadController) NoteEvents() <-chan NoteEvent {
	return lp.noteChan // Launchpad doesn't send note events in the keyboard sense
}

// SetLEDBatch sends one NoteOn per update. The caller diffs frames,
// so batches are usually small.
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	for _, u := range updates {
		if err := lp.send(ledMessage(u)); err != nil {
			return fmt.Errorf("set led %d,%d: %w", u.Row, u.Col, err)
		}
	}

	count := ledSendCount.Add(uint64(len(updates)))
	if count%100 < uint64(len(updates)) {
		debug.Log("lp-send", "batch count=%d (this batch=%d)", count, len(updates))
	}
	return nil
}

func ledMessage(u LEDUpdate) gomidi.Message {
	return gomidi.NoteOn(u.Channel, rowColToNote(u.Row, u.Col), mapRGBToLaunchpad(u.Color))
}

// palette holds approximate RGB values for Launchpad X velocities: {velocity, R, G, B}
var palette = [][4]uint8{
	{0, 0, 0, 0},         // off
	{3, 200, 200, 200},   // dim white
	{5, 255, 0, 0},       // red
	{6, 255, 80, 80},     // bright red
	{7, 180, 60, 60},     // dim red
	{9, 255, 100, 0},     // orange
	{11, 180, 80, 40},    // dim orange
	{13, 255, 200, 0},    // yellow
	{17, 0, 180, 0},      // green
	{19, 0, 100, 0},      // dim green
	{21, 0, 255, 0},      // bright green
	{37, 0, 200, 200},    // cyan
	{43, 40, 60, 120},    // dim blue
	{45, 0, 100, 255},    // blue
	{47, 80, 150, 255},   // bright blue
	{49, 150, 0, 200},    // purple
	{53, 255, 80, 180},   // pink
	{62, 255, 255, 80},   // bright yellow
	{78, 100, 100, 255},  // light blue
	{84, 255, 150, 50},   // bright orange
	{87, 150, 255, 100},  // lime
	{97, 180, 180, 60},   // dim yellow
	{119, 255, 255, 255}, // white
}

// PaletteRGB returns the approximate color of a palette velocity
func PaletteRGB(velocity uint8) ([3]uint8, bool) {
	for _, p := range palette {
		if p[0] == velocity {
			return [3]uint8{p[1], p[2], p[3]}, true
		}
	}
	return [3]uint8{}, false
}

// mapRGBToLaunchpad finds the nearest palette velocity for an RGB color
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	bestMatch := uint8(0)
	bestDist := -1

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range palette {
		dr, dg, db := r-int(p[1]), g-int(p[2]), b-int(p[3])
		dist := dr*dr + dg*dg + db*db
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}
	return bestMatch
}

// Close blanks the surface, returns the device to live mode and stops listening
func (lp *LaunchpadController) Close() error {
	if lp.send != nil {
		var updates []LEDUpdate
		for row := 0; row <= TopRow; row++ {
			for col := 0; col <= SideCol; col++ {
				if row == TopRow && col == SideCol {
					continue // no LED at 8,8
				}
				updates = append(updates, LEDUpdate{Row: row, Col: col})
			}
		}
		if err := lp.SetLEDBatch(updates); err != nil {
			debug.Log("lp", "%s: clear on close: %v", lp.id, err)
		}
		lp.send(gomidi.SysEx(sysexLiveMode))
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.padChan)
	close(lp.noteChan)
	return nil
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 (right side scene buttons) = notes 19, 29, 39, 49, 59, 69, 79, 89
// Top row:   Row 8 (top control row) = CC 91-98

func rowColToNote(row, col int) uint8 {
	// Top row LEDs are addressed with notes 91-98
	if row == TopRow {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return TopRow, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row >= GridSize || col < 0 || col > SideCol {
		return -1, -1
	}
	return row, col
}

// ccToRowCol converts CC messages to row/col (for top row buttons)
func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return TopRow, int(cc - 91)
	}
	return -1, -1
}
