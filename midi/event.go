package midi

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// PadEvent is sent when a pad/button is pressed on a grid controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// NoteEvent is sent when a key is pressed or released on a keyboard.
// Velocity 0 means release.
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// Type returns NoteOn or NoteOff
func (e NoteEvent) Type() uint8 {
	if e.Velocity == 0 {
		return NoteOff
	}
	return NoteOn
}

// LEDUpdate sets one pad's color on a grid controller
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8 // RGB, mapped to the controller's palette
	Channel  uint8    // ChannelStatic, ChannelFlash or ChannelPulse
}

// noteEvent converts a raw note on/off into a NoteEvent; ok is false for
// anything else
func noteEvent(status, channel, note, velocity uint8) (NoteEvent, bool) {
	switch status {
	case NoteOn:
		return NoteEvent{Note: note, Velocity: velocity, Channel: channel}, true
	case NoteOff:
		return NoteEvent{Note: note, Channel: channel}, true
	}
	return NoteEvent{}, false
}
