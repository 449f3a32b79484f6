package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	PadEvents() <-chan PadEvent   // For grid controllers (Launchpad)
	NoteEvents() <-chan NoteEvent // For keyboards

	// Output to the controller; a no-op for devices without lights
	SetLEDBatch(updates []LEDUpdate) error

	// Lifecycle
	Close() error
}

// Launchpad X color palette (velocity values 0-127)
// See Programmer's Reference Manual for full palette
const (
	ColorOff          uint8 = 0
	ColorRed          uint8 = 5
	ColorBrightGreen  uint8 = 87
	ColorYellow       uint8 = 13
	ColorBrightYellow uint8 = 62
	ColorOrange       uint8 = 9
	ColorBlue         uint8 = 45
	ColorWhite        uint8 = 3

	// Channel modes for LEDUpdate.Channel
	ChannelStatic uint8 = 0 // solid color
	ChannelFlash  uint8 = 1 // flashing A/B alternating
	ChannelPulse  uint8 = 2 // pulsing (fades)
)
