package midi

import (
	"fmt"

	"go-drum/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// KeyboardController handles a standard MIDI keyboard or pad controller
type KeyboardController struct {
	id       string
	channel  int // 1-16, 0 = omni
	inPort   drivers.In
	stopFunc func()

	padChan  chan PadEvent
	noteChan chan NoteEvent
}

// NewKeyboardController creates a keyboard controller (input only).
// channel filters input to one MIDI channel (1-16); 0 listens on all.
func NewKeyboardController(id string, inPort drivers.In, channel int) (*KeyboardController, error) {
	if channel < 0 || channel > 16 {
		return nil, fmt.Errorf("invalid input channel %d", channel)
	}
	kb := &KeyboardController{
		id:       id,
		channel:  channel,
		inPort:   inPort,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			var channel, note, velocity uint8
			switch {
			case msg.GetNoteOn(&channel, &note, &velocity):
				kb.emit(NoteOn, channel, note, velocity)
			case msg.GetNoteOff(&channel, &note, &velocity):
				kb.emit(NoteOff, channel, note, velocity)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

func (kb *KeyboardController) emit(status, channel, note, velocity uint8) {
	if !kb.accepts(channel) {
		return
	}
	evt, ok := noteEvent(status, channel, note, velocity)
	if !ok {
		return
	}
	select {
	case kb.noteChan <- evt:
	default:
		debug.Log("kbd", "%s: dropped note %d (input full)", kb.id, note)
	}
}

// accepts reports whether a message on the zero-based channel passes the filter
func (kb *KeyboardController) accepts(channel uint8) bool {
	return kb.channel == 0 || int(channel)+1 == kb.channel
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) PadEvents() <-chan PadEvent {
	return kb.padChan // Keyboards don't have pads
}

func (kb *KeyboardController) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// SetLEDBatch is a no-op for keyboards
func (kb *KeyboardController) SetLEDBatch(updates []LEDUpdate) error {
	return nil
}

func (kb *KeyboardController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.padChan)
	close(kb.noteChan)
	return nil
}
