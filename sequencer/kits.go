package sequencer

import "go-drum/synth"

// DrumKit maps 16 drum slots to MIDI notes. Voice i plays slot i, so a
// note from a keyboard or drum pad triggers the voice on the matching slot.
type DrumKit struct {
	Name  string
	Notes [16]uint8
}

// SlotNames label the drum slots
var SlotNames = [16]string{
	"Kick", "Snare", "Closed HH", "Open HH",
	"Low Tom", "Mid Tom", "High Tom", "Crash",
	"Ride", "Clap", "Rimshot", "Cowbell",
	"Clave", "Maracas", "Low Conga", "High Conga",
}

// slotPresets picks the synth patch each slot starts with
var slotPresets = [16]string{
	synth.PresetKick, synth.PresetSnare, synth.PresetClosedHat, synth.PresetOpenHat,
	synth.PresetTom, synth.PresetTom, synth.PresetTom, synth.PresetCrash,
	synth.PresetRide, synth.PresetClap, synth.PresetSnare, synth.PresetClosedHat,
	synth.PresetClosedHat, synth.PresetClosedHat, synth.PresetTom, synth.PresetTom,
}

// Kits contains all available drum kit mappings
var Kits = map[string]DrumKit{
	"gm": {
		Name:  "General MIDI",
		Notes: [16]uint8{36, 38, 42, 46, 41, 43, 45, 49, 51, 39, 37, 56, 75, 70, 64, 63},
	},
	"rd8": {
		// RD-8 snare is 40, not 38
		Name:  "Behringer RD-8",
		Notes: [16]uint8{36, 40, 42, 46, 45, 48, 50, 49, 51, 39, 37, 56, 75, 70, 64, 63},
	},
	"tr8s": {
		Name:  "Roland TR-8S",
		Notes: [16]uint8{36, 38, 42, 46, 41, 43, 45, 49, 51, 39, 37, 56, 75, 70, 62, 63},
	},
	"er1": {
		// slots 10-15 are unused on the ER-1
		Name:  "Korg ER-1",
		Notes: [16]uint8{36, 38, 42, 46, 40, 41, 43, 49, 45, 39, 37, 56, 75, 70, 64, 63},
	},
}

// KitNames returns the list of available kit names
func KitNames() []string {
	return []string{"gm", "rd8", "tr8s", "er1"}
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) DrumKit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// DefaultKit is the default kit name
const DefaultKit = "gm"

// SlotForNote returns the first slot mapped to note
func (k DrumKit) SlotForNote(note uint8) (int, bool) {
	for i, n := range k.Notes {
		if n == note {
			return i, true
		}
	}
	return -1, false
}

// SlotPreset returns the synth preset name for a slot
func SlotPreset(slot int) string {
	if slot < 0 || slot >= len(slotPresets) {
		return ""
	}
	return slotPresets[slot]
}
