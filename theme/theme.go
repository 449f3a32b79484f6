package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Step grid
	StepOff      rune // · step switched off
	StepOn       rune // ● step switched on
	StepPlayhead rune // ▶ playhead on an off step
	StepHit      rune // ◉ playhead on an on step
	StepBeyond   rune // - past the sequence length

	// Step grid with cursor
	CursorOff rune // ○ cursor on off step
	CursorOn  rune // ◎ cursor on on step

	// Voice state
	Muted   rune // ✕
	Unmuted rune // ♪

	// Knob dial, from fully left to fully right
	Dial []rune
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			StepOff:      '·',
			StepOn:       '●',
			StepPlayhead: '▶',
			StepHit:      '◉',
			StepBeyond:   '-',

			CursorOff: '○',
			CursorOn:  '◎',

			Muted:   '✕',
			Unmuted: '♪',

			Dial: []rune{'◜', '◠', '◝', '◞', '◡', '◟'},
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) Surface() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSurface))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// DialRune picks the dial glyph for a knob position 0-1
func (t *Theme) DialRune(fraction float64) rune {
	d := t.Symbols.Dial
	i := int(fraction * float64(len(d)))
	return d[min(max(i, 0), len(d)-1)]
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
