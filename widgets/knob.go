package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// KnobView is what a panel cell needs to draw one control
type KnobView struct {
	Dial     rune
	Label    string
	Value    string
	Selected bool
}

// KnobStyles colors the parts of a knob cell
type KnobStyles struct {
	Dial     lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Selected lipgloss.Style
}

// RenderKnob renders one control as "◝ label  value", padded to width
func RenderKnob(k KnobView, width int, s KnobStyles) string {
	label := k.Label
	if k.Selected {
		label = s.Selected.Render(label)
	} else {
		label = s.Label.Render(label)
	}
	cell := fmt.Sprintf("%s %s %s", s.Dial.Render(string(k.Dial)), label, s.Value.Render(k.Value))
	if pad := width - lipgloss.Width(cell); pad > 0 {
		cell += strings.Repeat(" ", pad)
	}
	return cell
}

// RenderKnobColumns lays cells out in columns, filling down then across
func RenderKnobColumns(cells []string, rows int) string {
	if rows < 1 || len(cells) == 0 {
		return ""
	}
	var cols []string
	for start := 0; start < len(cells); start += rows {
		end := min(start+rows, len(cells))
		cols = append(cols, strings.Join(cells[start:end], "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, spaced(cols)...)
}

func spaced(cols []string) []string {
	out := make([]string, 0, 2*len(cols))
	for i, c := range cols {
		if i > 0 {
			out = append(out, "  ")
		}
		out = append(out, c)
	}
	return out
}
