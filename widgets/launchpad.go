package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// LaunchpadSize is the pad grid plus the top row and side column
const LaunchpadSize = 9

// PadGrid holds one color per Launchpad LED, indexed [row][col] with row 0
// at the bottom. Row 8 is the top buttons, col 8 the scene buttons.
type PadGrid [LaunchpadSize][LaunchpadSize][3]uint8

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8) string {
	if color == ([3]uint8{}) {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#303030")).Render("□")
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render("■")
}

// RenderPadGrid renders the whole surface top row first, with a gap
// separating the top buttons and scene column from the pads
func RenderPadGrid(grid PadGrid) string {
	var lines []string
	for row := LaunchpadSize - 1; row >= 0; row-- {
		var line strings.Builder
		for col := 0; col < LaunchpadSize; col++ {
			if col == LaunchpadSize-1 {
				line.WriteString(" ")
			}
			if row == LaunchpadSize-1 && col == LaunchpadSize-1 {
				line.WriteString(" ") // no LED in the corner
			} else {
				line.WriteString(RenderPad(grid[row][col]))
			}
			if col < LaunchpadSize-1 {
				line.WriteString(" ")
			}
		}
		lines = append(lines, line.String())
		if row == LaunchpadSize-1 {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderPad(color), name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
