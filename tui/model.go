package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-drum/debug"
	"go-drum/midi"
	"go-drum/sequencer"
	"go-drum/synth"
	"go-drum/theme"
	"go-drum/widgets"
)

// focus is the part of the screen the arrow keys move in
type focus int

const (
	focusGrid focus = iota
	focusPanel
)

// panelRows is how many knobs stack in one panel column
const panelRows = 4

type Model struct {
	Machine   *sequencer.Machine
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme

	focus      focus
	cursorStep int
	knob       int
	status     string
	quitting   bool

	controllers map[string]midi.ControllerType
	launchpad   string // id of the controller driving LEDs
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(machine *sequencer.Machine, deviceMgr *midi.DeviceManager, th *theme.Theme) Model {
	return Model{
		Machine:     machine,
		DeviceMgr:   deviceMgr,
		Theme:       th,
		controllers: make(map[string]midi.ControllerType),
	}
}

// WithStatus shows msg under the header until the next key press
func (m Model) WithStatus(msg string) Model {
	m.status = msg
	return m
}

func ListenForUpdates(machine *sequencer.Machine) tea.Cmd {
	return func() tea.Msg {
		<-machine.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Machine),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status = ""
		return m.handleKey(msg.String())

	case UpdateMsg:
		return m, ListenForUpdates(m.Machine)

	case DeviceEventMsg:
		m.handleDevice(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	mc := m.Machine
	state := mc.GetState()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		mc.Stop()
		return m, tea.Quit

	case " ", "p":
		mc.TogglePlay()
		if !mc.Playing() && !mc.Dispatcher().Ready() {
			m.status = "clock not running"
		}
	case "s":
		mc.Stop()
	case "+", "=":
		mc.SetTempo(state.Tempo + 5)
	case "-", "_":
		mc.SetTempo(state.Tempo - 5)
	case "r":
		mc.SetRepeat(!state.Repeat)
	case "[":
		mc.SetPage(state.Page - 1)
	case "]":
		mc.SetPage(state.Page + 1)
	case "<", ",":
		mc.ResetSequences(state.Steps - 1)
		m.cursorStep = min(m.cursorStep, state.Steps-2)
	case ">", ".":
		mc.ResetSequences(state.Steps + 1)
	case "K":
		mc.SetKit(nextKit(state.Kit))
	case "tab":
		if m.focus == focusGrid {
			m.focus = focusPanel
		} else {
			m.focus = focusGrid
		}
	case "m":
		mc.ToggleMute(state.Selected)
	case "t":
		mc.Trigger(state.Selected)
	case "1", "2", "3", "4", "5", "6", "7", "8":
		mc.Trigger(int(key[0] - '1'))

	default:
		if m.focus == focusGrid {
			m.gridKey(key, state)
		} else {
			m.panelKey(key, state)
		}
	}

	m.cursorStep = max(m.cursorStep, 0)
	return m, nil
}

func (m *Model) gridKey(key string, state sequencer.State) {
	mc := m.Machine
	switch key {
	case "h", "left":
		m.cursorStep = max(m.cursorStep-1, 0)
	case "l", "right":
		m.cursorStep = min(m.cursorStep+1, state.Steps-1)
	case "k", "up":
		mc.Select(state.Selected - 1)
	case "j", "down":
		mc.Select(state.Selected + 1)
	case "enter", "x":
		mc.ToggleStep(state.Selected, m.cursorStep)
	}
	// keep the Launchpad page on the cursor
	mc.SetPage(m.cursorStep / midi.GridSize)
}

func (m *Model) panelKey(key string, state sequencer.State) {
	vc := m.Machine.Voice(state.Selected)
	if vc == nil {
		return
	}
	controls := vc.Panel().Controls()
	m.knob = min(m.knob, len(controls)-1)

	switch key {
	case "k", "up":
		m.knob = max(m.knob-1, 0)
	case "j", "down":
		m.knob = min(m.knob+1, len(controls)-1)
	case "h", "left":
		controls[m.knob].Decrement()
	case "l", "right":
		controls[m.knob].Increment()
	case "H":
		if k, ok := controls[m.knob].(*synth.Knob); ok {
			k.Drag(2)
		}
	case "L":
		if k, ok := controls[m.knob].(*synth.Knob); ok {
			k.Drag(-2)
		}
	case "enter", "x":
		m.Machine.Trigger(state.Selected)
	}
}

func (m *Model) handleDevice(event midi.DeviceEvent) {
	mc := m.Machine
	switch event.Type {
	case midi.DeviceConnected:
		ctrl := event.Controller
		m.controllers[event.ID] = ctrl.Type()
		switch ctrl.Type() {
		case midi.ControllerLaunchpad:
			m.launchpad = event.ID
			mc.SetController(ctrl)

			// Listen for pad events from the controller
			go func() {
				for pad := range ctrl.PadEvents() {
					mc.HandlePad(pad.Row, pad.Col)
				}
			}()
		case midi.ControllerKeyboard:
			mc.SetMIDIInput(ctrl)
		}
		m.status = fmt.Sprintf("connected %s", event.ID)

	case midi.DeviceDisconnected:
		delete(m.controllers, event.ID)
		if m.launchpad == event.ID {
			m.launchpad = ""
			mc.SetController(nil)
		}
		m.status = fmt.Sprintf("disconnected %s", event.ID)
	}
	debug.Log("tui", "%s", m.status)
}

func nextKit(current string) string {
	names := sequencer.KitNames()
	for i, n := range names {
		if n == current {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	state := m.Machine.GetState()
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(m.header(state))
	out.WriteString("\n")
	if m.status != "" {
		out.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Warning()).Render(m.status))
	}
	out.WriteString("\n\n")

	left := m.grid(state) + "\n\n" + m.panel(state)
	right := widgets.RenderPadGrid(m.padGrid()) + "\n" + m.legend()
	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right))

	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(m.help()))
	return out.String()
}

func (m Model) header(state sequencer.State) string {
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)

	playState := "STOP"
	if state.Playing {
		playState = "PLAY"
	}
	step := "--"
	if state.Step >= 0 {
		step = fmt.Sprintf("%02d", state.Step+1)
	}
	loop := "once"
	if state.Repeat {
		loop = "loop"
	}

	var devices []string
	for _, t := range m.controllers {
		if t == midi.ControllerLaunchpad {
			devices = append(devices, "LP")
		} else {
			devices = append(devices, "KB")
		}
	}

	slices.Sort(devices)
	if debug.Enabled() {
		devices = append(devices, "log")
	}

	return headerStyle.Render(fmt.Sprintf("go-drum  %s  %3.0fbpm  step:%s/%02d  page %d/%d  %s  kit:%s  voices:%d  %s",
		playState, state.Tempo, step, state.Steps, state.Page+1, state.Pages, loop, state.Kit, state.Voices, strings.Join(devices, " ")))
}

// grid draws one row of steps per voice
func (m Model) grid(state sequencer.State) string {
	th := m.Theme
	sym := th.Symbols
	nameStyle := lipgloss.NewStyle().Foreground(th.FG()).Width(11)
	selStyle := nameStyle.Foreground(th.Cursor()).Bold(true)
	onStyle := lipgloss.NewStyle().Foreground(th.Active())
	offStyle := lipgloss.NewStyle().Foreground(th.Muted())
	headStyle := lipgloss.NewStyle().Foreground(th.Success())
	cursorStyle := lipgloss.NewStyle().Foreground(th.Cursor())

	var lines []string
	for i, vc := range m.Machine.Voices() {
		var line strings.Builder
		if i == state.Selected {
			line.WriteString(selStyle.Render(vc.Name()))
		} else {
			line.WriteString(nameStyle.Render(vc.Name()))
		}

		if vc.Muted() {
			line.WriteString(lipgloss.NewStyle().Foreground(th.Warning()).Render(string(sym.Muted)))
		} else {
			line.WriteString(offStyle.Render(string(sym.Unmuted)))
		}
		line.WriteString(" ")

		steps := vc.Steps()
		head := vc.Highlight()
		cursor := m.focus == focusGrid && i == state.Selected
		// pad the last page out to a full Launchpad row
		limit := (len(steps) + midi.GridSize - 1) / midi.GridSize * midi.GridSize
		for s := 0; s < limit; s++ {
			if s > 0 && s%4 == 0 {
				line.WriteString(" ")
			}
			if s >= len(steps) {
				line.WriteString(offStyle.Render(string(sym.StepBeyond)))
				continue
			}
			on := steps[s]
			switch {
			case cursor && s == m.cursorStep && on:
				line.WriteString(cursorStyle.Render(string(sym.CursorOn)))
			case cursor && s == m.cursorStep:
				line.WriteString(cursorStyle.Render(string(sym.CursorOff)))
			case s == head && on:
				line.WriteString(headStyle.Render(string(sym.StepHit)))
			case s == head:
				line.WriteString(headStyle.Render(string(sym.StepPlayhead)))
			case on:
				line.WriteString(onStyle.Render(string(sym.StepOn)))
			default:
				line.WriteString(offStyle.Render(string(sym.StepOff)))
			}
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// panel draws the selected voice's controls, one block per section
func (m Model) panel(state sequencer.State) string {
	vc := m.Machine.Voice(state.Selected)
	if vc == nil {
		return ""
	}
	th := m.Theme
	styles := widgets.KnobStyles{
		Dial:     lipgloss.NewStyle().Foreground(th.Accent()),
		Label:    lipgloss.NewStyle().Foreground(th.FG()),
		Value:    lipgloss.NewStyle().Foreground(th.Success()),
		Selected: lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true).Underline(true),
	}
	titleStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)

	var blocks []string
	index := 0
	for _, sec := range vc.Panel().Sections() {
		var cells []string
		for _, c := range sec.Controls {
			cells = append(cells, widgets.RenderKnob(widgets.KnobView{
				Dial:     th.DialRune(controlFraction(c)),
				Label:    c.Name(),
				Value:    c.Display(),
				Selected: m.focus == focusPanel && index == m.knob,
			}, 26, styles))
			index++
		}
		blocks = append(blocks, titleStyle.Render(vc.Name()+" "+sec.Name)+"\n"+widgets.RenderKnobColumns(cells, panelRows))
	}
	return strings.Join(blocks, "\n\n")
}

func controlFraction(c synth.Control) float64 {
	switch c := c.(type) {
	case *synth.Knob:
		return c.Fraction()
	case *synth.Switch:
		if n := len(c.Poles()); n > 1 {
			return float64(c.Index()) / float64(n-1)
		}
	}
	return 0
}

// padGrid mirrors what the Launchpad shows
func (m Model) padGrid() widgets.PadGrid {
	var grid widgets.PadGrid
	for _, led := range m.Machine.RenderLEDs() {
		if led.Row < widgets.LaunchpadSize && led.Col < widgets.LaunchpadSize {
			grid[led.Row][led.Col] = led.Color
		}
	}
	return grid
}

func (m Model) legend() string {
	var lines []string
	for _, e := range sequencer.LEDLegend() {
		lines = append(lines, widgets.RenderLegendItem(e.Color, e.Name, e.Desc))
	}
	return strings.Join(lines, "\n")
}

func (m Model) help() string {
	edit := []widgets.KeyBinding{
		{Key: "hjkl", Desc: "move"},
		{Key: "x/enter", Desc: "toggle step"},
	}
	if m.focus == focusPanel {
		edit = []widgets.KeyBinding{
			{Key: "jk", Desc: "pick control"},
			{Key: "hl / HL", Desc: "turn (coarse / fine)"},
			{Key: "x/enter", Desc: "audition"},
		}
	}
	return widgets.RenderKeyHelp([]widgets.KeySection{
		{Title: "Transport", Keys: []widgets.KeyBinding{
			{Key: "space", Desc: "play/pause   s: stop   +/-: tempo   r: loop"},
			{Key: "[ ] < >", Desc: "page / sequence length"},
		}},
		{Title: "Edit", Keys: append(edit,
			widgets.KeyBinding{Key: "tab", Desc: "grid/panel   m: mute   t, 1-8: hit   K: kit   q: quit"},
		)},
	})
}
