package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vmidi-bridge/bridge"
	"vmidi-bridge/midi"
	"vmidi-bridge/theme"
	"vmidi-bridge/widgets"
)

// Bridge is the session controller the UI drives
type Bridge interface {
	Start(pair midi.DevicePair) error
	Reset()
	Close()
	State() bridge.State
	Device() (midi.DevicePair, bool)
	Tracked() []midi.Event
	Stats() bridge.Stats
	PortName() string
}

const (
	tickRate       = 100 * time.Millisecond
	maxControlRows = 16
)

var keys = []widgets.KeyBinding{
	{Key: "↑/↓", Desc: "select"},
	{Key: "enter", Desc: "enable"},
	{Key: "r", Desc: "reset"},
	{Key: "q", Desc: "quit"},
}

type Model struct {
	Bridge    Bridge
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme

	pairs    []midi.DevicePair
	cursor   int
	gone     bool // bound device vanished
	message  string
	isError  bool
	quitting bool
}

type TickMsg time.Time

type DeviceEventMsg midi.DeviceEvent

// NewModel builds the UI. message is shown until the first action, e.g. an
// auto-resume failure from startup.
func NewModel(b Bridge, deviceMgr *midi.DeviceManager, th *theme.Theme, message string) Model {
	m := Model{
		Bridge:    b,
		DeviceMgr: deviceMgr,
		Theme:     th,
		pairs:     deviceMgr.Pairs(),
		message:   message,
		isError:   message != "",
	}
	if dev, ok := b.Device(); ok {
		m.cursor = max(m.indexOf(dev.Name), 0)
	}
	return m
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		return DeviceEventMsg(<-deviceMgr.Events())
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForDevices(m.DeviceMgr), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Bridge.Close()
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.pairs)-1 {
				m.cursor++
			}

		case "enter", " ", "space":
			m.start()

		case "r":
			m.Bridge.Reset()
			m.gone = false
			m.setInfo("session reset")
		}

	case TickMsg:
		return m, tick()

	case DeviceEventMsg:
		m.deviceEvent(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m *Model) start() {
	if m.Bridge.State() == bridge.Active {
		m.setError("a session is already active, reset it first")
		return
	}
	if len(m.pairs) == 0 || m.cursor >= len(m.pairs) {
		m.setError("Please select a MIDI device from the list. If the list is empty, no device has both MIDI in and out.")
		return
	}

	pair := m.pairs[m.cursor]
	if err := m.Bridge.Start(pair); err != nil {
		if errors.Is(err, bridge.ErrAlreadyActive) {
			m.setError(err.Error())
			return
		}
		m.setError(fmt.Sprintf("%s %v", bridge.InUseHint, err))
		return
	}
	m.gone = false
	m.setInfo(fmt.Sprintf("enabled %s", pair.Name))
}

func (m *Model) deviceEvent(ev midi.DeviceEvent) {
	var selected string
	if m.cursor < len(m.pairs) {
		selected = m.pairs[m.cursor].Name
	}
	m.pairs = m.DeviceMgr.Pairs()
	if i := m.indexOf(selected); i >= 0 {
		m.cursor = i
	} else if m.cursor >= len(m.pairs) {
		m.cursor = max(len(m.pairs)-1, 0)
	}

	dev, bound := m.Bridge.Device()
	if !bound || dev.Name != ev.Pair.Name {
		return
	}
	switch ev.Type {
	case midi.DeviceDisconnected:
		m.gone = true
		m.setError(fmt.Sprintf("%s disconnected, press r to reset", dev.Name))
	case midi.DeviceConnected:
		m.gone = false
	}
}

func (m *Model) setError(s string) { m.message, m.isError = s, true }
func (m *Model) setInfo(s string)  { m.message, m.isError = s, false }

func (m Model) indexOf(name string) int {
	if name == "" {
		return -1
	}
	for i, p := range m.pairs {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(th.FG())
	cursorStyle := lipgloss.NewStyle().Foreground(th.Cursor())
	activeStyle := lipgloss.NewStyle().Foreground(th.Success())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	state := m.Bridge.State()
	dev, bound := m.Bridge.Device()

	// Header
	stateSym := th.Symbols.Idle
	stateStyle := dimStyle
	if state == bridge.Active {
		stateSym = th.Symbols.Active
		stateStyle = activeStyle
	}
	header := headerStyle.Render("vmidi-bridge") + "  " +
		stateStyle.Render(fmt.Sprintf("%c %s", stateSym, state)) + "  " +
		dimStyle.Render(m.Bridge.PortName())

	// Devices
	var devices strings.Builder
	devices.WriteString(fgStyle.Render("Devices"))
	devices.WriteString("\n")
	if len(m.pairs) == 0 {
		devices.WriteString(dimStyle.Render("  no devices with both MIDI in and out"))
		devices.WriteString("\n")
	}
	for i, p := range m.pairs {
		mark := ' '
		if i == m.cursor {
			mark = th.Symbols.Cursor
		}
		line := fmt.Sprintf("%c %s", mark, p.Name)
		switch {
		case bound && p.Name == dev.Name:
			line = activeStyle.Render(fmt.Sprintf("%s %c", line, th.Symbols.Selected))
		case i == m.cursor:
			line = cursorStyle.Render(line)
		default:
			line = fgStyle.Render(line)
		}
		devices.WriteString(line)
		devices.WriteString("\n")
	}
	if bound && m.gone {
		devices.WriteString(warnStyle.Render(fmt.Sprintf("%c %s (gone)", th.Symbols.Gone, dev.Name)))
		devices.WriteString("\n")
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(devices.String())

	if state == bridge.Active {
		st := m.Bridge.Stats()
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(fmt.Sprintf("in %d  out %d  repeated %d  tracked %d  errors %d",
			st.Inbound, st.Outbound, st.Repeated, st.Tracked, st.Errors)))
		out.WriteString("\n\n")
		out.WriteString(widgets.RenderControls(th, m.Bridge.Tracked(), maxControlRows))
		out.WriteString("\n")
	}

	if m.message != "" {
		style := fgStyle
		if m.isError {
			style = warnStyle
		}
		out.WriteString("\n")
		out.WriteString(style.Render(m.message))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyLine(keys)))

	return out.String()
}
