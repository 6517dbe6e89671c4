package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vmidi-bridge/midi"
	"vmidi-bridge/theme"
)

// BarWidth is the number of cells in a value bar
const BarWidth = 16

// RenderBar draws a 7-bit value as a bar of BarWidth cells
func RenderBar(th *theme.Theme, value uint8) string {
	filled := int(value&0x7F) * BarWidth / 127
	full := lipgloss.NewStyle().Foreground(th.Value(value))
	empty := lipgloss.NewStyle().Foreground(th.Muted())
	return full.Render(strings.Repeat(string(th.Symbols.BarFull), filled)) +
		empty.Render(strings.Repeat(string(th.Symbols.BarEmpty), BarWidth-filled))
}

// RenderControl renders one tracked control: kind, number, bar, value
func RenderControl(th *theme.Theme, ev midi.Event) string {
	label := "cc"
	if ev.Kind == midi.KindNote {
		label = "note"
		if !ev.IsNoteOn() {
			label = "off"
		}
	}
	return fmt.Sprintf("  %-4s %3d  %s %3d", label, ev.Number, RenderBar(th, ev.Value), ev.Value)
}

// RenderControls lists tracked controls in the order they are repeated.
// At most limit rows are shown; the rest are summarized.
func RenderControls(th *theme.Theme, events []midi.Event, limit int) string {
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	if len(events) == 0 {
		return dim.Render("  nothing tracked yet")
	}

	var lines []string
	for i, ev := range events {
		if limit > 0 && i == limit {
			lines = append(lines, dim.Render(fmt.Sprintf("  … %d more", len(events)-limit)))
			break
		}
		lines = append(lines, RenderControl(th, ev))
	}
	return strings.Join(lines, "\n")
}

// RenderKeyLine joins bindings on one line, "key:desc" separated by spaces
func RenderKeyLine(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
