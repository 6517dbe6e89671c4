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
	Active rune // ● session running
	Idle   rune // ○ no session

	Cursor   rune // ▸ selected device
	Selected rune // ◆ device the session is bound to
	Gone     rune // ✕ device vanished while bound

	BarFull  rune // █ value bar
	BarEmpty rune // ░
}

// New builds a theme on palette, or on Default when palette is nil.
func New(palette *Palette) *Theme {
	if palette == nil || len(palette.Colors) == 0 {
		palette = Default
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Active: '●',
			Idle:   '○',

			Cursor:   '▸',
			Selected: '◆',
			Gone:     '✕',

			BarFull:  '█',
			BarEmpty: '░',
		},
	}
}

// Load builds a theme from a GIMP palette file; an empty path gives the
// built-in palette.
func Load(path string) (*Theme, error) {
	if path == "" {
		return New(nil), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleCursor  = 0.6
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return Hex(t.Palette.Lookup(norm))
}

// Value colors a 7-bit MIDI data value along the palette
func (t *Theme) Value(v uint8) lipgloss.Color {
	return t.Color(float64(v&0x7F) / 127)
}

func Hex(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
