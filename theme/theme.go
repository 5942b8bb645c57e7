package theme

import (
	"math"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// cents meter
	Scale  rune // ─ meter body
	Center rune // ┼ in tune
	Needle rune // ┃ current deviation

	// key marker lane
	Lane   rune // · empty key position
	Marker rune // ◆ detected key
	Target rune // ◇ expected key

	// reference strip
	Played rune // ✓ matched note
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Scale:  '─',
			Center: '┼',
			Needle: '┃',

			Lane:   '·',
			Marker: '◆',
			Target: '◇',

			Played: '✓',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0 // night
	RoleSurface  = 0.1
	RoleMuted    = 0.2
	RoleFG       = 0.4 // readable text
	RoleAccent   = 0.5
	RoleExpected = 0.6 // the note to play next
	RoleMatched  = 0.7
	RoleWarning  = 0.8 // audibly out of tune
	RoleWrong    = 1.0
)

func (t *Theme) BG() lipgloss.Color {
	return t.Color(RoleBG)
}

func (t *Theme) Surface() lipgloss.Color {
	return t.Color(RoleSurface)
}

func (t *Theme) FG() lipgloss.Color {
	return t.Color(RoleFG)
}

func (t *Theme) Accent() lipgloss.Color {
	return t.Color(RoleAccent)
}

func (t *Theme) Muted() lipgloss.Color {
	return t.Color(RoleMuted)
}

func (t *Theme) Expected() lipgloss.Color {
	return t.Color(RoleExpected)
}

func (t *Theme) Matched() lipgloss.Color {
	return t.Color(RoleMatched)
}

func (t *Theme) Warning() lipgloss.Color {
	return t.Color(RoleWarning)
}

func (t *Theme) Wrong() lipgloss.Color {
	return t.Color(RoleWrong)
}

// Cents colours a tuning deviation: matched at 0, fading to wrong at ±50.
func (t *Theme) Cents(cents float64) lipgloss.Color {
	d := math.Min(math.Abs(cents)/50, 1)
	return t.Color(RoleMatched + d*(RoleWrong-RoleMatched))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}
