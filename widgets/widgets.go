package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MeterStyle configures a cents meter.
type MeterStyle struct {
	Scale, Center, Needle rune
	ScaleStyle            lipgloss.Style
	NeedleStyle           lipgloss.Style
}

// NeedlePos maps a deviation in cents to a cell of a meter width cells wide.
// The centre is 0 cents and the ends are ±50.
func NeedlePos(cents float64, width int) int {
	half := (width - 1) / 2
	return half + int(math.Round(Clamp(cents, -50, 50)/50*float64(half)))
}

// Meter renders a horizontal tuning meter. Without a reading only the scale is
// drawn.
func Meter(cents float64, reading bool, width int, st MeterStyle) string {
	width = max(width, 3)
	needle := -1
	if reading {
		needle = NeedlePos(cents, width)
	}
	center := (width - 1) / 2

	var out strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == needle:
			out.WriteString(st.NeedleStyle.Render(string(st.Needle)))
		case i == center:
			out.WriteString(st.ScaleStyle.Render(string(st.Center)))
		default:
			out.WriteString(st.ScaleStyle.Render(string(st.Scale)))
		}
	}
	return out.String()
}

// KeyPos maps a MIDI key to a cell of a lane width cells wide, low keys left.
func KeyPos(key, width int) int {
	return Clamp(key*width/128, 0, width-1)
}

// Mark is a symbol placed on a lane.
type Mark struct {
	Pos   int
	Sym   rune
	Style lipgloss.Style
}

// Lane renders width cells of fill with marks drawn over it. Later marks win.
func Lane(width int, fill rune, fillStyle lipgloss.Style, marks ...Mark) string {
	cells := make([]string, width)
	for i := range cells {
		cells[i] = fillStyle.Render(string(fill))
	}
	for _, m := range marks {
		if m.Pos >= 0 && m.Pos < width {
			cells[m.Pos] = m.Style.Render(string(m.Sym))
		}
	}
	return strings.Join(cells, "")
}

var bars = []rune("▁▂▃▄▅▆▇█")

// Bars renders one bar per level, each level in 0..1.
func Bars(levels []float64, st lipgloss.Style) string {
	var out strings.Builder
	for _, l := range levels {
		i := int(math.Round(Clamp(l, 0, 1) * float64(len(bars)-1)))
		out.WriteRune(bars[i])
	}
	return st.Render(out.String())
}

// Window returns the bounds [lo, hi) of at most size items out of n, keeping
// focus roughly centred.
func Window(n, focus, size int) (lo, hi int) {
	if n <= size {
		return 0, n
	}
	lo = Clamp(focus-size/2, 0, n-size)
	return lo, lo + size
}

// Cell is one styled entry of a strip.
type Cell struct {
	Text  string
	Style lipgloss.Style
}

// Strip joins cells with single spaces.
func Strip(cells []Cell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.Style.Render(c.Text)
	}
	return strings.Join(parts, " ")
}

// RenderSwatch renders a single colored block
func RenderSwatch(color lipgloss.TerminalColor) string {
	return lipgloss.NewStyle().Foreground(color).Render("■")
}

// RenderLegendItem renders a single legend item: "■ name"
func RenderLegendItem(color lipgloss.TerminalColor, name string) string {
	return fmt.Sprintf("%s %s", RenderSwatch(color), name)
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

// RenderKeyHelp formats key bindings on one line: "a:mode  q:quit"
func RenderKeyHelp(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}
