package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-practice/match"
	"go-practice/midi"
	"go-practice/theme"
	"go-practice/trainer"
	"go-practice/widgets"
)

const (
	meterWidth  = 41
	laneWidth   = 64
	stripSize   = 11
	shownRecent = 5
)

var keys = []widgets.KeyBinding{
	{Key: "a", Desc: "auto/manual"},
	{Key: "[ ]", Desc: "track"},
	{Key: "r", Desc: "restart"},
	{Key: "q", Desc: "quit"},
}

type Model struct {
	Session *trainer.Session
	Feed    *Feed
	Theme   *theme.Theme

	snap     trainer.Snapshot
	flash    *match.Outcome
	status   string
	devices  []string
	quitting bool
}

type UpdateMsg struct{}

func NewModel(session *trainer.Session, feed *Feed, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Session: session,
		Feed:    feed,
		Theme:   th,
		snap:    session.Snapshot(),
	}
}

func ListenForUpdates(session *trainer.Session) tea.Cmd {
	return func() tea.Msg {
		<-session.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Session),
		ListenForFeed(m.Feed),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		var err error
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "a":
			err = m.Session.ToggleMode()
		case "[":
			err = m.Session.StepTrack(-1)
		case "]":
			err = m.Session.StepTrack(1)
		case "r":
			err = m.Session.Restart()
		}
		if err != nil {
			m.status = err.Error()
		}

	case UpdateMsg:
		m.snap = m.Session.Snapshot()
		return m, ListenForUpdates(m.Session)

	case OutcomeMsg:
		o := match.Outcome(msg)
		m.flash = &o
		return m, ListenForFeed(m.Feed)

	case ModeMsg:
		m.status = "mode: " + match.Mode(msg).String()
		return m, ListenForFeed(m.Feed)

	case LoadedMsg:
		m.flash = nil
		m.status = fmt.Sprintf("loaded %s: %s", msg.Name, msg.Track)
		return m, ListenForFeed(m.Feed)

	case CompleteMsg:
		m.status = "track complete, r to play again"
		return m, ListenForFeed(m.Feed)

	case DeviceEventMsg:
		m.devices = applyDevice(m.devices, midi.DeviceEvent(msg))
		m.status = fmt.Sprintf("%s %s", msg.ID, msg.Type)
		return m, ListenForFeed(m.Feed)

	case DoneMsg:
		if msg.Err != nil {
			m.status = "stopped: " + msg.Err.Error()
		} else {
			m.status = "input finished, q to quit"
		}
		m.snap = m.Session.Snapshot()
	}

	return m, nil
}

func applyDevice(devices []string, ev midi.DeviceEvent) []string {
	out := devices[:0:0]
	for _, d := range devices {
		if d != ev.ID {
			out = append(out, d)
		}
	}
	if ev.Type == midi.DeviceConnected {
		out = append(out, ev.ID)
	}
	return out
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	snap := m.snap

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(th.FG())
	labelStyle := dimStyle.Width(8)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(fmt.Sprintf("go-practice  %s  %s  %d/%d  A4=%g",
		strings.ToUpper(snap.Mode.String()), snap.State, snap.Cursor.Position, snap.Length, snap.A4)))
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.referenceLine()))
	out.WriteString("\n\n")

	// heard
	heard := "-"
	if p := snap.Pitch; p != nil {
		cents := lipgloss.NewStyle().Foreground(th.Cents(p.Cents)).Render(fmt.Sprintf("%+.0f¢", p.Cents))
		heard = fmt.Sprintf("%-4s %7.1f Hz  %s", p.Label(), p.Frequency, cents)
	}
	out.WriteString(labelStyle.Render("heard") + fgStyle.Render(heard) + "\n")

	// expected
	want := "-"
	switch {
	case snap.Expected != nil:
		want = lipgloss.NewStyle().Foreground(th.Expected()).Bold(true).Render(snap.Expected.Label())
	case snap.State == match.Complete:
		want = lipgloss.NewStyle().Foreground(th.Matched()).Render("done")
	}
	out.WriteString(labelStyle.Render("play") + want + "\n")

	// cents meter
	meter := widgets.MeterStyle{
		Scale:       th.Symbols.Scale,
		Center:      th.Symbols.Center,
		Needle:      th.Symbols.Needle,
		ScaleStyle:  dimStyle,
		NeedleStyle: lipgloss.NewStyle().Foreground(th.Accent()),
	}
	cents, reading := 0.0, snap.Pitch != nil
	if reading {
		cents = snap.Pitch.Cents
		meter.NeedleStyle = lipgloss.NewStyle().Foreground(th.Cents(cents))
	}
	out.WriteString(labelStyle.Render("tune") + widgets.Meter(cents, reading, meterWidth, meter) + "\n")

	// spectrum, audio input only
	if p := snap.Pitch; p != nil && p.Spectrum != nil {
		out.WriteString(labelStyle.Render("freq") + widgets.Bars(p.Spectrum[:], lipgloss.NewStyle().Foreground(th.Accent())) + "\n")
	}

	// key lane
	var marks []widgets.Mark
	if snap.Expected != nil {
		marks = append(marks, widgets.Mark{
			Pos:   widgets.KeyPos(int(snap.Expected.Key), laneWidth),
			Sym:   th.Symbols.Target,
			Style: lipgloss.NewStyle().Foreground(th.Expected()),
		})
	}
	if p := snap.Pitch; p != nil {
		marks = append(marks, widgets.Mark{
			Pos:   widgets.KeyPos(p.Key(), laneWidth),
			Sym:   th.Symbols.Marker,
			Style: lipgloss.NewStyle().Foreground(th.Accent()),
		})
	}
	out.WriteString(labelStyle.Render("keys") + widgets.Lane(laneWidth, th.Symbols.Lane, dimStyle, marks...) + "\n\n")

	// reference strip
	out.WriteString("        " + m.strip() + "\n\n")

	// recent outcomes, newest first
	for i := len(snap.Outcomes) - 1; i >= 0 && i >= len(snap.Outcomes)-shownRecent; i-- {
		o := snap.Outcomes[i]
		color := th.Matched()
		if o.Result == match.Mismatched {
			color = th.Wrong()
		}
		style := lipgloss.NewStyle().Foreground(color)
		if i == len(snap.Outcomes)-1 && m.flash != nil {
			style = style.Bold(true)
		}
		out.WriteString("  " + style.Render(o.String()) + "\n")
	}
	if len(snap.Outcomes) == 0 {
		out.WriteString(dimStyle.Render("  play the highlighted note") + "\n")
	}
	out.WriteString("\n")

	if snap.Error != "" {
		out.WriteString(lipgloss.NewStyle().Foreground(th.Warning()).Render(snap.Error) + "\n")
	}
	if m.status != "" {
		out.WriteString(fgStyle.Render(m.status) + "\n")
	}

	legend := strings.Join([]string{
		widgets.RenderLegendItem(th.Matched(), "played"),
		widgets.RenderLegendItem(th.Expected(), "next"),
		widgets.RenderLegendItem(th.Wrong(), "wrong"),
	}, "  ")
	out.WriteString(legend + "\n")
	out.WriteString(dimStyle.Render(fmt.Sprintf("%s  matched:%d missed:%d",
		widgets.RenderKeyHelp(keys), snap.Matched, snap.Mismatched)))

	return out.String()
}

func (m Model) referenceLine() string {
	snap := m.snap
	if snap.Reference == "" && len(snap.Tracks) == 0 {
		return "no reference loaded"
	}
	line := snap.Reference
	if t := snap.Cursor.Track; t < len(snap.Tracks) {
		line += fmt.Sprintf("  track %d/%d: %s", t+1, len(snap.Tracks), snap.Tracks[t])
	}
	if len(m.devices) > 0 {
		line += "  [" + strings.Join(m.devices, ", ") + "]"
	}
	return line
}

// strip shows the notes around the cursor: played, expected, then upcoming.
func (m Model) strip() string {
	th := m.Theme
	notes := m.snap.Notes
	pos := m.snap.Cursor.Position
	lo, hi := widgets.Window(len(notes), pos, stripSize)

	played := lipgloss.NewStyle().Foreground(th.Matched())
	next := lipgloss.NewStyle().Foreground(th.BG()).Background(th.Expected()).Bold(true)
	upcoming := lipgloss.NewStyle().Foreground(th.FG())

	cells := make([]widgets.Cell, 0, hi-lo)
	for i := lo; i < hi; i++ {
		label := notes[i].Label()
		switch {
		case i < pos:
			cells = append(cells, widgets.Cell{Text: label + string(th.Symbols.Played), Style: played})
		case i == pos:
			cells = append(cells, widgets.Cell{Text: label, Style: next})
		default:
			cells = append(cells, widgets.Cell{Text: label, Style: upcoming})
		}
	}
	return widgets.Strip(cells)
}
