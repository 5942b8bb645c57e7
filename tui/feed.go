package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"go-practice/match"
	"go-practice/midi"
	"go-practice/pitch"
	"go-practice/reference"
)

type OutcomeMsg match.Outcome

type ModeMsg match.Mode

type LoadedMsg struct {
	Name  string
	Track string
}

type CompleteMsg struct{}

type DeviceEventMsg midi.DeviceEvent

// DoneMsg reports that the session stopped.
type DoneMsg struct{ Err error }

// Feed is a session sink that turns discrete events into tea messages.
// Continuous state (pitch, cursor) is read from the session snapshot instead.
type Feed struct {
	ch chan tea.Msg
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan tea.Msg, 64)}
}

// ListenForFeed waits for the next event from the feed.
func ListenForFeed(f *Feed) tea.Cmd {
	return func() tea.Msg {
		return <-f.ch
	}
}

func (f *Feed) send(msg tea.Msg) {
	select {
	case f.ch <- msg:
	default:
		// UI behind; the snapshot still catches up
	}
}

func (f *Feed) PitchDetected(pitch.Event) {}

func (f *Feed) Outcome(o match.Outcome) {
	f.send(OutcomeMsg(o))
}

func (f *Feed) CursorMoved(c match.Cursor, expected *reference.Note) {
	if expected == nil && c.Position > 0 {
		f.send(CompleteMsg{})
	}
}

func (f *Feed) ReferenceLoaded(seq *reference.Sequence, track int) {
	msg := LoadedMsg{Name: seq.Name}
	if t, ok := seq.Track(track); ok {
		msg.Track = t.Label()
	}
	f.send(msg)
}

func (f *Feed) ModeChanged(m match.Mode) {
	f.send(ModeMsg(m))
}

// Device forwards keyboard hot-plug events.
func (f *Feed) Device(ev midi.DeviceEvent) {
	f.send(DeviceEventMsg(ev))
}
