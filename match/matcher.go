// Package match turns a stream of detected pitches into note-onset decisions
// against a reference track.
//
// A Matcher is not safe for concurrent use. It is owned by a single session
// loop that feeds it one event at a time.
package match

import (
	"errors"
	"fmt"

	"go-practice/pitch"
	"go-practice/reference"
)

// State is the coarse session state derived from the cursor.
type State int

const (
	Idle     State = iota // no reference loaded
	Tracking              // waiting for the expected note
	Paused                // manual mode, cursor frozen
	Complete              // every note matched
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Paused:
		return "paused"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Matcher advances a cursor through a reference track as correct notes are
// played.
type Matcher struct {
	seq    *reference.Sequence
	notes  []reference.Note
	cursor Cursor
}

// New returns an idle matcher in Auto mode.
func New() *Matcher {
	return &Matcher{
		cursor: Cursor{LastSeen: pitch.NoClass, Mode: Auto},
	}
}

// SetMode switches between Auto and Manual. It reports whether the mode
// changed; setting the current mode again has no effect.
func (m *Matcher) SetMode(mode Mode) bool {
	if mode != Auto && mode != Manual {
		return false
	}
	if m.cursor.Mode == mode {
		return false
	}
	m.cursor.Mode = mode
	return true
}

func (m *Matcher) Mode() Mode {
	return m.cursor.Mode
}

// Validate reports whether track of seq can be used as a reference. It
// returns the *LoadError that Load would return, without touching a matcher.
func Validate(seq *reference.Sequence, track int) error {
	if seq == nil {
		return &LoadError{Track: track, Index: -1, Err: ErrNoSequence}
	}
	t, ok := seq.Track(track)
	if !ok {
		return &LoadError{Track: track, Index: -1, Err: ErrTrackRange}
	}
	if i, err := t.Check(); err != nil {
		return &LoadError{Track: track, Index: i, Err: fmt.Errorf("%w: %w", ErrBadNote, err)}
	}
	if len(t.Notes) == 0 {
		return &LoadError{Track: track, Index: -1, Err: ErrEmptyReference}
	}
	return nil
}

// Load installs a track of seq as the reference and rewinds the cursor.
// A bad sequence, track index or note leaves the matcher untouched. An empty
// track is installed but leaves the matcher Idle, and Load still reports it.
func (m *Matcher) Load(seq *reference.Sequence, track int) error {
	err := Validate(seq, track)
	if err != nil && !errors.Is(err, ErrEmptyReference) {
		return err
	}

	t, _ := seq.Track(track)
	m.seq = seq
	m.notes = t.Notes
	m.cursor.Track = track
	m.cursor.Position = 0
	return err
}

// OnPitch processes one detected pitch. It returns an outcome only when the
// event starts a new note while a reference note is awaited in Auto mode.
//
// An onset is declared on every pitch-class change. A sustained note is
// therefore counted once, but a repeated note of the same pitch class is only
// seen again after some other pitch class was heard in between.
func (m *Matcher) OnPitch(ev pitch.Event) (Outcome, bool) {
	if m.cursor.Mode != Auto || !ev.Valid() {
		return Outcome{}, false
	}

	if ev.Class == m.cursor.LastSeen {
		return Outcome{}, false
	}
	m.cursor.LastSeen = ev.Class
	onset := Onset{Class: ev.Class, Octave: ev.Octave, Cents: ev.Cents}

	expected, ok := m.Expected()
	if !ok {
		return Outcome{}, false
	}

	out := Outcome{
		ExpectedIndex: m.cursor.Position,
		Expected:      expected.Label(),
		Observed:      onset.Label(),
		Result:        Mismatched,
		Cents:         onset.Cents,
	}
	if onset.Class == expected.Class && onset.Octave == expected.Octave {
		out.Result = Matched
		m.cursor.Position++
	}
	return out, true
}

// Expected returns the note awaited at the cursor, or false when no reference
// is loaded or the track is exhausted.
func (m *Matcher) Expected() (reference.Note, bool) {
	if m.cursor.Position >= len(m.notes) {
		return reference.Note{}, false
	}
	return m.notes[m.cursor.Position], true
}

func (m *Matcher) State() State {
	switch {
	case len(m.notes) == 0:
		return Idle
	case m.cursor.Position >= len(m.notes):
		return Complete
	case m.cursor.Mode == Manual:
		return Paused
	}
	return Tracking
}

func (m *Matcher) Cursor() Cursor {
	return m.cursor
}

// Len is the number of notes in the active track.
func (m *Matcher) Len() int {
	return len(m.notes)
}

// Progress is the matched fraction of the active track, 0 when idle.
func (m *Matcher) Progress() float64 {
	if len(m.notes) == 0 {
		return 0
	}
	return float64(m.cursor.Position) / float64(len(m.notes))
}

// Sequence returns the loaded reference, or nil.
func (m *Matcher) Sequence() *reference.Sequence {
	return m.seq
}

// Notes returns the active track's notes. The slice is shared and must not be
// modified.
func (m *Matcher) Notes() []reference.Note {
	return m.notes
}
