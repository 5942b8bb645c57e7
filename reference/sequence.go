package reference

import (
	"errors"
	"fmt"
	"strings"

	"go-practice/pitch"
)

// DefaultResolution is used when a file carries no metric time format.
const DefaultResolution = 960

var (
	ErrMissingPitch = errors.New("note has no pitch")
	ErrUnordered    = errors.New("notes not ordered by start tick")
	ErrNegativeTime = errors.New("negative tick")
	ErrNoNotes      = errors.New("no notes")
)

// Note is one expected note of a track. Its identity is its index in Track.Notes.
type Note struct {
	Class         pitch.Class `json:"class"`
	Octave        int         `json:"octave"`
	Key           uint8       `json:"key"`
	StartTick     int64       `json:"startTick"`
	DurationTicks int64       `json:"durationTicks"`
	Velocity      uint8       `json:"velocity"`
}

// NoteFromKey builds a note for a MIDI key number.
func NoteFromKey(key uint8, start, duration int64) Note {
	class, octave := pitch.FromKey(int(key))
	return Note{
		Class:         class,
		Octave:        octave,
		Key:           key,
		StartTick:     start,
		DurationTicks: duration,
		Velocity:      100,
	}
}

// Label returns the note name with octave, e.g. "D4".
func (n Note) Label() string {
	return pitch.Label(n.Class, n.Octave)
}

// Track is an ordered list of notes with the label used to pick it.
type Track struct {
	Name       string `json:"name"`
	Instrument string `json:"instrument"`
	Channel    uint8  `json:"channel"`
	Notes      []Note `json:"notes"`
}

// Check validates the notes of a track. It returns the index of the first bad
// note, or -1 when the track is usable.
func (t *Track) Check() (int, error) {
	var prev int64
	for i, n := range t.Notes {
		if !n.Class.Valid() {
			return i, ErrMissingPitch
		}
		if n.StartTick < 0 || n.DurationTicks < 0 {
			return i, ErrNegativeTime
		}
		if i > 0 && n.StartTick < prev {
			return i, ErrUnordered
		}
		prev = n.StartTick
	}
	return -1, nil
}

// Label describes a track for selection lists.
func (t *Track) Label() string {
	name := t.Name
	if name == "" {
		name = "untitled"
	}
	return fmt.Sprintf("%s (%s, %d notes)", name, t.Instrument, len(t.Notes))
}

// Sequence is a parsed reference file. It must not be modified once handed to
// a session.
type Sequence struct {
	Name       string  `json:"name"`
	Resolution int     `json:"resolution"`
	Tracks     []Track `json:"tracks"`
}

// Track returns the track at idx.
func (s *Sequence) Track(idx int) (*Track, bool) {
	if s == nil || idx < 0 || idx >= len(s.Tracks) {
		return nil, false
	}
	return &s.Tracks[idx], true
}

// Validate checks every track.
func (s *Sequence) Validate() error {
	for ti := range s.Tracks {
		if i, err := s.Tracks[ti].Check(); err != nil {
			return fmt.Errorf("track %d note %d: %w", ti, i, err)
		}
	}
	return nil
}

// Melody builds a single-track sequence from note labels such as "C4 D4 E4",
// one quarter note each.
func Melody(name, notes string) (*Sequence, error) {
	track := Track{Name: name, Instrument: programNames[0]}
	var tick int64
	for _, label := range strings.Fields(notes) {
		class, octave, err := pitch.ParseNote(label)
		if err != nil {
			return nil, err
		}
		key := pitch.Key(class, octave)
		if key < 0 || key > 127 {
			return nil, fmt.Errorf("note %s out of MIDI range", label)
		}
		track.Notes = append(track.Notes, NoteFromKey(uint8(key), tick, DefaultResolution))
		tick += DefaultResolution
	}
	if len(track.Notes) == 0 {
		return nil, fmt.Errorf("melody %q: %w", name, ErrNoNotes)
	}
	return &Sequence{
		Name:       name,
		Resolution: DefaultResolution,
		Tracks:     []Track{track},
	}, nil
}
