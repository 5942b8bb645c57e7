package match

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-practice/pitch"
	"go-practice/reference"
)

func melody(t *testing.T, notes string) *reference.Sequence {
	t.Helper()
	seq, err := reference.Melody("test", notes)
	require.NoError(t, err)
	return seq
}

func loaded(t *testing.T, notes string) *Matcher {
	t.Helper()
	m := New()
	require.NoError(t, m.Load(melody(t, notes), 0))
	return m
}

func ev(label string) pitch.Event {
	class, octave, err := pitch.ParseNote(label)
	if err != nil {
		panic(err)
	}
	return pitch.DefaultTuning().FromKey(pitch.Key(class, octave))
}

func feed(m *Matcher, labels ...string) []Outcome {
	var outs []Outcome
	for _, l := range labels {
		if o, ok := m.OnPitch(ev(l)); ok {
			outs = append(outs, o)
		}
	}
	return outs
}

func TestScenarioSustainedNotes(t *testing.T) {
	m := loaded(t, "C4 D4 E4")

	outs := feed(m, "C4", "C4", "C4", "D4", "E4")

	require.Len(t, outs, 3)
	assert.Equal(t, Outcome{ExpectedIndex: 0, Expected: "C4", Observed: "C4", Result: Matched}, outs[0])
	assert.Equal(t, Matched, outs[1].Result)
	assert.Equal(t, "D4", outs[1].Expected)
	assert.Equal(t, Matched, outs[2].Result)
	assert.Equal(t, "E4", outs[2].Expected)
	assert.Equal(t, 3, m.Cursor().Position)
	assert.Equal(t, Complete, m.State())
}

func TestScenarioMismatchHolds(t *testing.T) {
	m := loaded(t, "C4 D4")

	o, ok := m.OnPitch(ev("C4"))
	require.True(t, ok)
	assert.Equal(t, Matched, o.Result)
	assert.Equal(t, 1, m.Cursor().Position)

	o, ok = m.OnPitch(ev("G4"))
	require.True(t, ok)
	assert.Equal(t, Outcome{ExpectedIndex: 1, Expected: "D4", Observed: "G4", Result: Mismatched}, o)
	assert.Equal(t, 1, m.Cursor().Position)
	assert.Equal(t, "1: Sorry, that's a G4, not a D4", o.String())

	o, ok = m.OnPitch(ev("D4"))
	require.True(t, ok)
	assert.Equal(t, Matched, o.Result)
	assert.Equal(t, 2, m.Cursor().Position)
}

func TestDebounceOnePerRun(t *testing.T) {
	m := loaded(t, "A4 A4 A4")

	// cents and octave noise within one pitch-class run never re-triggers
	run := []pitch.Event{
		{Class: pitch.A, Octave: 4, Frequency: 440, Cents: 3},
		{Class: pitch.A, Octave: 4, Frequency: 441, Cents: -12},
		{Class: pitch.A, Octave: 5, Frequency: 880, Cents: 20},
		{Class: pitch.A, Octave: 3, Frequency: 220, Cents: -40},
	}
	var count int
	for _, e := range run {
		if _, ok := m.OnPitch(e); ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, m.Cursor().Position)
	assert.Equal(t, pitch.A, m.Cursor().LastSeen)
}

func TestRepeatedNoteNeedsAnotherPitchBetween(t *testing.T) {
	m := loaded(t, "E4 E4")

	outs := feed(m, "E4", "E4", "E4")
	assert.Len(t, outs, 1)
	assert.Equal(t, 1, m.Cursor().Position)

	outs = feed(m, "F4", "E4")
	require.Len(t, outs, 2)
	assert.Equal(t, Mismatched, outs[0].Result)
	assert.Equal(t, Matched, outs[1].Result)
	assert.Equal(t, Complete, m.State())
}

func TestOctaveMustMatch(t *testing.T) {
	m := loaded(t, "C4")

	o, ok := m.OnPitch(ev("C5"))
	require.True(t, ok)
	assert.Equal(t, Mismatched, o.Result)
	assert.Equal(t, 0, m.Cursor().Position)
}

func TestCentsDoNotGate(t *testing.T) {
	m := loaded(t, "C4")

	o, ok := m.OnPitch(pitch.Event{Class: pitch.C, Octave: 4, Frequency: 268, Cents: 45})
	require.True(t, ok)
	assert.Equal(t, Matched, o.Result)
	assert.Equal(t, 45.0, o.Cents)
}

func TestCursorMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := loaded(t, "C4 D4 E4 F4 G4 A4 B4 C5 D5 E5")
	tuning := pitch.DefaultTuning()

	prev := m.Cursor().Position
	for i := 0; i < 5000; i++ {
		if rng.Intn(50) == 0 {
			if rng.Intn(2) == 0 {
				m.SetMode(Manual)
			} else {
				m.SetMode(Auto)
			}
		}
		o, ok := m.OnPitch(tuning.FromKey(58 + rng.Intn(20)))
		pos := m.Cursor().Position

		require.GreaterOrEqual(t, pos, prev)
		require.LessOrEqual(t, pos-prev, 1)
		if ok && o.Result == Mismatched {
			require.Equal(t, prev, pos)
		}
		if ok && o.Result == Matched {
			require.Equal(t, prev+1, pos)
		}
		prev = pos
	}
}

func TestModeIdempotent(t *testing.T) {
	m := loaded(t, "C4 D4")
	feed(m, "C4")
	before := m.Cursor()
	state := m.State()

	assert.False(t, m.SetMode(Auto))
	assert.Equal(t, before, m.Cursor())
	assert.Equal(t, state, m.State())

	assert.True(t, m.SetMode(Manual))
	paused := m.Cursor()
	assert.False(t, m.SetMode(Manual))
	assert.Equal(t, paused, m.Cursor())
	assert.Equal(t, Paused, m.State())

	assert.False(t, m.SetMode(Mode(9)))
	assert.Equal(t, Manual, m.Mode())
}

func TestManualFreezesCursor(t *testing.T) {
	m := loaded(t, "C4 D4")
	m.SetMode(Manual)

	assert.Empty(t, feed(m, "C4", "D4", "C4"))
	assert.Equal(t, 0, m.Cursor().Position)
	assert.Equal(t, pitch.NoClass, m.Cursor().LastSeen)

	assert.True(t, m.SetMode(Auto))
	assert.Equal(t, Tracking, m.State())
	outs := feed(m, "C4")
	require.Len(t, outs, 1)
	assert.Equal(t, Matched, outs[0].Result)
}

func TestCompleteIsTerminal(t *testing.T) {
	m := loaded(t, "C4")
	feed(m, "C4")
	require.Equal(t, Complete, m.State())

	for _, l := range []string{"D4", "C4", "E4", "C4"} {
		_, ok := m.OnPitch(ev(l))
		assert.False(t, ok)
		assert.Equal(t, 1, m.Cursor().Position)
		assert.Equal(t, Complete, m.State())
	}
	_, ok := m.Expected()
	assert.False(t, ok)

	// manual mode does not leave Complete either
	m.SetMode(Manual)
	assert.Equal(t, Complete, m.State())

	require.NoError(t, m.Load(m.Sequence(), 0))
	assert.Equal(t, Paused, m.State())
	assert.Equal(t, 0, m.Cursor().Position)
}

func TestExpected(t *testing.T) {
	m := New()
	_, ok := m.Expected()
	assert.False(t, ok)
	assert.Equal(t, Idle, m.State())
	assert.Zero(t, m.Progress())

	m = loaded(t, "G3 A3")
	n, ok := m.Expected()
	require.True(t, ok)
	assert.Equal(t, "G3", n.Label())

	feed(m, "G3")
	n, ok = m.Expected()
	require.True(t, ok)
	assert.Equal(t, "A3", n.Label())
	assert.Equal(t, 0.5, m.Progress())
}

func TestIdleEmitsNothing(t *testing.T) {
	m := New()
	assert.Empty(t, feed(m, "C4", "D4", "E4"))
	assert.Equal(t, Idle, m.State())
}

func TestInvalidEventsDropped(t *testing.T) {
	m := loaded(t, "C4")

	_, ok := m.OnPitch(pitch.Event{Class: pitch.NoClass, Octave: 4, Frequency: 100})
	assert.False(t, ok)
	_, ok = m.OnPitch(pitch.Event{Class: pitch.C, Octave: 4})
	assert.False(t, ok)
	assert.Equal(t, pitch.NoClass, m.Cursor().LastSeen)
	assert.Equal(t, 0, m.Cursor().Position)
}

func TestLoadErrors(t *testing.T) {
	m := loaded(t, "C4 D4")
	feed(m, "C4")

	err := m.Load(nil, 0)
	assert.ErrorIs(t, err, ErrNoSequence)

	err = m.Load(melody(t, "E4"), 3)
	assert.ErrorIs(t, err, ErrTrackRange)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 3, loadErr.Track)
	assert.Equal(t, -1, loadErr.Index)

	bad := melody(t, "E4 F4")
	bad.Tracks[0].Notes[1].Class = pitch.NoClass
	err = m.Load(bad, 0)
	assert.ErrorIs(t, err, ErrBadNote)
	assert.ErrorIs(t, err, reference.ErrMissingPitch)
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 1, loadErr.Index)

	unordered := melody(t, "E4 F4")
	unordered.Tracks[0].Notes[0].StartTick = 5000
	assert.ErrorIs(t, m.Load(unordered, 0), reference.ErrUnordered)

	// failed loads leave the previous reference in place
	assert.Equal(t, 1, m.Cursor().Position)
	assert.Equal(t, 2, m.Len())
}

func TestLoadEmptyTrackIsIdle(t *testing.T) {
	m := loaded(t, "C4")
	empty := &reference.Sequence{Tracks: []reference.Track{{Name: "silence"}}}

	err := m.Load(empty, 0)
	assert.ErrorIs(t, err, ErrEmptyReference)
	assert.Equal(t, Idle, m.State())
	assert.Empty(t, feed(m, "C4", "D4"))
}

func TestValidate(t *testing.T) {
	seq := melody(t, "C4 D4")
	assert.NoError(t, Validate(seq, 0))

	var loadErr *LoadError
	err := Validate(seq, 1)
	require.True(t, errors.As(err, &loadErr))
	assert.ErrorIs(t, err, ErrTrackRange)

	assert.ErrorIs(t, Validate(nil, 0), ErrNoSequence)
	assert.ErrorIs(t, Validate(&reference.Sequence{}, 0), ErrTrackRange)

	empty := &reference.Sequence{Tracks: []reference.Track{{Name: "silence"}}}
	err = Validate(empty, 0)
	assert.ErrorIs(t, err, ErrEmptyReference)
	assert.Equal(t, "load track 0: reference track has no notes", err.Error())
}

func TestLoadRewindsOnTrackChange(t *testing.T) {
	seq := melody(t, "C4 D4")
	seq.Tracks = append(seq.Tracks, reference.Track{
		Name:  "second",
		Notes: []reference.Note{reference.NoteFromKey(67, 0, 480)},
	})

	m := New()
	require.NoError(t, m.Load(seq, 0))
	feed(m, "C4")
	require.Equal(t, 1, m.Cursor().Position)

	require.NoError(t, m.Load(seq, 1))
	assert.Equal(t, Cursor{Track: 1, Position: 0, LastSeen: pitch.C, Mode: Auto}, m.Cursor())
	outs := feed(m, "G4")
	require.Len(t, outs, 1)
	assert.Equal(t, Matched, outs[0].Result)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Manual ")
	require.NoError(t, err)
	assert.Equal(t, Manual, mode)

	_, err = ParseMode("sometimes")
	assert.Error(t, err)

	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("auto")))
	assert.Equal(t, Auto, m)
}
