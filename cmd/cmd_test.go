package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-practice/config"
	"go-practice/match"
	"go-practice/reference"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func writeSong(t *testing.T) string {
	t.Helper()
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("Lead"))
	tr.Add(0, gomidi.ProgramChange(0, 73))
	for _, key := range []uint8{67, 69, 71} {
		tr.Add(0, gomidi.NoteOn(0, key, 100))
		tr.Add(480, gomidi.NoteOff(0, key))
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	require.NoError(t, s.Add(tr))
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestTracks(t *testing.T) {
	out, _, err := execute(t, "tracks", writeSong(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Lead (480 ticks per quarter)")
	assert.Contains(t, out, "0: Lead (Flute, 3 notes), starts on G4")

	_, _, err = execute(t, "tracks")
	assert.Error(t, err)
}

func TestRunPlainMelody(t *testing.T) {
	out, logs, err := execute(t, "run", "--plain", "--melody", "C4 D4 E4", "--play", "C4 G4 D4 E4", "--rate", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "complete: matched 3 of 3 notes, 1 wrong")
	assert.Contains(t, logs, "0: C4 - Nice!")
	assert.Contains(t, logs, "1: Sorry, that's a G4, not a D4")
}

func TestRunRemembersFile(t *testing.T) {
	song := writeSong(t)
	home := t.TempDir()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--plain", "--file", song, "--play", "G4 A4 B4", "--mode", "auto", "--a4", "442"})
	t.Setenv("HOME", home)
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "matched 3 of 3")

	cfg, err := config.LoadFrom(filepath.Join(home, ".config", "go-practice", "config.json"))
	require.NoError(t, err)
	assert.Equal(t, song, cfg.LastFile)
	assert.Equal(t, 442.0, cfg.A4)
	assert.Equal(t, match.Auto, cfg.Mode)
}

func TestRunRejectsUnusableReference(t *testing.T) {
	var conductor smf.Track
	conductor.Add(0, smf.MetaTrackSequenceName("Silence"))
	conductor.Add(0, smf.MetaTempo(90))
	conductor.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	require.NoError(t, s.Add(conductor))
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	empty := filepath.Join(t.TempDir(), "empty.mid")
	require.NoError(t, os.WriteFile(empty, buf.Bytes(), 0644))

	out, _, err := execute(t, "run", "--plain", "--file", empty, "--play", "C4 D4")
	var loadErr *match.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.ErrorIs(t, err, match.ErrTrackRange)
	assert.Empty(t, out)

	_, _, err = execute(t, "run", "--plain", "--file", writeSong(t), "--track", "2", "--play", "G4")
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 2, loadErr.Track)

	_, _, err = execute(t, "run", "--plain", "--melody", "  ", "--play", "C4")
	assert.ErrorIs(t, err, reference.ErrNoNotes)
}

func TestRunFlagErrors(t *testing.T) {
	_, _, err := execute(t, "run", "--plain", "--play", "C4")
	assert.ErrorContains(t, err, "no reference")

	_, _, err = execute(t, "run", "--plain", "--melody", "C4", "--file", "x.mid")
	assert.Error(t, err)

	_, _, err = execute(t, "run", "--plain", "--melody", "C4", "--mode", "sideways")
	assert.ErrorContains(t, err, "unknown mode")

	_, _, err = execute(t, "run", "--plain", "--melody", "C4", "--play", "Q9")
	assert.Error(t, err)
}
