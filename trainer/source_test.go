package trainer

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-practice/midi"
	"go-practice/pitch"
)

func collect(events *[]pitch.Event) Emit {
	return func(ev pitch.Event) bool {
		*events = append(*events, ev)
		return true
	}
}

func TestScriptSource(t *testing.T) {
	src, err := NewScriptSource(pitch.DefaultTuning(), "C4 Eb4")
	require.NoError(t, err)
	src.Frames = 2
	src.Interval = time.Millisecond

	var got []pitch.Event
	require.NoError(t, src.Run(context.Background(), collect(&got)))
	require.Len(t, got, 4)
	assert.Equal(t, "C4", got[1].Label())
	assert.Equal(t, "D#4", got[2].Label())
	assert.InDelta(t, 311.13, got[2].Frequency, 0.01)

	_, err = NewScriptSource(pitch.DefaultTuning(), "C4 H2")
	assert.Error(t, err)
	_, err = NewScriptSource(pitch.DefaultTuning(), "  ")
	assert.Error(t, err)
}

func TestScriptSourceCancel(t *testing.T) {
	src, err := NewScriptSource(pitch.DefaultTuning(), "C4 D4 E4")
	require.NoError(t, err)
	src.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, src.Run(ctx, func(pitch.Event) bool { return true }), context.Canceled)
}

func TestKeyboardForward(t *testing.T) {
	tu, err := pitch.NewTuning(442)
	require.NoError(t, err)

	kb, err := midi.NewKeyboardController("test", nil)
	require.NoError(t, err)
	kb.Handle(gomidi.NoteOn(0, 69, 100), 0)
	kb.Handle(gomidi.NoteOn(0, 72, 100), 0)
	require.NoError(t, kb.Close())

	var got []pitch.Event
	src := &KeyboardSource{Tuning: tu}
	src.forward(kb, collect(&got))

	require.Len(t, got, 2)
	assert.Equal(t, "A4", got[0].Label())
	assert.Equal(t, 442.0, got[0].Frequency)
	assert.Zero(t, got[0].Cents)
	assert.Equal(t, "C5", got[1].Label())
}

const testRate = 44100

func tone(freq, seconds float64) []int {
	n := int(seconds * testRate)
	out := make([]int, n)
	for i := range out {
		out[i] = int(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return out
}

func writeWAV(t *testing.T, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "take.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, testRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: testRate, NumChannels: 1},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func TestWAVSourceAnalyze(t *testing.T) {
	var samples []int
	samples = append(samples, tone(440, 0.4)...)
	samples = append(samples, make([]int, testRate/4)...)
	samples = append(samples, tone(261.63, 0.4)...)

	src := &WAVSource{Path: writeWAV(t, samples), Tuning: pitch.DefaultTuning()}
	events, hop, err := src.Analyze()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(defaultHopSize)*time.Second/testRate, hop)

	var valid []pitch.Event
	firstSilent, lastSilent := -1, -1
	for i, ev := range events {
		if ev.Valid() {
			valid = append(valid, ev)
			continue
		}
		if firstSilent < 0 {
			firstSilent = i
		}
		lastSilent = i
	}
	require.NotEmpty(t, valid)
	require.GreaterOrEqual(t, firstSilent, 0, "gap between the notes is silent")

	// frames straddling an edge may wander; the steady parts may not
	assert.Equal(t, "A4", events[0].Label())
	assert.Equal(t, "A4", events[firstSilent/2].Label())
	assert.Equal(t, "C4", events[len(events)-1].Label())
	assert.Equal(t, "C4", events[(lastSilent+len(events))/2].Label())
}

func TestWAVSourceInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0644))

	_, _, err := (&WAVSource{Path: path}).Analyze()
	assert.Error(t, err)

	_, _, err = (&WAVSource{Path: filepath.Join(t.TempDir(), "gone.wav")}).Analyze()
	assert.Error(t, err)
}

func TestMono(t *testing.T) {
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2},
		Data:   []int{16384, 0, -16384, -16384},
	}
	assert.Equal(t, []float64{0.25, -0.5}, mono(buf, 16))
}
