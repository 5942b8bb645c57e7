package reference

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadFile parses a standard MIDI file into a Sequence, named after the file
// when its first track is unnamed.
func ReadFile(path string) (*Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open midi file: %w", err)
	}
	defer f.Close()

	seq, err := Read(f)
	if err != nil {
		return nil, err
	}
	if seq.Name == "" {
		seq.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return seq, nil
}

// Read parses a standard MIDI file. Tracks without notes are skipped, so
// track 0 is always the first playable one. The sequence takes the name of
// the file's first track, whether or not that track has notes.
func Read(r io.Reader) (seq *Sequence, err error) {
	// smf can panic on truncated input
	defer func() {
		if rec := recover(); rec != nil {
			seq = nil
			err = fmt.Errorf("parse midi: %v", rec)
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("parse midi: %w", err)
	}

	seq = &Sequence{Resolution: DefaultResolution}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		seq.Resolution = int(mt.Resolution())
	}

	for i, tr := range s.Tracks {
		t := readTrack(tr)
		if i == 0 && seq.Name == "" {
			seq.Name = t.Name
		}
		if len(t.Notes) == 0 {
			continue
		}
		seq.Tracks = append(seq.Tracks, t)
	}

	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

type openKey struct {
	channel, key uint8
}

func readTrack(tr smf.Track) Track {
	var (
		t          Track
		absTicks   int64
		program    = -1
		instrument string
		open       = make(map[openKey][]int)
	)

	for _, ev := range tr {
		absTicks += int64(ev.Delta)
		msg := gomidi.Message(ev.Message)

		var ch, key, vel, prog uint8
		var text string
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			if len(t.Notes) == 0 {
				t.Channel = ch
			}
			k := openKey{ch, key}
			open[k] = append(open[k], len(t.Notes))
			n := NoteFromKey(key, absTicks, 0)
			n.Velocity = vel
			t.Notes = append(t.Notes, n)
		case msg.GetNoteEnd(&ch, &key):
			k := openKey{ch, key}
			if q := open[k]; len(q) > 0 {
				idx := q[0]
				open[k] = q[1:]
				t.Notes[idx].DurationTicks = absTicks - t.Notes[idx].StartTick
			}
		case msg.GetProgramChange(&ch, &prog):
			if program < 0 {
				program = int(prog)
			}
		case ev.Message.GetMetaTrackName(&text):
			t.Name = strings.TrimSpace(text)
		case ev.Message.GetMetaInstrument(&text):
			instrument = strings.TrimSpace(text)
		}
	}

	// notes still sounding at end of track last until the final event
	for _, q := range open {
		for _, idx := range q {
			t.Notes[idx].DurationTicks = absTicks - t.Notes[idx].StartTick
		}
	}

	sort.SliceStable(t.Notes, func(i, j int) bool {
		if t.Notes[i].StartTick != t.Notes[j].StartTick {
			return t.Notes[i].StartTick < t.Notes[j].StartTick
		}
		return t.Notes[i].Key < t.Notes[j].Key
	})

	switch {
	case instrument != "":
		t.Instrument = instrument
	case program >= 0:
		t.Instrument = ProgramName(uint8(program))
	default:
		t.Instrument = ProgramName(0)
	}
	return t
}
