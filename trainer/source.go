package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"go-practice/debug"
	"go-practice/midi"
	"go-practice/pitch"
)

// Emit hands one event to the session without blocking. It reports false when
// the event was dropped.
type Emit func(ev pitch.Event) bool

// Source produces pitch events until ctx is cancelled or it runs out.
type Source interface {
	Name() string
	Run(ctx context.Context, emit Emit) error
}

// KeyboardSource turns note-ons from every connected MIDI keyboard into
// perfectly tuned pitch events.
type KeyboardSource struct {
	Tuning   pitch.Tuning
	Devices  *midi.DeviceManager
	OnDevice func(ev midi.DeviceEvent) // optional
}

func (k *KeyboardSource) Name() string {
	return "midi keyboard"
}

func (k *KeyboardSource) Run(ctx context.Context, emit Emit) error {
	go k.Devices.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-k.Devices.Events():
			if !ok {
				return nil
			}
			debug.Log("keyboard", "%s %s", ev.ID, ev.Type)
			if ev.Type == midi.DeviceConnected {
				go k.forward(ev.Controller, emit)
			}
			if k.OnDevice != nil {
				k.OnDevice(ev)
			}
		}
	}
}

// forward runs until the controller is closed.
func (k *KeyboardSource) forward(c midi.Controller, emit Emit) {
	for n := range c.NoteEvents() {
		emit(k.Tuning.FromKey(int(n.Note)))
	}
}

// ScriptSource plays a fixed list of events, each held for Frames emissions
// spaced Interval apart. It stands in for a performer in demos and tests.
type ScriptSource struct {
	Events   []pitch.Event
	Frames   int
	Interval time.Duration
}

// NewScriptSource builds a script from note labels such as "C4 D4 E4".
func NewScriptSource(tuning pitch.Tuning, notes string) (*ScriptSource, error) {
	src := &ScriptSource{Frames: 3, Interval: 20 * time.Millisecond}
	for _, label := range strings.Fields(notes) {
		class, octave, err := pitch.ParseNote(label)
		if err != nil {
			return nil, err
		}
		src.Events = append(src.Events, tuning.FromKey(pitch.Key(class, octave)))
	}
	if len(src.Events) == 0 {
		return nil, errors.New("no notes to play")
	}
	return src, nil
}

func (s *ScriptSource) Name() string {
	return "script"
}

func (s *ScriptSource) Run(ctx context.Context, emit Emit) error {
	frames := max(s.Frames, 1)
	interval := s.Interval
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, ev := range s.Events {
		for i := 0; i < frames; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				emit(ev)
			}
		}
	}
	return nil
}

const (
	defaultFrameSize = 4096
	defaultHopSize   = 1024
)

// WAVSource analyses a recording and replays the detected pitches at the
// speed of the recording.
type WAVSource struct {
	Path      string
	Tuning    pitch.Tuning
	FrameSize int
	HopSize   int
}

func (w *WAVSource) Name() string {
	return "wav " + w.Path
}

func (w *WAVSource) sizes() (frame, hop int) {
	frame, hop = w.FrameSize, w.HopSize
	if frame <= 0 {
		frame = defaultFrameSize
	}
	if hop <= 0 {
		hop = defaultHopSize
	}
	return frame, hop
}

// Analyze decodes the file and returns one event per hop, along with the time
// between hops. Hops without a pitch yield a zero Event, which is not Valid.
func (w *WAVSource) Analyze() ([]pitch.Event, time.Duration, error) {
	f, err := os.Open(w.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: not a valid wav file", w.Path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}

	samples := mono(buf, int(d.BitDepth))
	rate := int(d.SampleRate)
	if rate <= 0 {
		return nil, 0, fmt.Errorf("%s: no sample rate", w.Path)
	}
	frame, hop := w.sizes()
	det := pitch.NewDetector(rate, frame, w.Tuning)

	var events []pitch.Event
	pitched := 0
	for off := 0; off+frame <= len(samples); off += hop {
		ev, ok := det.Detect(samples[off : off+frame])
		if ok {
			pitched++
		}
		events = append(events, ev)
	}
	debug.Log("wav", "%s: %d samples at %d Hz, %d/%d pitched frames", w.Path, len(samples), rate, pitched, len(events))
	return events, time.Duration(hop) * time.Second / time.Duration(rate), nil
}

// mono mixes interleaved integer PCM down to one channel in [-1, 1].
func mono(buf *audio.IntBuffer, bitDepth int) []float64 {
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	out := make([]float64, len(buf.Data)/channels)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		out[i] = float64(sum) / float64(channels) / scale
	}
	return out
}

func (w *WAVSource) Run(ctx context.Context, emit Emit) error {
	events, hop, err := w.Analyze()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(hop)
	defer ticker.Stop()

	for _, ev := range events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ev.Valid() {
				emit(ev)
			}
		}
	}
	return nil
}
