package trainer

import (
	"fmt"

	"github.com/charmbracelet/log"

	"go-practice/debug"
	"go-practice/match"
	"go-practice/pitch"
	"go-practice/reference"
)

// Sink receives everything a presentation needs. Sinks are called from the
// session loop after the state change they describe, and must not block.
type Sink interface {
	PitchDetected(ev pitch.Event)
	Outcome(o match.Outcome)
	// expected is nil once the track is exhausted or nothing is loaded.
	CursorMoved(c match.Cursor, expected *reference.Note)
	ReferenceLoaded(seq *reference.Sequence, track int)
	ModeChanged(m match.Mode)
}

// NopSink ignores every call. Embed it to implement only part of Sink.
type NopSink struct{}

func (NopSink) PitchDetected(pitch.Event) {}
func (NopSink) Outcome(match.Outcome) {}
func (NopSink) CursorMoved(match.Cursor, *reference.Note) {}
func (NopSink) ReferenceLoaded(*reference.Sequence, int) {}
func (NopSink) ModeChanged(match.Mode) {}

// sinks fans out to several sinks. A panicking sink is logged and skipped so
// that rendering never disturbs matching.
type sinks []Sink

func (ss sinks) each(what string, fn func(Sink)) {
	for _, s := range ss {
		func() {
			defer func() {
				if r := recover(); r != nil {
					debug.Log("sink", "%T.%s panicked: %v", s, what, r)
				}
			}()
			fn(s)
		}()
	}
}

func (ss sinks) PitchDetected(ev pitch.Event) {
	ss.each("PitchDetected", func(s Sink) { s.PitchDetected(ev) })
}

func (ss sinks) Outcome(o match.Outcome) {
	ss.each("Outcome", func(s Sink) { s.Outcome(o) })
}

func (ss sinks) CursorMoved(c match.Cursor, expected *reference.Note) {
	ss.each("CursorMoved", func(s Sink) { s.CursorMoved(c, expected) })
}

func (ss sinks) ReferenceLoaded(seq *reference.Sequence, track int) {
	ss.each("ReferenceLoaded", func(s Sink) { s.ReferenceLoaded(seq, track) })
}

func (ss sinks) ModeChanged(m match.Mode) {
	ss.each("ModeChanged", func(s Sink) { s.ModeChanged(m) })
}

// LogSink writes outcomes as console lines such as "0: C4 - Nice!".
type LogSink struct {
	Logger *log.Logger
}

func NewLogSink(l *log.Logger) *LogSink {
	return &LogSink{Logger: l}
}

func (l *LogSink) PitchDetected(ev pitch.Event) {
	l.Logger.Debug("pitch", "note", ev.Label(), "hz", fmt.Sprintf("%.1f", ev.Frequency), "cents", fmt.Sprintf("%+.0f", ev.Cents))
}

func (l *LogSink) Outcome(o match.Outcome) {
	if o.Result == match.Matched {
		l.Logger.Info(o.String())
		return
	}
	l.Logger.Warn(o.String())
}

func (l *LogSink) CursorMoved(c match.Cursor, expected *reference.Note) {
	if expected == nil {
		// an empty track has nothing to complete
		if c.Position > 0 {
			l.Logger.Info("track complete", "track", c.Track)
		}
		return
	}
	l.Logger.Debug("next", "index", c.Position, "note", expected.Label())
}

func (l *LogSink) ReferenceLoaded(seq *reference.Sequence, track int) {
	t, ok := seq.Track(track)
	if !ok {
		return
	}
	l.Logger.Info("reference loaded", "name", seq.Name, "track", track, "label", t.Label())
}

func (l *LogSink) ModeChanged(m match.Mode) {
	l.Logger.Info("mode changed", "mode", m)
}
