// Package trainer runs a practice session: it feeds pitch events from a
// source through a match.Matcher on a fixed tick and reports to sinks.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go-practice/debug"
	"go-practice/match"
	"go-practice/pitch"
	"go-practice/reference"
)

const (
	DefaultTickRate  = 30
	DefaultQueueSize = 64
	commandQueueSize = 16
	// outcomes kept for display
	recentOutcomes = 32
)

var (
	// ErrBusy is returned when the command queue is full.
	ErrBusy    = errors.New("session busy, command dropped")
	ErrStopped = errors.New("session stopped")
)

// Options configures a Session.
type Options struct {
	Tuning    pitch.Tuning
	TickRate  int // ticks per second
	QueueSize int // pitch events buffered between ticks
	Mode      match.Mode
	Source    Source
	Sinks     []Sink

	// StopWhenDone ends Run once the active track is complete.
	StopWhenDone bool

	// OnChange is called from the session loop after the mode or the active
	// track changed.
	OnChange func(mode match.Mode, track int)
}

// Snapshot is a copy of the session state for readers outside the loop.
type Snapshot struct {
	ID         string              `json:"id"`
	Mode       match.Mode          `json:"mode"`
	State      match.State         `json:"state"`
	Cursor     match.Cursor        `json:"cursor"`
	Expected   *reference.Note     `json:"expected,omitempty"`
	Length     int                 `json:"length"`
	Progress   float64             `json:"progress"`
	A4         float64             `json:"a4"`
	Pitch      *pitch.Event        `json:"pitch,omitempty"`
	Outcomes   []match.Outcome     `json:"outcomes"`
	Matched    int                 `json:"matched"`
	Mismatched int                 `json:"mismatched"`
	Dropped    uint64              `json:"dropped"`
	Reference  string              `json:"reference,omitempty"`
	Tracks     []string            `json:"tracks"`
	Notes      []reference.Note    `json:"notes"`
	Error      string              `json:"error,omitempty"`
	sequence   *reference.Sequence
}

// Sequence returns the loaded reference, or nil. It must not be modified.
func (s Snapshot) Sequence() *reference.Sequence {
	return s.sequence
}

type command func(s *Session) bool

// Session owns a Matcher and is the only goroutine that touches it.
type Session struct {
	id      string
	opts    Options
	matcher *match.Matcher
	sinks   sinks

	events   chan pitch.Event
	commands chan command
	dropped  atomic.Uint64

	quit     chan struct{}
	quitOnce sync.Once

	// loop-owned, published through snap
	lastPitch  *pitch.Event
	outcomes   []match.Outcome
	matched    int
	mismatched int
	lastErr    error

	mu   sync.RWMutex
	snap Snapshot

	// Notify readers of updates
	UpdateChan chan struct{}
}

// NewSession creates an idle session. Call LoadSequence or LoadFile to give it
// a reference, and Run to start it.
func NewSession(opts Options) *Session {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Tuning.A4 == 0 {
		opts.Tuning = pitch.DefaultTuning()
	}

	s := &Session{
		id:         uuid.New().String(),
		opts:       opts,
		matcher:    match.New(),
		sinks:      sinks(opts.Sinks),
		events:     make(chan pitch.Event, opts.QueueSize),
		commands:   make(chan command, commandQueueSize),
		quit:       make(chan struct{}),
		UpdateChan: make(chan struct{}, 1),
	}
	s.matcher.SetMode(opts.Mode)
	s.publish()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Tuning() pitch.Tuning {
	return s.opts.Tuning
}

// Push queues a pitch event for the next tick. It never blocks: when the
// queue is full the event is dropped and counted.
func (s *Session) Push(ev pitch.Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		n := s.dropped.Add(1)
		debug.LogEvery(50, "session", "event queue full, dropped=%d", n)
		return false
	}
}

// Run drives the session until ctx is cancelled or the source finishes.
// It must be called at most once.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.close()

	var srcDone chan error
	if src := s.opts.Source; src != nil {
		srcDone = make(chan error, 1)
		go func() {
			srcDone <- src.Run(ctx, s.Push)
		}()
		debug.Log("session", "%s: source %s started", s.id, src.Name())
	}

	ticker := time.NewTicker(time.Second / time.Duration(s.opts.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-srcDone:
			s.Tick()
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("source %s: %w", s.opts.Source.Name(), err)
			}
			debug.Log("session", "%s: source finished", s.id)
			return nil
		case <-ticker.C:
			s.Tick()
			if s.opts.StopWhenDone && s.matcher.State() == match.Complete {
				return nil
			}
		}
	}
}

func (s *Session) close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Tick applies pending commands, then every queued pitch event in arrival
// order, and publishes the result. Run calls it on every tick; tests may call
// it directly.
func (s *Session) Tick() {
	changed := false

	for n := len(s.commands); n > 0; n-- {
		if (<-s.commands)(s) {
			changed = true
		}
	}

	for n := len(s.events); n > 0; n-- {
		s.handlePitch(<-s.events)
		changed = true
	}

	if changed {
		s.publish()
		s.notifyUpdate()
	}
}

func (s *Session) handlePitch(ev pitch.Event) {
	before := s.matcher.Cursor().Position
	out, ok := s.matcher.OnPitch(ev)

	if ev.Valid() {
		s.lastPitch = &ev
	}
	s.sinks.PitchDetected(ev)
	if !ok {
		return
	}

	s.record(out)
	s.sinks.Outcome(out)
	if s.matcher.Cursor().Position != before {
		s.sinks.CursorMoved(s.matcher.Cursor(), s.expected())
	}
}

func (s *Session) record(out match.Outcome) {
	if out.Result == match.Matched {
		s.matched++
	} else {
		s.mismatched++
	}
	s.outcomes = append(s.outcomes, out)
	if len(s.outcomes) > recentOutcomes {
		s.outcomes = s.outcomes[len(s.outcomes)-recentOutcomes:]
	}
}

func (s *Session) expected() *reference.Note {
	n, ok := s.matcher.Expected()
	if !ok {
		return nil
	}
	return &n
}

func (s *Session) notifyUpdate() {
	select {
	case s.UpdateChan <- struct{}{}:
	default:
	}
}

func (s *Session) publish() {
	snap := Snapshot{
		ID:         s.id,
		Mode:       s.matcher.Mode(),
		State:      s.matcher.State(),
		Cursor:     s.matcher.Cursor(),
		Expected:   s.expected(),
		Length:     s.matcher.Len(),
		Progress:   s.matcher.Progress(),
		A4:         s.opts.Tuning.A4,
		Outcomes:   append([]match.Outcome(nil), s.outcomes...),
		Matched:    s.matched,
		Mismatched: s.mismatched,
		Dropped:    s.dropped.Load(),
		Notes:      s.matcher.Notes(),
		sequence:   s.matcher.Sequence(),
	}
	if s.lastPitch != nil {
		p := *s.lastPitch
		snap.Pitch = &p
	}
	if seq := s.matcher.Sequence(); seq != nil {
		snap.Reference = seq.Name
		for i := range seq.Tracks {
			snap.Tracks = append(snap.Tracks, seq.Tracks[i].Label())
		}
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Snapshot returns the state published by the last tick.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Session) send(c command) error {
	select {
	case <-s.quit:
		return ErrStopped
	default:
	}
	select {
	case s.commands <- c:
		return nil
	default:
		return ErrBusy
	}
}

// SetMode switches matching on (Auto) or off (Manual).
func (s *Session) SetMode(m match.Mode) error {
	return s.send(func(s *Session) bool {
		return s.applyMode(m)
	})
}

// ToggleMode flips between Auto and Manual.
func (s *Session) ToggleMode() error {
	return s.send(func(s *Session) bool {
		if s.matcher.Mode() == match.Auto {
			return s.applyMode(match.Manual)
		}
		return s.applyMode(match.Auto)
	})
}

func (s *Session) applyMode(m match.Mode) bool {
	if !s.matcher.SetMode(m) {
		return false
	}
	debug.Log("session", "mode -> %s", m)
	s.sinks.ModeChanged(m)
	s.changed()
	return true
}

// SelectTrack rewinds onto another track of the loaded reference.
func (s *Session) SelectTrack(track int) error {
	return s.send(func(s *Session) bool {
		return s.applyLoad(s.matcher.Sequence(), track)
	})
}

// StepTrack moves delta tracks forward or back, wrapping around.
func (s *Session) StepTrack(delta int) error {
	return s.send(func(s *Session) bool {
		seq := s.matcher.Sequence()
		if seq == nil || len(seq.Tracks) == 0 {
			return false
		}
		n := len(seq.Tracks)
		next := ((s.matcher.Cursor().Track+delta)%n + n) % n
		return s.applyLoad(seq, next)
	})
}

// Restart rewinds the active track.
func (s *Session) Restart() error {
	return s.send(func(s *Session) bool {
		return s.applyLoad(s.matcher.Sequence(), s.matcher.Cursor().Track)
	})
}

// LoadSequence replaces the reference. seq must not be modified afterwards.
func (s *Session) LoadSequence(seq *reference.Sequence, track int) error {
	return s.send(func(s *Session) bool {
		return s.applyLoad(seq, track)
	})
}

// LoadFile parses a MIDI file in the background and loads it when done.
// Parse errors show up in the snapshot.
func (s *Session) LoadFile(path string, track int) {
	go func() {
		defer debug.Since("session", "load "+path, time.Now())

		seq, err := reference.ReadFile(path)
		c := func(s *Session) bool {
			if err != nil {
				s.lastErr = err
				return true
			}
			return s.applyLoad(seq, track)
		}
		select {
		case s.commands <- c:
		case <-s.quit:
		}
	}()
}

func (s *Session) applyLoad(seq *reference.Sequence, track int) bool {
	err := s.matcher.Load(seq, track)
	if err != nil && !errors.Is(err, match.ErrEmptyReference) {
		debug.Log("session", "load track %d: %v", track, err)
		s.lastErr = err
		return true
	}

	s.lastErr = err
	s.outcomes = nil
	s.matched, s.mismatched = 0, 0
	s.sinks.ReferenceLoaded(seq, track)
	s.sinks.CursorMoved(s.matcher.Cursor(), s.expected())
	s.changed()
	return true
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.matcher.Mode(), s.matcher.Cursor().Track)
	}
}
