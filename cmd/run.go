package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"go-practice/config"
	"go-practice/debug"
	"go-practice/match"
	"go-practice/midi"
	"go-practice/pitch"
	"go-practice/reference"
	"go-practice/server"
	"go-practice/theme"
	"go-practice/trainer"
	"go-practice/tui"
)

const saveDelay = 500 * time.Millisecond

type runOptions struct {
	file    string
	track   int
	melody  string
	play    string
	wav     string
	mode    string
	a4      float64
	http    string
	input   string
	palette string
	rate    int
	debug   bool
	plain   bool
	noSave  bool
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a practice session",
		Example: `  go-practice run --file tune.mid --track 1
  go-practice run --melody "C4 D4 E4 F4 G4" --play "C4 D4 E4 F4 G4" --plain
  go-practice run --file tune.mid --wav take.wav --http :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.file, "file", "f", "", "reference MIDI file (default: last file used)")
	f.IntVarP(&o.track, "track", "t", 0, "track of the reference to follow")
	f.StringVar(&o.melody, "melody", "", `reference given as notes, e.g. "C4 D4 E4"`)
	f.StringVar(&o.play, "play", "", "simulate a player with these notes instead of listening")
	f.StringVar(&o.wav, "wav", "", "take input from a WAV recording")
	f.StringVar(&o.mode, "mode", "", "start in auto or manual mode")
	f.Float64Var(&o.a4, "a4", 0, "tuning reference in Hz")
	f.StringVar(&o.http, "http", "", "serve the HTTP API on this address, e.g. :8080")
	f.StringVar(&o.input, "input", "", "only use MIDI inputs whose name contains this")
	f.StringVar(&o.palette, "palette", "", "GIMP palette (.gpl) for the interface")
	f.IntVar(&o.rate, "rate", 0, "session ticks per second")
	f.BoolVar(&o.debug, "debug", false, "write a debug log to ~/.config/go-practice/debug.log")
	f.BoolVar(&o.plain, "plain", false, "print outcomes as log lines instead of the full-screen view")
	f.BoolVar(&o.noSave, "no-save", false, "do not remember settings")
	cmd.MarkFlagsMutuallyExclusive("file", "melody")
	cmd.MarkFlagsMutuallyExclusive("play", "wav")
	return cmd
}

// apply overrides config values with the flags that were set.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("file") {
		abs, err := filepath.Abs(o.file)
		if err != nil {
			return err
		}
		cfg.LastFile = abs
		cfg.Track = 0
	}
	if f.Changed("track") {
		cfg.Track = o.track
	}
	if f.Changed("mode") {
		m, err := match.ParseMode(o.mode)
		if err != nil {
			return err
		}
		cfg.Mode = m
	}
	if f.Changed("a4") {
		cfg.A4 = o.a4
	}
	if f.Changed("http") {
		cfg.HTTPAddr = o.http
	}
	if f.Changed("input") {
		cfg.InputPort = o.input
	}
	if f.Changed("rate") {
		cfg.TickRate = o.rate
	}
	return nil
}

func (o *runOptions) reference(cfg *config.Config) (*reference.Sequence, error) {
	switch {
	case o.melody != "":
		return reference.Melody("melody", o.melody)
	case cfg.LastFile != "":
		return reference.ReadFile(cfg.LastFile)
	}
	return nil, errors.New("no reference: pass --file or --melody")
}

func (o *runOptions) source(cfg *config.Config, tuning pitch.Tuning, feed *tui.Feed) (trainer.Source, error) {
	switch {
	case o.play != "":
		return trainer.NewScriptSource(tuning, o.play)
	case o.wav != "":
		return &trainer.WAVSource{Path: o.wav, Tuning: tuning}, nil
	}
	src := &trainer.KeyboardSource{Tuning: tuning, Devices: midi.NewDeviceManager(cfg.InputPort)}
	if feed != nil {
		src.OnDevice = feed.Device
	}
	return src, nil
}

func (o *runOptions) run(cmd *cobra.Command) error {
	if o.debug {
		if err := debug.Enable(); err != nil {
			return fmt.Errorf("enable debug log: %w", err)
		}
		defer debug.Disable()
	}

	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "practice",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("config unreadable, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}
	if err := o.apply(cmd, cfg); err != nil {
		return err
	}

	tuning, err := cfg.Tuning()
	if err != nil {
		logger.Warn("ignoring tuning", "err", err, "a4", tuning.A4)
	}

	seq, err := o.reference(cfg)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("track") && (cfg.Track < 0 || cfg.Track >= len(seq.Tracks)) {
		logger.Warn("saved track not in reference, using the first", "track", cfg.Track, "tracks", len(seq.Tracks))
		cfg.Track = 0
	}
	if err := match.Validate(seq, cfg.Track); err != nil {
		return fmt.Errorf("%s: %w", seq.Name, err)
	}

	settings := &saver{o: o, debounced: debounce.New(saveDelay)}

	var feed *tui.Feed
	opts := trainer.Options{
		Tuning:       tuning,
		TickRate:     cfg.Rate(),
		Mode:         cfg.Mode,
		StopWhenDone: o.plain,
		OnChange: func(m match.Mode, track int) {
			cfg.Mode, cfg.Track = m, track
			settings.later(*cfg)
		},
	}
	if o.plain {
		logger.SetLevel(log.InfoLevel)
		opts.Sinks = append(opts.Sinks, trainer.NewLogSink(logger))
	} else {
		feed = tui.NewFeed()
		opts.Sinks = append(opts.Sinks, feed)
	}

	src, err := o.source(cfg, tuning, feed)
	if err != nil {
		return err
	}
	opts.Source = src

	session := trainer.NewSession(opts)
	if err := session.LoadSequence(seq, cfg.Track); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	if cfg.HTTPAddr != "" {
		srv := server.New(session)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				logger.Error("http", "err", err)
			}
		}()
	}

	if o.plain {
		err = session.Run(ctx)
		snap := session.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: matched %d of %d notes, %d wrong\n",
			snap.State, snap.Cursor.Position, snap.Length, snap.Mismatched)
		settings.now(cfg)
		return err
	}

	th, err := o.theme()
	if err != nil {
		return err
	}
	p := tea.NewProgram(tui.NewModel(session, feed, th), tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		err := session.Run(ctx)
		p.Send(tui.DoneMsg{Err: err})
		done <- err
	}()

	_, uiErr := p.Run()
	cancel()
	err = <-done
	settings.now(cfg)
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	return err
}

func (o *runOptions) theme() (*theme.Theme, error) {
	if o.palette == "" {
		return theme.New(nil), nil
	}
	p, err := theme.LoadGPL(o.palette)
	if err != nil {
		return nil, err
	}
	return theme.New(p), nil
}

// saver writes settings changes to disk. Changes made while the session runs
// are debounced; now writes the final settings and disables later writes.
type saver struct {
	o         *runOptions
	debounced func(func())
	mu        sync.Mutex
	stopped   bool
}

func (s *saver) skip() bool {
	return s.o.noSave || s.o.melody != ""
}

func (s *saver) later(c config.Config) {
	if s.skip() {
		return
	}
	s.debounced(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped {
			return
		}
		if err := c.Save(); err != nil {
			debug.Log("config", "save: %v", err)
		}
	})
}

func (s *saver) now(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.skip() {
		return
	}
	if err := cfg.Save(); err != nil {
		debug.Log("config", "save: %v", err)
	}
}
