package pitch

import (
	"fmt"
	"math"
)

const (
	DefaultA4 = 440.0
	MinA4     = 400.0
	MaxA4     = 480.0
)

// ConfigError reports an unusable tuning reference. It is never fatal: the
// caller logs it and carries on with the default.
type ConfigError struct {
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid A4 reference %g: %s", e.Value, e.Reason)
}

// Tuning maps frequencies to pitch classes relative to an A4 reference.
type Tuning struct {
	A4 float64
}

// DefaultTuning returns A4 = 440 Hz.
func DefaultTuning() Tuning {
	return Tuning{A4: DefaultA4}
}

// NewTuning validates a4. On failure it returns the default tuning together
// with a *ConfigError so callers can log and continue.
func NewTuning(a4 float64) (Tuning, error) {
	switch {
	case math.IsNaN(a4) || math.IsInf(a4, 0):
		return DefaultTuning(), &ConfigError{Value: a4, Reason: "not a number"}
	case a4 < MinA4 || a4 > MaxA4:
		return DefaultTuning(), &ConfigError{
			Value:  a4,
			Reason: fmt.Sprintf("outside %g-%g Hz", MinA4, MaxA4),
		}
	}
	return Tuning{A4: a4}, nil
}

// Frequency returns the tuned frequency of a MIDI key.
func (t Tuning) Frequency(key int) float64 {
	return t.A4 * math.Pow(2, float64(key-69)/12)
}

// FromKey builds the event a perfectly tuned MIDI key would produce.
func (t Tuning) FromKey(key int) Event {
	class, octave := FromKey(key)
	return Event{
		Class:     class,
		Octave:    octave,
		Frequency: t.Frequency(key),
	}
}

// Event maps a frequency to the nearest pitch and its deviation in cents.
func (t Tuning) Event(freq float64) (Event, bool) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return Event{}, false
	}
	semitones := 12 * math.Log2(freq/t.A4)
	nearest := math.Round(semitones)
	class, octave := FromKey(69 + int(nearest))
	return Event{
		Class:     class,
		Octave:    octave,
		Frequency: freq,
		Cents:     100 * (semitones - nearest),
	}, true
}
