package pitch

import "math"

// SpectrumBands is the number of log-spaced bands in a Spectrum.
const SpectrumBands = 24

// Spectrum holds band levels in 0..1 relative to the strongest band, lowest
// band first.
type Spectrum [SpectrumBands]float64

// Event is a single pitch detection, produced at the cadence of the input source.
type Event struct {
	Class     Class   `json:"class"`
	Octave    int     `json:"octave"`
	Frequency float64 `json:"frequency"`
	Cents     float64 `json:"cents"`

	// Spectrum is set by audio detectors and is nil for keyboard input.
	// It is shared between copies and must not be modified.
	Spectrum *Spectrum `json:"spectrum,omitempty"`
}

// Label returns the note name with octave, e.g. "A4".
func (e Event) Label() string {
	return Label(e.Class, e.Octave)
}

// Key returns the MIDI key number of the event's nearest equal-tempered pitch.
func (e Event) Key() int {
	return Key(e.Class, e.Octave)
}

// Valid reports whether the event carries a real pitch. Malformed events are
// dropped by consumers rather than treated as errors.
func (e Event) Valid() bool {
	if !e.Class.Valid() {
		return false
	}
	f := e.Frequency
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
