package pitch

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	defaultMinHz     = 60.0
	defaultMaxHz     = 1500.0
	defaultThreshold = 0.01 // RMS below this is treated as silence
)

// Detector estimates the dominant pitch of a mono frame by picking the
// strongest spectral peak. It is a simple monophonic estimator and makes no
// attempt to resolve octave errors on harmonic-rich input.
type Detector struct {
	SampleRate int
	MinHz      float64
	MaxHz      float64
	Threshold  float64

	tuning Tuning
	win    []float64
}

// NewDetector creates a detector for frames of frameSize samples.
func NewDetector(sampleRate, frameSize int, tuning Tuning) *Detector {
	return &Detector{
		SampleRate: sampleRate,
		MinHz:      defaultMinHz,
		MaxHz:      defaultMaxHz,
		Threshold:  defaultThreshold,
		tuning:     tuning,
		win:        window.Hann(frameSize),
	}
}

// FrameSize returns the number of samples Detect expects.
func (d *Detector) FrameSize() int {
	return len(d.win)
}

// Detect returns the pitch of frame, or false for silence or no usable peak.
func (d *Detector) Detect(frame []float64) (Event, bool) {
	n := len(d.win)
	if len(frame) < n || d.SampleRate <= 0 {
		return Event{}, false
	}

	var sum float64
	for _, s := range frame[:n] {
		sum += s * s
	}
	if math.Sqrt(sum/float64(n)) < d.Threshold {
		return Event{}, false
	}

	windowed := make([]float64, n)
	for i := range windowed {
		windowed[i] = frame[i] * d.win[i]
	}
	spectrum := fft.FFTReal(windowed)

	binHz := float64(d.SampleRate) / float64(n)
	lo := int(math.Ceil(d.MinHz / binHz))
	hi := int(math.Floor(d.MaxHz / binHz))
	if lo < 1 {
		lo = 1
	}
	if hi > n/2-1 {
		hi = n/2 - 1
	}
	if lo >= hi {
		return Event{}, false
	}

	peak := lo
	peakMag := 0.0
	for k := lo; k <= hi; k++ {
		if m := cmplx.Abs(spectrum[k]); m > peakMag {
			peak, peakMag = k, m
		}
	}
	if peakMag == 0 {
		return Event{}, false
	}

	// parabolic interpolation around the peak bin
	a := cmplx.Abs(spectrum[peak-1])
	b := peakMag
	c := cmplx.Abs(spectrum[peak+1])
	offset := 0.0
	if denom := a - 2*b + c; denom != 0 {
		offset = 0.5 * (a - c) / denom
	}

	ev, ok := d.tuning.Event((float64(peak) + offset) * binHz)
	if ok {
		ev.Spectrum = d.bands(spectrum, lo, hi, binHz, peakMag)
	}
	return ev, ok
}

// band returns the log-spaced band of freq between MinHz and MaxHz.
func (d *Detector) band(freq float64) int {
	b := int(SpectrumBands * math.Log(freq/d.MinHz) / math.Log(d.MaxHz/d.MinHz))
	return max(0, min(b, SpectrumBands-1))
}

// bandCenter is the geometric centre frequency of band b.
func (d *Detector) bandCenter(b int) float64 {
	ratio := d.MaxHz / d.MinHz
	return d.MinHz * math.Pow(ratio, (float64(b)+0.5)/SpectrumBands)
}

func (d *Detector) bands(spectrum []complex128, lo, hi int, binHz, peakMag float64) *Spectrum {
	var sp Spectrum
	var filled [SpectrumBands]bool
	for k := lo; k <= hi; k++ {
		b := d.band(float64(k) * binHz)
		sp[b] = max(sp[b], cmplx.Abs(spectrum[k]))
		filled[b] = true
	}
	// low bands can be narrower than a bin
	for b := range sp {
		if !filled[b] {
			k := int(math.Round(d.bandCenter(b) / binHz))
			sp[b] = cmplx.Abs(spectrum[max(lo, min(k, hi))])
		}
		sp[b] /= peakMag
	}
	return &sp
}
