package match

import (
	"errors"
	"fmt"
)

var (
	ErrNoSequence     = errors.New("no reference sequence")
	ErrTrackRange     = errors.New("track index out of range")
	ErrEmptyReference = errors.New("reference track has no notes")
	ErrBadNote        = errors.New("malformed reference note")
)

// LoadError is returned by Load when a reference cannot be used. Index is the
// offending note, or -1 when the problem is not tied to one note.
type LoadError struct {
	Track int
	Index int
	Err   error
}

func (e *LoadError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("load track %d: note %d: %v", e.Track, e.Index, e.Err)
	}
	return fmt.Sprintf("load track %d: %v", e.Track, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
