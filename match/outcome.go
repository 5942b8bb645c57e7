package match

import (
	"fmt"

	"go-practice/pitch"
)

// Result is the verdict for a single onset.
type Result int

const (
	Matched Result = iota
	Mismatched
)

func (r Result) String() string {
	if r == Matched {
		return "matched"
	}
	return "mismatched"
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Onset is a new note start, declared on each pitch-class transition.
type Onset struct {
	Class  pitch.Class
	Octave int
	Cents  float64
}

func (o Onset) Label() string {
	return pitch.Label(o.Class, o.Octave)
}

// Outcome reports how one onset compared with the expected note.
type Outcome struct {
	ExpectedIndex int     `json:"expectedIndex"`
	Expected      string  `json:"expected"`
	Observed      string  `json:"observed"`
	Result        Result  `json:"result"`
	Cents         float64 `json:"cents"`
}

func (o Outcome) String() string {
	if o.Result == Matched {
		return fmt.Sprintf("%d: %s - Nice!", o.ExpectedIndex, o.Observed)
	}
	return fmt.Sprintf("%d: Sorry, that's a %s, not a %s", o.ExpectedIndex, o.Observed, o.Expected)
}
