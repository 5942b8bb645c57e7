package pitch

import (
	"fmt"
	"strconv"
	"strings"
)

// Class is one of the twelve equal-tempered pitch classes, C=0 through B=11.
type Class int8

// NoClass marks the absence of a pitch class (nothing heard yet).
const NoClass Class = -1

const (
	C Class = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var classNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatNames = map[string]Class{
	"DB": CSharp,
	"EB": DSharp,
	"GB": FSharp,
	"AB": GSharp,
	"BB": ASharp,
	"CB": B,
	"FB": E,
}

// Valid reports whether c names one of the twelve pitch classes.
func (c Class) Valid() bool {
	return c >= C && c <= B
}

func (c Class) String() string {
	if !c.Valid() {
		return "-"
	}
	return classNames[c]
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClass parses a pitch class name such as "C", "F#" or "Bb".
func ParseClass(s string) (Class, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range classNames {
		if n == name {
			return Class(i), nil
		}
	}
	if c, ok := flatNames[name]; ok {
		return c, nil
	}
	return NoClass, fmt.Errorf("unknown pitch class %q", s)
}

// ParseNote parses a note label such as "C4", "F#3" or "Bb-1" into class and octave.
func ParseNote(s string) (Class, int, error) {
	s = strings.TrimSpace(s)
	split := len(s)
	for i, r := range s {
		if i > 0 && (r == '-' || (r >= '0' && r <= '9')) {
			split = i
			break
		}
	}
	if split == len(s) {
		return NoClass, 0, fmt.Errorf("note %q has no octave", s)
	}
	class, err := ParseClass(s[:split])
	if err != nil {
		return NoClass, 0, err
	}
	octave, err := strconv.Atoi(s[split:])
	if err != nil {
		return NoClass, 0, fmt.Errorf("note %q: bad octave: %w", s, err)
	}
	return class, octave, nil
}

// Label formats a class and octave the way notes are displayed, e.g. "C#4".
func Label(c Class, octave int) string {
	return c.String() + strconv.Itoa(octave)
}

// Key returns the MIDI key number for a class and octave (C4 = 60).
func Key(c Class, octave int) int {
	return (octave+1)*12 + int(c)
}

// FromKey splits a MIDI key number into class and octave.
func FromKey(key int) (Class, int) {
	octave := key/12 - 1
	rem := key % 12
	if rem < 0 {
		rem += 12
		octave--
	}
	return Class(rem), octave
}
