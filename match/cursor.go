package match

import (
	"fmt"
	"strings"

	"go-practice/pitch"
)

// Mode selects whether incoming pitches are matched against the reference.
type Mode int

const (
	Auto   Mode = iota // matching active
	Manual             // matching suspended, cursor frozen
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case Manual:
		return "manual"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts "auto" or "manual".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return Auto, nil
	case "manual":
		return Manual, nil
	}
	return Auto, fmt.Errorf("unknown mode %q (want auto or manual)", s)
}

// Cursor is the matcher's position within the active reference track.
type Cursor struct {
	Track    int         `json:"track"`
	Position int         `json:"position"`
	LastSeen pitch.Class `json:"lastSeen"`
	Mode     Mode        `json:"mode"`
}
