package midi

// NoteEvent is sent when a note is played on a keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
	// Milliseconds since the port was opened, as reported by the driver.
	Timestamp int32
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string

	// Note-ons from the device. Closed by Close.
	NoteEvents() <-chan NoteEvent

	// Lifecycle
	Close() error
}
