package midi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"go-practice/debug"
)

// ScanTimeout bounds a port scan; CoreMIDI can hang.
const ScanTimeout = 3 * time.Second

var ErrScanTimeout = errors.New("midi port scan timed out")

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

// DeviceManager handles hot-plug detection of MIDI keyboards
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	filter      string

	listPorts func() ([]drivers.In, error)
	open      func(id string, in drivers.In) (Controller, error)
}

// NewDeviceManager creates a new device manager. When filter is non-empty only
// input ports whose name contains it (case-insensitive) are connected.
func NewDeviceManager(filter string) *DeviceManager {
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		filter:      strings.ToLower(filter),
		listPorts:   inPorts,
		open: func(id string, in drivers.In) (Controller, error) {
			return NewKeyboardController(id, in)
		},
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	copy := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		copy[k] = v
	}
	return copy
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

// Wants reports whether a port with this name should be connected.
func (dm *DeviceManager) Wants(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "midi through") {
		return false
	}
	return dm.filter == "" || strings.Contains(lower, dm.filter)
}

func (dm *DeviceManager) scan(ctx context.Context) {
	ports, err := dm.listPorts()
	if err != nil {
		// User may need to run: sudo killall coreaudiod midiserver
		debug.Log("midi", "scan skipped: %v", err)
		return
	}

	seenIDs := make(map[string]bool)

	for _, in := range ports {
		id := in.String()
		if !dm.Wants(id) {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		c, err := dm.open(id, in)
		if err != nil {
			debug.Log("midi", "open %s: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = c
		dm.mu.Unlock()

		debug.Log("midi", "connected %s", id)
		if !dm.emit(ctx, DeviceEvent{Type: DeviceConnected, Controller: c, ID: id}) {
			return
		}
	}

	// Check for disconnects
	dm.mu.Lock()
	var gone []DeviceEvent
	for id, c := range dm.controllers {
		if !seenIDs[id] {
			c.Close()
			delete(dm.controllers, id)
			gone = append(gone, DeviceEvent{Type: DeviceDisconnected, ID: id})
		}
	}
	dm.mu.Unlock()

	for _, ev := range gone {
		debug.Log("midi", "disconnected %s", ev.ID)
		if !dm.emit(ctx, ev) {
			return
		}
	}
}

func (dm *DeviceManager) emit(ctx context.Context, ev DeviceEvent) bool {
	select {
	case dm.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for id, c := range dm.controllers {
		c.Close()
		delete(dm.controllers, id)
	}
}

// inPorts lists the input ports, giving up after ScanTimeout.
func inPorts() ([]drivers.In, error) {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	select {
	case ports := <-ch:
		return ports, nil
	case <-time.After(ScanTimeout):
		return nil, ErrScanTimeout
	}
}

// ListInPorts returns the names of the available input ports.
func ListInPorts() ([]string, error) {
	ports, err := inPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	return names, nil
}
