package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-drum/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

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

// portTimeout bounds port enumeration; some backends hang
const portTimeout = 3 * time.Second

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration

	// keyboard port name fragments to auto-connect; empty means any non-Launchpad input
	keyboards []string
	channel   int
	noKeys    bool
}

// Option configures a DeviceManager
type Option func(*DeviceManager)

// WithPollRate sets how often ports are rescanned
func WithPollRate(d time.Duration) Option {
	return func(dm *DeviceManager) {
		if d > 0 {
			dm.pollRate = d
		}
	}
}

// WithKeyboards restricts keyboard auto-connect to ports whose names contain
// one of names (case-insensitive)
func WithKeyboards(names ...string) Option {
	return func(dm *DeviceManager) {
		dm.keyboards = append(dm.keyboards, names...)
	}
}

// WithInputChannel filters keyboard input to one MIDI channel (1-16)
func WithInputChannel(ch int) Option {
	return func(dm *DeviceManager) {
		dm.channel = ch
	}
}

// WithoutKeyboards only connects Launchpads
func WithoutKeyboards() Option {
	return func(dm *DeviceManager) {
		dm.noKeys = true
	}
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(opts ...Option) *DeviceManager {
	dm := &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

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

// ListPorts enumerates MIDI ports, giving up after timeout
func ListPorts(timeout time.Duration) ([]drivers.In, []drivers.Out, bool) {
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r.inPorts, r.outPorts, true
	case <-time.After(timeout):
		return nil, nil, false
	}
}

func (dm *DeviceManager) scan(ctx context.Context) {
	inPorts, outPorts, ok := ListPorts(portTimeout)
	if !ok {
		// CoreMIDI is hung - skip this scan
		debug.Log("midi", "port scan timed out")
		return
	}

	seenIDs := make(map[string]bool)

	for _, inPort := range inPorts {
		id := inPort.String()
		kind := dm.classify(id)
		if kind == ControllerUnknown {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		c, err := dm.open(kind, inPort, matchingOut(id, outPorts))
		if err != nil {
			debug.Log("midi", "open %s: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = c
		dm.mu.Unlock()
		debug.Info("midi", "connected %s (%s)", id, kind)

		dm.emit(ctx, DeviceEvent{Type: DeviceConnected, Controller: c, ID: id})
	}

	// Check for disconnects
	dm.mu.Lock()
	var gone []string
	for id, c := range dm.controllers {
		if !seenIDs[id] {
			c.Close()
			delete(dm.controllers, id)
			gone = append(gone, id)
		}
	}
	dm.mu.Unlock()

	for _, id := range gone {
		debug.Info("midi", "disconnected %s", id)
		dm.emit(ctx, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
}

func (dm *DeviceManager) emit(ctx context.Context, evt DeviceEvent) {
	select {
	case dm.events <- evt:
	case <-ctx.Done():
	}
}

func (dm *DeviceManager) open(kind ControllerType, in drivers.In, out drivers.Out) (Controller, error) {
	if kind == ControllerLaunchpad {
		return NewLaunchpadController(in.String(), in, out)
	}
	return NewKeyboardController(in.String(), in, dm.channel)
}

// classify decides what, if anything, to open on an input port
func (dm *DeviceManager) classify(name string) ControllerType {
	lower := strings.ToLower(name)
	if isLaunchpad(lower) {
		return ControllerLaunchpad
	}
	// Launchpad DAW ports and loopback ports are never keyboards
	if dm.noKeys || strings.Contains(lower, "launchpad") || strings.Contains(lower, "through") {
		return ControllerUnknown
	}
	if len(dm.keyboards) == 0 {
		return ControllerKeyboard
	}
	for _, k := range dm.keyboards {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return ControllerKeyboard
		}
	}
	return ControllerUnknown
}

func matchingOut(name string, outPorts []drivers.Out) drivers.Out {
	for _, op := range outPorts {
		if strings.EqualFold(op.String(), name) {
			return op
		}
	}
	return nil
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
