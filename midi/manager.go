package midi

import (
	"context"
	"sync"
	"time"

	"vmidi-bridge/debug"
)

// DeviceEvent is emitted when paired devices appear/disappear
type DeviceEvent struct {
	Type DeviceEventType
	Pair DevicePair
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

// PortLister enumerates input and output port names
type PortLister func() (ins, outs []string)

// DeviceManager polls the driver for device pairs (hot-plug detection)
type DeviceManager struct {
	list     PortLister
	exclude  []string
	pairs    []DevicePair
	mu       sync.RWMutex
	events   chan DeviceEvent
	pollRate time.Duration
	timeout  time.Duration
}

// NewDeviceManager creates a device manager. Ports whose name contains any of
// exclude (our own virtual port) never show up as pairs.
func NewDeviceManager(list PortLister, exclude ...string) *DeviceManager {
	if list == nil {
		list = PortNames
	}
	return &DeviceManager{
		list:     list,
		exclude:  exclude,
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
		timeout:  3 * time.Second,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Pairs returns a snapshot of the current device pairs
func (dm *DeviceManager) Pairs() []DevicePair {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make([]DevicePair, len(dm.pairs))
	copy(out, dm.pairs)
	return out
}

// Scan enumerates ports once and updates the pair list, emitting events for
// changes. It returns false when enumeration timed out.
func (dm *DeviceManager) Scan() bool {
	type portsResult struct {
		ins, outs []string
	}

	// Enumeration can hang on some backends (CoreMIDI)
	ch := make(chan portsResult, 1)
	go func() {
		ins, outs := dm.list()
		ch <- portsResult{ins: ins, outs: outs}
	}()

	var result portsResult
	select {
	case result = <-ch:
	case <-time.After(dm.timeout):
		debug.Log("devices", "port enumeration timed out after %s", dm.timeout)
		return false
	}

	current := Pairs(result.ins, result.outs, dm.exclude...)

	dm.mu.Lock()
	previous := dm.pairs
	dm.pairs = current
	dm.mu.Unlock()

	for _, p := range current {
		if _, ok := FindPair(previous, p.Name); !ok {
			dm.emit(DeviceEvent{Type: DeviceConnected, Pair: p})
		}
	}
	for _, p := range previous {
		if _, ok := FindPair(current, p.Name); !ok {
			dm.emit(DeviceEvent{Type: DeviceDisconnected, Pair: p})
		}
	}
	return true
}

func (dm *DeviceManager) emit(ev DeviceEvent) {
	debug.Log("devices", "%s %s (in=%d out=%d)", ev.Type, ev.Pair.Name, ev.Pair.In, ev.Pair.Out)
	select {
	case dm.events <- ev:
	default:
		// Nobody is draining; Pairs() still reflects the change
	}
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.Scan()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.Scan()
		}
	}
}
