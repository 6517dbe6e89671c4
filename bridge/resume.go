package bridge

import (
	"errors"
	"fmt"

	"vmidi-bridge/midi"
)

// ErrDeviceNotFound is returned by StartByName when no pair has the name
var ErrDeviceNotFound = errors.New("bridge: device not found")

// InUseHint is shown next to start failures; a device held by another
// program is the usual cause.
const InUseHint = "This could be caused by the MIDI device being in use by another program."

// StartByName starts a session on the pair called name, as used when
// resuming the persisted selection.
func (c *Controller) StartByName(pairs []midi.DevicePair, name string) error {
	pair, ok := midi.FindPair(pairs, name)
	if !ok {
		return fmt.Errorf("could not find MIDI device with name %q: %w", name, ErrDeviceNotFound)
	}
	return c.Start(pair)
}
