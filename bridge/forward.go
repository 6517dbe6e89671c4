package bridge

import (
	"context"
	"errors"
	"time"

	"vmidi-bridge/debug"
	"vmidi-bridge/midi"
)

// DefaultRepeatInterval is the repeat loop cadence
const DefaultRepeatInterval = 50 * time.Millisecond

// inbound returns the physical input callback: every command goes to the
// virtual port as is. A send to a released port is counted and dropped.
func inbound(vport midi.Sender, stats *counters) func(midi.Command) {
	return func(cmd midi.Command) {
		if err := vport.Send(cmd); err != nil {
			stats.errors.Add(1)
			debug.LogEvery(50, "inbound", "send %s: %v", cmd, err)
			return
		}
		stats.inbound.Add(1)
	}
}

// runOutbound relays host commands to the physical output and records
// tracked state in store. It returns once the virtual port is closed.
func runOutbound(ctx context.Context, vport midi.VirtualPort, store *RepeatStore, out midi.Sender, stats *counters) {
	for {
		cmd, err := vport.Receive()
		if err != nil {
			if errors.Is(err, midi.ErrPortClosed) || ctx.Err() != nil {
				debug.Log("outbound", "stopped: %v", err)
				return
			}
			stats.errors.Add(1)
			debug.LogEvery(50, "outbound", "receive: %v", err)
			continue
		}

		if ev, err := midi.Decode(cmd); err != nil {
			stats.errors.Add(1)
			debug.LogEvery(50, "outbound", "not tracked: %v", err)
		} else {
			store.Upsert(ev)
		}

		if err := out.Send(cmd); err != nil {
			stats.errors.Add(1)
			debug.LogEvery(50, "outbound", "send %s: %v", cmd, err)
			continue
		}
		stats.outbound.Add(1)
	}
}

// runRepeat re-sends the store contents every interval until ctx is done.
func runRepeat(ctx context.Context, store *RepeatStore, out midi.Sender, interval time.Duration, stats *counters) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			debug.Log("repeat", "stopped")
			return
		case <-ticker.C:
			sent, failed := store.Flush(out)
			stats.repeated.Add(uint64(sent))
			if failed > 0 {
				stats.errors.Add(uint64(failed))
				debug.LogEvery(100, "repeat", "%d sends failed this tick", failed)
			}
		}
	}
}
