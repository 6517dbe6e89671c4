package bridge

import "sync/atomic"

// Stats counts traffic for the current session
type Stats struct {
	Inbound  uint64 // physical input -> virtual port
	Outbound uint64 // virtual port -> physical output
	Repeated uint64 // repeat loop resends
	Tracked  int    // entries in the repeat store
	Errors   uint64 // absorbed decode/send failures
}

type counters struct {
	inbound  atomic.Uint64
	outbound atomic.Uint64
	repeated atomic.Uint64
	errors   atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Inbound:  c.inbound.Load(),
		Outbound: c.outbound.Load(),
		Repeated: c.repeated.Load(),
		Errors:   c.errors.Load(),
	}
}
