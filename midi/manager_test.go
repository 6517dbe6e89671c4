package midi

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakePorts is a PortLister whose answer tests can change
type fakePorts struct {
	mu        sync.Mutex
	ins, outs []string
	block     chan struct{}
}

func (f *fakePorts) set(ins, outs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ins, f.outs = ins, outs
}

func (f *fakePorts) list() ([]string, []string) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ins, f.outs
}

func drain(dm *DeviceManager) []DeviceEvent {
	var evs []DeviceEvent
	for {
		select {
		case ev := <-dm.Events():
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func TestDeviceManagerScan(t *testing.T) {
	ports := &fakePorts{}
	dm := NewDeviceManager(ports.list, "Virtual LPD8VMCL")

	ports.set([]string{"LPD8", "Virtual LPD8VMCL"}, []string{"LPD8", "Virtual LPD8VMCL"})
	if !dm.Scan() {
		t.Fatal("Scan timed out")
	}
	evs := drain(dm)
	if len(evs) != 1 || evs[0].Type != DeviceConnected || evs[0].Pair.Name != "LPD8" {
		t.Fatalf("events = %+v", evs)
	}

	// No change, no events
	dm.Scan()
	if evs := drain(dm); len(evs) != 0 {
		t.Errorf("unexpected events %+v", evs)
	}

	ports.set([]string{"APC"}, []string{"APC"})
	dm.Scan()
	evs = drain(dm)
	if len(evs) != 2 {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0].Type != DeviceConnected || evs[0].Pair.Name != "APC" {
		t.Errorf("first event = %+v", evs[0])
	}
	if evs[1].Type != DeviceDisconnected || evs[1].Pair.Name != "LPD8" {
		t.Errorf("second event = %+v", evs[1])
	}

	pairs := dm.Pairs()
	if len(pairs) != 1 || pairs[0].Name != "APC" {
		t.Errorf("Pairs = %v", pairs)
	}
}

func TestDeviceManagerScanTimeout(t *testing.T) {
	ports := &fakePorts{block: make(chan struct{})}
	defer close(ports.block)

	dm := NewDeviceManager(ports.list)
	dm.timeout = 10 * time.Millisecond
	if dm.Scan() {
		t.Fatal("Scan reported success while enumeration hangs")
	}
	if len(dm.Pairs()) != 0 {
		t.Errorf("Pairs = %v", dm.Pairs())
	}
}

func TestDeviceManagerRun(t *testing.T) {
	ports := &fakePorts{}
	ports.set([]string{"LPD8"}, []string{"LPD8"})
	dm := NewDeviceManager(ports.list)
	dm.pollRate = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dm.Run(ctx)
		close(done)
	}()

	select {
	case ev := <-dm.Events():
		if ev.Pair.Name != "LPD8" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event from Run")
	}

	ports.set(nil, nil)
	select {
	case ev := <-dm.Events():
		if ev.Type != DeviceDisconnected {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no disconnect event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
