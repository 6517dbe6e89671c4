package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"vmidi-bridge/debug"
)

// RtMidi opens real ports through the registered driver. The binary must
// import gitlab.com/gomidi/midi/v2/drivers/rtmididrv for virtual ports.
type RtMidi struct{}

func (RtMidi) OpenVirtual(name string, bufferSize int) (VirtualPort, error) {
	return OpenVirtualPort(name, bufferSize)
}

// OpenInput opens the input port at index.
func (RtMidi) OpenInput(index int) (Input, error) {
	in, err := gomidi.InPort(index)
	if err != nil {
		return nil, fmt.Errorf("input %d: %w", index, err)
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("open input %q: %w", in.String(), err)
	}
	return &physicalIn{in: in}, nil
}

// OpenOutput opens the output port at index.
func (RtMidi) OpenOutput(index int) (Output, error) {
	out, err := gomidi.OutPort(index)
	if err != nil {
		return nil, fmt.Errorf("output %d: %w", index, err)
	}
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("open output %q: %w", out.String(), err)
	}
	return &physicalOut{out: out}, nil
}

// PortNames lists input and output port names in driver order.
func PortNames() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// -------------------- virtual port --------------------

// virtualDriver is implemented by rtmididrv.Driver
type virtualDriver interface {
	OpenVirtualIn(name string) (drivers.In, error)
	OpenVirtualOut(name string) (drivers.Out, error)
}

type virtualPort struct {
	name string
	in   drivers.In
	out  drivers.Out
	stop func()

	cmds chan Command
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// OpenVirtualPort creates a virtual in/out port pair visible to other
// applications under name. bufferSize is the receive buffer in bytes;
// commands arriving while it is full are dropped.
func OpenVirtualPort(name string, bufferSize int) (VirtualPort, error) {
	drv, ok := drivers.Get().(virtualDriver)
	if !ok {
		return nil, fmt.Errorf("registered MIDI driver cannot create virtual ports")
	}

	// Receives what the host sends to the port
	in, err := drv.OpenVirtualIn(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual MIDI input port '%s': %w", name, err)
	}

	// Sends to the host
	out, err := drv.OpenVirtualOut(name)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("failed to create virtual MIDI output port '%s': %w", name, err)
	}

	vp, err := newVirtualPort(name, in, out, bufferSize)
	if err != nil {
		in.Close()
		out.Close()
		return nil, err
	}
	debug.Log("vport", "virtual MIDI port '%s' is now available", name)
	return vp, nil
}

// newVirtualPort starts listening on in; bufferSize bytes hold
// bufferSize/4 commands.
func newVirtualPort(name string, in drivers.In, out drivers.Out, bufferSize int) (*virtualPort, error) {
	capacity := bufferSize / len(Command{}.raw)
	if capacity < 1 {
		capacity = 1
	}
	vp := &virtualPort{
		name: name,
		in:   in,
		out:  out,
		cmds: make(chan Command, capacity),
		done: make(chan struct{}),
	}

	stop, err := in.Listen(vp.onMessage, drivers.ListenConfig{
		OnErr: func(err error) {
			debug.Error("vport", "listen %q: %v", name, err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start listening on virtual port '%s': %w", name, err)
	}
	vp.stop = stop
	return vp, nil
}

func (vp *virtualPort) onMessage(msg []byte, _ int32) {
	cmd, err := NewCommand(msg)
	if err != nil {
		debug.LogEvery(50, "vport", "dropped % X: %v", msg, err)
		return
	}
	if vp.isDone() {
		return
	}
	select {
	case vp.cmds <- cmd:
	default:
		debug.LogEvery(50, "vport", "receive buffer full, dropped %s", cmd)
	}
}

func (vp *virtualPort) Name() string { return vp.name }

func (vp *virtualPort) Send(cmd Command) error {
	vp.mu.RLock()
	defer vp.mu.RUnlock()
	if vp.closed {
		return ErrPortClosed
	}
	return vp.out.Send(cmd.Bytes())
}

func (vp *virtualPort) isDone() bool {
	select {
	case <-vp.done:
		return true
	default:
		return false
	}
}

func (vp *virtualPort) Receive() (Command, error) {
	if vp.isDone() {
		return Command{}, ErrPortClosed
	}
	select {
	case <-vp.done:
		return Command{}, ErrPortClosed
	case cmd := <-vp.cmds:
		return cmd, nil
	}
}

// Close releases both sides and unblocks any pending Receive.
func (vp *virtualPort) Close() error {
	vp.mu.Lock()
	defer vp.mu.Unlock()
	if vp.closed {
		return nil
	}
	vp.closed = true
	close(vp.done)

	if vp.stop != nil {
		vp.stop()
	}
	errIn := vp.in.Close()
	errOut := vp.out.Close()
	debug.Log("vport", "closed virtual MIDI port '%s'", vp.name)
	if errIn != nil {
		return errIn
	}
	return errOut
}

// -------------------- physical ports --------------------

type physicalIn struct {
	in drivers.In
}

func (p *physicalIn) Listen(fn func(Command)) (func(), error) {
	name := p.in.String()
	stop, err := p.in.Listen(func(msg []byte, _ int32) {
		cmd, err := NewCommand(msg)
		if err != nil {
			debug.LogEvery(50, "midi-in", "dropped % X from %s: %v", msg, name, err)
			return
		}
		fn(cmd)
	}, drivers.ListenConfig{
		OnErr: func(err error) {
			debug.Error("midi-in", "listener error on %s: %v", name, err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}
	return stop, nil
}

func (p *physicalIn) Close() error {
	return p.in.Close()
}

type physicalOut struct {
	out drivers.Out

	mu     sync.RWMutex
	closed bool
}

func (p *physicalOut) Send(cmd Command) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPortClosed
	}
	return p.out.Send(cmd.Bytes())
}

func (p *physicalOut) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.out.Close()
}
