package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vmidi-bridge/debug"
	"vmidi-bridge/midi"
)

// Defaults for the virtual port resource
const (
	DefaultPortName   = "Virtual LPD8VMCL"
	DefaultBufferSize = 65535
)

var ErrAlreadyActive = errors.New("bridge: session already active")

// Opener acquires the port resources for a session. midi.RtMidi is the
// production implementation.
type Opener interface {
	OpenVirtual(name string, bufferSize int) (midi.VirtualPort, error)
	OpenInput(index int) (midi.Input, error)
	OpenOutput(index int) (midi.Output, error)
}

// SelectionStore persists the last started device
type SelectionStore interface {
	RememberDevice(name string) error
	ForgetDevice() error
}

// State of the controller
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "ACTIVE"
	}
	return "IDLE"
}

// Option configures a Controller
type Option func(*Controller)

// WithPort sets the virtual port name and receive buffer size.
func WithPort(name string, bufferSize int) Option {
	return func(c *Controller) {
		if name != "" {
			c.portName = name
		}
		if bufferSize > 0 {
			c.bufferSize = bufferSize
		}
	}
}

// WithSelection persists the device on start and forgets it on reset.
func WithSelection(sel SelectionStore) Option {
	return func(c *Controller) { c.selection = sel }
}

// withRepeatInterval shortens the cadence in tests
func withRepeatInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// session is everything owned while Active
type session struct {
	pair   midi.DevicePair
	vport  midi.VirtualPort
	in     midi.Input
	out    midi.Output
	stopIn func()
	store  *RepeatStore
	stats  *counters
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Controller runs at most one bridging session at a time
type Controller struct {
	opener     Opener
	portName   string
	bufferSize int
	interval   time.Duration
	selection  SelectionStore

	mu      sync.Mutex
	session *session
}

func NewController(opener Opener, opts ...Option) *Controller {
	c := &Controller{
		opener:     opener,
		portName:   DefaultPortName,
		bufferSize: DefaultBufferSize,
		interval:   DefaultRepeatInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PortName is the virtual port's display name
func (c *Controller) PortName() string { return c.portName }

// Start acquires the virtual port and the device pair and starts the
// inbound, outbound and repeat paths. On failure everything acquired so far
// is released and the controller stays Idle.
func (c *Controller) Start(pair midi.DevicePair) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return fmt.Errorf("start %q: %w", pair.Name, ErrAlreadyActive)
	}

	s := &session{pair: pair}
	defer func() {
		if err != nil {
			s.release()
		}
	}()

	if s.vport, err = c.opener.OpenVirtual(c.portName, c.bufferSize); err != nil {
		return fmt.Errorf("create virtual port %q: %w", c.portName, err)
	}
	if s.in, err = c.opener.OpenInput(pair.In); err != nil {
		return fmt.Errorf("open input of %q: %w", pair.Name, err)
	}
	if s.out, err = c.opener.OpenOutput(pair.Out); err != nil {
		return fmt.Errorf("open output of %q: %w", pair.Name, err)
	}

	s.store = NewRepeatStore()
	s.stats = &counters{}
	if s.stopIn, err = s.in.Listen(inbound(s.vport, s.stats)); err != nil {
		return fmt.Errorf("listen on %q: %w", pair.Name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		runOutbound(ctx, s.vport, s.store, s.out, s.stats)
	}()
	go func() {
		defer s.wg.Done()
		runRepeat(ctx, s.store, s.out, c.interval, s.stats)
	}()

	c.session = s
	debug.Log("session", "started %q <-> %q", pair.Name, c.portName)

	if c.selection != nil {
		if err := c.selection.RememberDevice(pair.Name); err != nil {
			debug.Error("session", "remember device: %v", err)
		}
	}
	return nil
}

// Reset stops the session, releases its resources and forgets the
// persisted device. No-op when Idle.
func (c *Controller) Reset() {
	c.stop(true)
}

// Close stops the session like Reset but keeps the persisted device, so the
// next run resumes it. Used on application exit.
func (c *Controller) Close() {
	c.stop(false)
}

func (c *Controller) stop(forget bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	s.release()
	debug.Log("session", "stopped %q (forget=%v)", s.pair.Name, forget)

	if forget && c.selection != nil {
		if err := c.selection.ForgetDevice(); err != nil {
			debug.Error("session", "forget device: %v", err)
		}
	}
}

// release tears down whatever was acquired. Closing the virtual port
// unblocks the outbound loop; the loops are waited for before the physical
// ports close.
func (s *session) release() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stopIn != nil {
		s.stopIn()
	}
	if s.vport != nil {
		if err := s.vport.Close(); err != nil {
			debug.Error("session", "close virtual port: %v", err)
		}
	}
	s.wg.Wait()
	if s.in != nil {
		if err := s.in.Close(); err != nil {
			debug.Error("session", "close input: %v", err)
		}
	}
	if s.out != nil {
		if err := s.out.Close(); err != nil {
			debug.Error("session", "close output: %v", err)
		}
	}
	if s.store != nil {
		s.store.Clear()
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Idle
	}
	return Active
}

// Device returns the active pair
func (c *Controller) Device() (midi.DevicePair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return midi.DevicePair{}, false
	}
	return c.session.pair, true
}

// Tracked returns the repeat store contents, nil when Idle
func (c *Controller) Tracked() []midi.Event {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.store.Snapshot()
}

// Stats returns the active session's counters
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return Stats{}
	}
	st := s.stats.snapshot()
	st.Tracked = s.store.Len()
	return st
}
