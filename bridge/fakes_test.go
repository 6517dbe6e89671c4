package bridge

import (
	"errors"
	"sync"
	"testing"
	"time"

	"vmidi-bridge/midi"
)

var errBusy = errors.New("device busy")

// fakeVirtual stands in for the OS virtual port. Commands pushed with
// fromHost are returned by Receive; Send records what the host would see.
type fakeVirtual struct {
	host chan midi.Command
	done chan struct{}

	mu     sync.Mutex
	sent   []midi.Command
	closed bool
}

func newFakeVirtual() *fakeVirtual {
	return &fakeVirtual{
		host: make(chan midi.Command, 64),
		done: make(chan struct{}),
	}
}

func (f *fakeVirtual) Name() string { return "fake" }

func (f *fakeVirtual) Send(cmd midi.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return midi.ErrPortClosed
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeVirtual) Receive() (midi.Command, error) {
	select {
	case <-f.done:
		return midi.Command{}, midi.ErrPortClosed
	case cmd := <-f.host:
		return cmd, nil
	}
}

func (f *fakeVirtual) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func (f *fakeVirtual) fromHost(cmds ...midi.Command) {
	for _, c := range cmds {
		f.host <- c
	}
}

func (f *fakeVirtual) Sent() []midi.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]midi.Command(nil), f.sent...)
}

func (f *fakeVirtual) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeInput captures the listener so tests can play the device
type fakeInput struct {
	mu        sync.Mutex
	fn        func(midi.Command)
	listening bool
	closed    bool

	failListen bool
}

func (f *fakeInput) Listen(fn func(midi.Command)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failListen {
		return nil, errBusy
	}
	f.fn = fn
	f.listening = true
	return func() {
		f.mu.Lock()
		f.listening = false
		f.mu.Unlock()
	}, nil
}

func (f *fakeInput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// play delivers cmds the way the driver would, even after stop; the
// forwarder has to cope with that.
func (f *fakeInput) play(cmds ...midi.Command) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	for _, c := range cmds {
		fn(c)
	}
}

func (f *fakeInput) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeOutput records sends; the first failFirst sends fail
type fakeOutput struct {
	mu        sync.Mutex
	sent      []midi.Command
	failFirst int
	calls     int
	closed    bool
}

func (f *fakeOutput) Send(cmd midi.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.closed {
		return midi.ErrPortClosed
	}
	if f.calls <= f.failFirst {
		return errBusy
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeOutput) Sent() []midi.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]midi.Command(nil), f.sent...)
}

func (f *fakeOutput) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeOutput) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeOpener hands out the fakes above, failing at the configured stage
type fakeOpener struct {
	vport *fakeVirtual
	in    *fakeInput
	out   *fakeOutput

	failVirtual, failInput, failOutput bool

	gotName   string
	gotBuffer int
	gotIn     int
	gotOut    int
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		vport: newFakeVirtual(),
		in:    &fakeInput{},
		out:   &fakeOutput{},
	}
}

func (o *fakeOpener) OpenVirtual(name string, bufferSize int) (midi.VirtualPort, error) {
	o.gotName, o.gotBuffer = name, bufferSize
	if o.failVirtual {
		return nil, errBusy
	}
	return o.vport, nil
}

func (o *fakeOpener) OpenInput(index int) (midi.Input, error) {
	o.gotIn = index
	if o.failInput {
		return nil, errBusy
	}
	return o.in, nil
}

func (o *fakeOpener) OpenOutput(index int) (midi.Output, error) {
	o.gotOut = index
	if o.failOutput {
		return nil, errBusy
	}
	return o.out, nil
}

// fakeSelection records persisted selections
type fakeSelection struct {
	mu      sync.Mutex
	current string
	calls   []string
}

func (s *fakeSelection) RememberDevice(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = name
	s.calls = append(s.calls, "remember:"+name)
	return nil
}

func (s *fakeSelection) ForgetDevice() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	s.calls = append(s.calls, "forget")
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func noteOn(note, vel uint8) midi.Command {
	return midi.MustCommand(0x90, note, vel)
}

func cc(controller, value uint8) midi.Command {
	return midi.MustCommand(0xB0, controller, value)
}

func decode(t *testing.T, c midi.Command) midi.Event {
	t.Helper()
	ev, err := midi.Decode(c)
	if err != nil {
		t.Fatalf("decode %s: %v", c, err)
	}
	return ev
}

func count(cmds []midi.Command, want midi.Command) int {
	n := 0
	for _, c := range cmds {
		if c == want {
			n++
		}
	}
	return n
}

func equalCommands(a, b []midi.Command) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
