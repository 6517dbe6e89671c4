package midi

import (
	"errors"
	"strings"
)

// ErrPortClosed is returned by port operations after Close.
var ErrPortClosed = errors.New("midi: port closed")

// Sender accepts raw commands
type Sender interface {
	Send(cmd Command) error
}

// VirtualPort is the OS-visible port the host application opens.
// Receive blocks until the host sends a command or the port is closed,
// in which case it returns ErrPortClosed.
type VirtualPort interface {
	Sender
	Receive() (Command, error)
	Name() string
	Close() error
}

// Input is the physical device's input side. Listen installs fn and starts
// delivering commands; the returned stop func detaches it.
type Input interface {
	Listen(fn func(Command)) (stop func(), err error)
	Close() error
}

// Output is the physical device's output side
type Output interface {
	Sender
	Close() error
}

// DevicePair is one physical device available on both the input and the
// output side, addressed by port index.
type DevicePair struct {
	Name string
	In   int
	Out  int
}

func (p DevicePair) String() string { return p.Name }

// Pairs matches input and output port names. Only names present on both
// sides are returned, in input order. Names containing any of exclude are
// skipped (drivers decorate virtual port names with client ids).
func Pairs(ins, outs []string, exclude ...string) []DevicePair {
	outIdx := make(map[string]int, len(outs))
	for i, name := range outs {
		if _, ok := outIdx[name]; !ok {
			outIdx[name] = i
		}
	}

	var pairs []DevicePair
	seen := make(map[string]bool)
	for i, name := range ins {
		if seen[name] || excluded(name, exclude) {
			continue
		}
		j, ok := outIdx[name]
		if !ok {
			continue
		}
		seen[name] = true
		pairs = append(pairs, DevicePair{Name: name, In: i, Out: j})
	}
	return pairs
}

// FindPair looks a pair up by name.
func FindPair(pairs []DevicePair, name string) (DevicePair, bool) {
	for _, p := range pairs {
		if p.Name == name {
			return p, true
		}
	}
	return DevicePair{}, false
}

func excluded(name string, patterns []string) bool {
	for _, pat := range patterns {
		if pat != "" && strings.Contains(name, pat) {
			return true
		}
	}
	return false
}
