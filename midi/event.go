package midi

import (
	"errors"
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI status nibbles the bridge cares about
const (
	NoteOff uint8 = 0x80
	NoteOn  uint8 = 0x90
	CC      uint8 = 0xB0
)

var (
	ErrCommandSize = errors.New("midi: command must be 1 to 4 bytes")
	ErrMalformed   = errors.New("midi: malformed command")
)

// Command is the raw wire unit exchanged with both ports: a status byte, up
// to two data bytes and a zero pad byte, plus how many of the four bytes are
// significant.
type Command struct {
	raw [4]byte
	n   uint8
}

// NewCommand copies msg into a Command.
func NewCommand(msg []byte) (Command, error) {
	if len(msg) == 0 || len(msg) > 4 {
		return Command{}, fmt.Errorf("%w: got %d", ErrCommandSize, len(msg))
	}
	var c Command
	copy(c.raw[:], msg)
	c.n = uint8(len(msg))
	return c, nil
}

// MustCommand is NewCommand for literals; it panics on a bad length.
func MustCommand(b ...byte) Command {
	c, err := NewCommand(b)
	if err != nil {
		panic(err)
	}
	return c
}

// Bytes returns the significant bytes.
func (c Command) Bytes() []byte {
	b := make([]byte, c.n)
	copy(b, c.raw[:c.n])
	return b
}

// Raw returns the full 4-byte buffer.
func (c Command) Raw() [4]byte { return c.raw }

func (c Command) Len() int { return int(c.n) }

func (c Command) IsZero() bool { return c.n == 0 }

func (c Command) String() string {
	return fmt.Sprintf("% X", c.raw[:c.n])
}

// EventKind tags the decoded variant
type EventKind uint8

const (
	KindOther EventKind = iota
	KindNote
	KindControlChange
)

func (k EventKind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindControlChange:
		return "cc"
	default:
		return "other"
	}
}

// RepeatKey identifies one physical control: the message kind plus the note
// or controller number. Channel is not part of it.
type RepeatKey struct {
	Kind   EventKind
	Number uint8
}

func (k RepeatKey) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.Number)
}

// Event is a decoded Command
type Event struct {
	Kind    EventKind
	Status  uint8 // full status byte, channel included
	Channel uint8
	Number  uint8 // note or controller number
	Value   uint8 // velocity or controller value
	Raw     Command
}

// Decode interprets c. Note-on, note-off and control-change become tracked
// kinds; any other well-formed message decodes to KindOther.
func Decode(c Command) (Event, error) {
	if c.IsZero() {
		return Event{}, fmt.Errorf("%w: empty", ErrMalformed)
	}
	status := c.raw[0]
	if status < 0x80 {
		return Event{}, fmt.Errorf("%w: no status byte in %s", ErrMalformed, c)
	}
	need := messageLen(status)
	if int(c.n) < need {
		return Event{}, fmt.Errorf("%w: %s needs %d bytes", ErrMalformed, c, need)
	}
	for _, b := range c.raw[1:need] {
		if b > 0x7F {
			return Event{}, fmt.Errorf("%w: data byte %02X in %s", ErrMalformed, b, c)
		}
	}

	ev := Event{Kind: KindOther, Status: status, Raw: c}
	if status >= 0xF0 {
		return ev, nil
	}
	ev.Channel = status & 0x0F
	if need > 1 {
		ev.Number = c.raw[1]
	}
	if need > 2 {
		ev.Value = c.raw[2]
	}
	switch status & 0xF0 {
	case NoteOff, NoteOn:
		ev.Kind = KindNote
	case CC:
		ev.Kind = KindControlChange
	}
	return ev, nil
}

// messageLen is the wire length implied by a status byte.
func messageLen(status uint8) int {
	switch status & 0xF0 {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 3
	case 0xC0, 0xD0:
		return 2
	}
	switch status {
	case 0xF2:
		return 3
	case 0xF1, 0xF3:
		return 2
	}
	return 1
}

// Key returns the repeat key for tracked kinds.
func (e Event) Key() (RepeatKey, bool) {
	if e.Kind != KindNote && e.Kind != KindControlChange {
		return RepeatKey{}, false
	}
	return RepeatKey{Kind: e.Kind, Number: e.Number}, true
}

// IsNoteOn reports a sounding note (note-on with non-zero velocity).
func (e Event) IsNoteOn() bool {
	return e.Kind == KindNote && e.Status&0xF0 == NoteOn && e.Value > 0
}

// Short re-encodes the event in short-message form.
func (e Event) Short() Command {
	switch e.Kind {
	case KindNote, KindControlChange:
		return MustCommand(e.Status, e.Number&0x7F, e.Value&0x7F)
	}
	return e.Raw
}

// Message exposes the event to gomidi, mostly for readable logs.
func (e Event) Message() gomidi.Message {
	return gomidi.Message(e.Raw.Bytes())
}

func (e Event) String() string {
	switch e.Kind {
	case KindNote:
		state := "off"
		if e.IsNoteOn() {
			state = "on"
		}
		return fmt.Sprintf("note %d %s ch=%d vel=%d", e.Number, state, e.Channel, e.Value)
	case KindControlChange:
		return fmt.Sprintf("cc %d ch=%d val=%d", e.Number, e.Channel, e.Value)
	}
	return e.Message().String()
}
