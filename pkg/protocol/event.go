package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/dragula/pkg/vdom"
)

// ErrUnknownArg is returned when an event argument has an unknown kind.
var ErrUnknownArg = errors.New("protocol: unknown argument kind")

// ArgKind tags one event argument on the wire.
type ArgKind uint8

const (
	ArgNull   ArgKind = 0x00 // Absent node (e.g. no sibling)
	ArgNode   ArgKind = 0x01 // Node, by HID
	ArgInt    ArgKind = 0x02 // Signed integer (model index)
	ArgString ArgKind = 0x03
	ArgBool   ArgKind = 0x04
)

// Arg is one positional argument of a replicated event.
type Arg struct {
	Kind ArgKind
	HID  string
	Int  int64
	Str  string
	Bool bool
}

// String renders the argument for logs.
func (a Arg) String() string {
	switch a.Kind {
	case ArgNull:
		return "null"
	case ArgNode:
		return "#" + a.HID
	case ArgInt:
		return fmt.Sprint(a.Int)
	case ArgString:
		return fmt.Sprintf("%q", a.Str)
	case ArgBool:
		return fmt.Sprint(a.Bool)
	default:
		return "?"
	}
}

// ArgOf converts a bus argument. Nodes travel as their HID; values with no
// wire form are sent as their fmt text.
func ArgOf(v any) Arg {
	switch x := v.(type) {
	case nil:
		return Arg{Kind: ArgNull}
	case *vdom.VNode:
		if x == nil {
			return Arg{Kind: ArgNull}
		}
		return Arg{Kind: ArgNode, HID: x.HID}
	case int:
		return Arg{Kind: ArgInt, Int: int64(x)}
	case int64:
		return Arg{Kind: ArgInt, Int: x}
	case string:
		return Arg{Kind: ArgString, Str: x}
	case bool:
		return Arg{Kind: ArgBool, Bool: x}
	default:
		return Arg{Kind: ArgString, Str: fmt.Sprint(x)}
	}
}

// Event is a bus event forwarded to the client.
//
// Wire format:
//
//	[Seq: varint][Name: string][Bag: string][Count: varint]{[Kind: byte][value]}
type Event struct {
	Seq  uint64
	Name string
	Bag  string
	Args []Arg
}

// NewEvent builds an Event from a bus emission whose first argument is the
// bag name.
func NewEvent(seq uint64, name string, args []any) *Event {
	ev := &Event{Seq: seq, Name: name}
	if len(args) == 0 {
		return ev
	}
	if bag, ok := args[0].(string); ok {
		ev.Bag = bag
		args = args[1:]
	}
	ev.Args = make([]Arg, 0, len(args))
	for _, a := range args {
		ev.Args = append(ev.Args, ArgOf(a))
	}
	return ev
}

// EncodeEvent encodes an Event to bytes.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	e.WriteUvarint(ev.Seq)
	e.WriteString(ev.Name)
	e.WriteString(ev.Bag)
	e.WriteUvarint(uint64(len(ev.Args)))
	for _, a := range ev.Args {
		e.WriteByte(byte(a.Kind))
		switch a.Kind {
		case ArgNode:
			e.WriteString(a.HID)
		case ArgInt:
			e.WriteSvarint(a.Int)
		case ArgString:
			e.WriteString(a.Str)
		case ArgBool:
			e.WriteBool(a.Bool)
		}
	}
	return e.Bytes()
}

// DecodeEvent decodes an Event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev := &Event{}
	var err error

	if ev.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if ev.Name, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ev.Bag, err = d.ReadString(); err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	ev.Args = make([]Arg, count)
	for i := range ev.Args {
		kind, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		a := Arg{Kind: ArgKind(kind)}
		switch a.Kind {
		case ArgNull:
		case ArgNode:
			a.HID, err = d.ReadString()
		case ArgInt:
			a.Int, err = d.ReadSvarint()
		case ArgString:
			a.Str, err = d.ReadString()
		case ArgBool:
			a.Bool, err = d.ReadBool()
		default:
			return nil, ErrUnknownArg
		}
		if err != nil {
			return nil, err
		}
		ev.Args[i] = a
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return ev, nil
}
