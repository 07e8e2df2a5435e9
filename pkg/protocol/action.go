package protocol

import "errors"

// ErrUnknownAction is returned when an action frame carries an unknown kind.
var ErrUnknownAction = errors.New("protocol: unknown action kind")

// ActionKind identifies a client drag action.
type ActionKind uint8

const (
	ActionStart   ActionKind = 0x01 // Pick up Item
	ActionOver    ActionKind = 0x02 // Pointer over Target before Sibling
	ActionRelease ActionKind = 0x03 // Let go over Target before Sibling
	ActionCancel  ActionKind = 0x04 // Abort, optionally reverting
	ActionRemove  ActionKind = 0x05 // Remove the dragged item
)

// String returns the string representation of the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionStart:
		return "Start"
	case ActionOver:
		return "Over"
	case ActionRelease:
		return "Release"
	case ActionCancel:
		return "Cancel"
	case ActionRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Action is a pointer report from the client. Nodes are addressed by HID;
// an empty Target means outside every container and an empty Sibling means
// the end of the container.
//
// Wire format:
//
//	[Seq: varint][Kind: byte][Bag: string][kind-specific fields]
//
//	Start:           [Item: string]
//	Over, Release:   [Target: string][Sibling: string]
//	Cancel:          [Revert: bool]
//	Remove:          (none)
type Action struct {
	Seq     uint64
	Kind    ActionKind
	Bag     string
	Item    string
	Target  string
	Sibling string
	Revert  bool
}

// EncodeAction encodes an Action to bytes.
func EncodeAction(a *Action) []byte {
	e := NewEncoder()
	e.WriteUvarint(a.Seq)
	e.WriteByte(byte(a.Kind))
	e.WriteString(a.Bag)

	switch a.Kind {
	case ActionStart:
		e.WriteString(a.Item)
	case ActionOver, ActionRelease:
		e.WriteString(a.Target)
		e.WriteString(a.Sibling)
	case ActionCancel:
		e.WriteBool(a.Revert)
	}
	return e.Bytes()
}

// DecodeAction decodes an Action from bytes.
func DecodeAction(data []byte) (*Action, error) {
	d := NewDecoder(data)
	a := &Action{}
	var err error

	if a.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	a.Kind = ActionKind(kind)
	if a.Bag, err = d.ReadString(); err != nil {
		return nil, err
	}

	switch a.Kind {
	case ActionStart:
		if a.Item, err = d.ReadString(); err != nil {
			return nil, err
		}
	case ActionOver, ActionRelease:
		if a.Target, err = d.ReadString(); err != nil {
			return nil, err
		}
		if a.Sibling, err = d.ReadString(); err != nil {
			return nil, err
		}
	case ActionCancel:
		if a.Revert, err = d.ReadBool(); err != nil {
			return nil, err
		}
	case ActionRemove:
	default:
		return nil, ErrUnknownAction
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return a, nil
}
