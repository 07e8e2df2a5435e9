// Package protocol implements the binary wire protocol between a drag client
// and the dragula server.
//
// The client reports pointer actions (start, over, release, cancel, remove)
// against nodes it addresses by hydration ID (HID). The server answers with
// render frames holding the new children of every container it redrew, and
// forwards replicated bus events so the page can observe drops and model
// changes.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): ClientHello / ServerHello
//   - FrameAction (0x01): Client → Server drag actions
//   - FrameRender (0x02): Server → Client container contents
//   - FrameControl (0x03): Ping, pong, close
//   - FrameEvent (0x04): Server → Client bus events
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: Compact encoding for small integers (protobuf-style)
//   - ZigZag: Signed integers encoded as unsigned varints
//   - Length-prefixed: Strings prefixed with varint length
//   - Big-endian: Fixed-width integers (uint16, uint64)
//
// Decoders reject trailing bytes and cap collection counts and string
// lengths before allocating.
//
// # Session
//
//	Client                          Server
//	  │                                │
//	  │──── ClientHello ─────────────>│
//	  │<──── ServerHello ─────────────│
//	  │<──── Render (all containers) ─│
//	  │                                │
//	  │──── Action(Start, h7) ───────>│
//	  │<──── Event(drag) ─────────────│
//	  │──── Action(Release, h3) ─────>│
//	  │<──── Event(drop, dropModel) ──│
//	  │<──── Render ──────────────────│
package protocol
