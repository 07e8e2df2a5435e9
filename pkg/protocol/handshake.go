package protocol

// HelloStatus is the result of a handshake.
type HelloStatus uint8

const (
	HelloOK              HelloStatus = 0x00
	HelloVersionMismatch HelloStatus = 0x01
	HelloInvalidFormat   HelloStatus = 0x02 // Malformed hello message
	HelloServerBusy      HelloStatus = 0x03
	HelloInternalError   HelloStatus = 0x04
)

// String returns the string representation of the hello status.
func (hs HelloStatus) String() string {
	switch hs {
	case HelloOK:
		return "OK"
	case HelloVersionMismatch:
		return "VersionMismatch"
	case HelloInvalidFormat:
		return "InvalidFormat"
	case HelloServerBusy:
		return "ServerBusy"
	case HelloInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion is a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a peer speaking v can talk to this build.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// ClientHello is the first frame a client sends.
type ClientHello struct {
	Version ProtocolVersion
	Client  string // Free-form client name, logged only
}

// ServerHello answers ClientHello. On success it lists the bags the session
// serves; the initial container contents follow as render frames.
type ServerHello struct {
	Status     HelloStatus
	SessionID  string
	ServerTime uint64 // Unix milliseconds
	Bags       []string
}

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.Client)
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	ch := &ClientHello{}

	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ch.Version = ProtocolVersion{Major: major, Minor: minor}

	if ch.Client, err = d.ReadString(); err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return ch, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.SessionID)
	e.WriteUint64(sh.ServerTime)
	e.WriteUvarint(uint64(len(sh.Bags)))
	for _, bag := range sh.Bags {
		e.WriteString(bag)
	}
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	sh := &ServerHello{}

	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh.Status = HelloStatus(status)

	if sh.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if sh.ServerTime, err = d.ReadUint64(); err != nil {
		return nil, err
	}

	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		bag, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		sh.Bags = append(sh.Bags, bag)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return sh, nil
}

// NewClientHello creates a ClientHello for the current version.
func NewClientHello(client string) *ClientHello {
	return &ClientHello{Version: CurrentVersion, Client: client}
}

// NewServerHello creates a successful ServerHello.
func NewServerHello(sessionID string, serverTime uint64, bags []string) *ServerHello {
	return &ServerHello{
		Status:     HelloOK,
		SessionID:  sessionID,
		ServerTime: serverTime,
		Bags:       bags,
	}
}

// NewServerHelloError creates a ServerHello with an error status.
func NewServerHelloError(status HelloStatus) *ServerHello {
	return &ServerHello{Status: status}
}
