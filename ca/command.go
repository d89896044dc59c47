package ca

// CA command codes. The same code is shared by a request and its response;
// the direction of travel disambiguates them.
const (
	CmdVersion          uint16 = 0
	CmdEventAdd         uint16 = 1
	CmdEventCancel      uint16 = 2
	CmdSearch           uint16 = 6
	CmdError            uint16 = 11
	CmdClearChannel     uint16 = 12
	CmdBeacon           uint16 = 13
	CmdNotFound         uint16 = 14
	CmdReadNotify       uint16 = 15
	CmdRepeaterConfirm  uint16 = 17
	CmdCreateChan       uint16 = 18
	CmdWriteNotify      uint16 = 19
	CmdClientName       uint16 = 20
	CmdHostName         uint16 = 21
	CmdAccessRights     uint16 = 22
	CmdEcho             uint16 = 23
	CmdRepeaterRegister uint16 = 24
	CmdCreateChFail     uint16 = 26
	CmdServerDisconn    uint16 = 27
)

var commandNames = map[uint16]string{
	CmdVersion:          "version",
	CmdEventAdd:         "event.add",
	CmdEventCancel:      "event.cancel",
	CmdSearch:           "search",
	CmdError:            "error",
	CmdClearChannel:     "clear.channel",
	CmdBeacon:           "beacon",
	CmdNotFound:         "not.found",
	CmdReadNotify:       "read.notify",
	CmdRepeaterConfirm:  "repeater.confirm",
	CmdCreateChan:       "create.chan",
	CmdWriteNotify:      "write.notify",
	CmdClientName:       "client.name",
	CmdHostName:         "host.name",
	CmdAccessRights:     "access.rights",
	CmdEcho:             "echo",
	CmdRepeaterRegister: "repeater.register",
	CmdCreateChFail:     "create.chan.fail",
	CmdServerDisconn:    "server.disconn",
}

// CommandName returns a short human-readable name for a command code,
// intended for log output and error messages.
func CommandName(id uint16) string {
	name, ok := commandNames[id]
	if !ok {
		return "undefined"
	}

	return name
}

// Command is one CA protocol command, either parsed from received bytes or
// constructed by a builder for sending. Commands are immutable once
// constructed.
type Command interface {
	// CommandID returns the CA command code carried in the header.
	CommandID() uint16

	// Header returns the full command header with all correlation fields
	// filled in.
	Header() Header

	// Payload returns the command payload, already padded to the 8-byte
	// boundary required by the protocol. It is nil for commands without a
	// payload.
	Payload() []byte

	// ToBytes serializes the command, header plus payload, for transmission.
	ToBytes() []byte
}

// Disconnected is a synthetic sentinel command. It never appears on the wire;
// a circuit's Disconnect method returns it and the transport replays it
// through ProcessCommand so every channel observes the disconnection through
// the same code path as ordinary commands.
type Disconnected struct{}

var _ Command = Disconnected{}

func (Disconnected) CommandID() uint16 { return 0xFFFF }
func (Disconnected) Header() Header    { return Header{Command: 0xFFFF} }
func (Disconnected) Payload() []byte   { return nil }
func (Disconnected) ToBytes() []byte   { return nil }

// marshal concatenates the header and payload into one transmit buffer.
func marshal(h Header, payload []byte) []byte {
	hdr := h.Marshal()
	buf := make([]byte, 0, len(hdr)+len(payload))
	buf = append(buf, hdr...)
	buf = append(buf, payload...)

	return buf
}

// padString encodes s as a NUL-terminated string padded with NUL bytes to
// the 8-byte payload boundary.
func padString(s string) []byte {
	size := (len(s) + 8) &^ 7
	buf := make([]byte, size)
	copy(buf, s)

	return buf
}

// padPayload pads an opaque payload with NUL bytes to the 8-byte boundary.
// The input is not modified; a padded copy is returned when padding is
// required.
func padPayload(data []byte) []byte {
	if len(data)%8 == 0 {
		return data
	}
	size := (len(data) + 7) &^ 7
	buf := make([]byte, size)
	copy(buf, data)

	return buf
}

// stringFromPayload extracts a NUL-terminated, NUL-padded string.
func stringFromPayload(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}

	return string(data)
}
