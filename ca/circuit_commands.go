package ca

// VersionRequest is the first command a client sends on every circuit and
// the lead-in command of every search datagram. On a TCP circuit it also
// fixes the circuit's priority.
type VersionRequest struct {
	// Priority is the circuit QoS priority, fixed for the circuit lifetime.
	Priority uint16
	// Version is the sender's CA minor protocol version.
	Version uint16
}

var _ Command = (*VersionRequest)(nil)

// NewVersionRequest creates a version request with the given circuit
// priority and protocol version.
func NewVersionRequest(priority uint16, version uint16) *VersionRequest {
	return &VersionRequest{Priority: priority, Version: version}
}

func (c *VersionRequest) CommandID() uint16 { return CmdVersion }
func (c *VersionRequest) Header() Header {
	return Header{Command: CmdVersion, DataType: c.Priority, DataCount: uint32(c.Version)}
}
func (c *VersionRequest) Payload() []byte { return nil }
func (c *VersionRequest) ToBytes() []byte { return marshal(c.Header(), nil) }

// VersionResponse announces the server's CA minor protocol version.
//
// A VersionResponse carrying version 0 is a legacy no-data echo from servers
// that predate version negotiation; circuits ignore it.
type VersionResponse struct {
	Version uint16
}

var _ Command = (*VersionResponse)(nil)

// NewVersionResponse creates a version response with the given protocol version.
func NewVersionResponse(version uint16) *VersionResponse {
	return &VersionResponse{Version: version}
}

func (c *VersionResponse) CommandID() uint16 { return CmdVersion }
func (c *VersionResponse) Header() Header {
	return Header{Command: CmdVersion, DataCount: uint32(c.Version)}
}
func (c *VersionResponse) Payload() []byte { return nil }
func (c *VersionResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// EchoRequest is an empty keepalive probe; the peer answers with an
// EchoResponse.
type EchoRequest struct{}

var _ Command = EchoRequest{}

func (EchoRequest) CommandID() uint16 { return CmdEcho }
func (EchoRequest) Header() Header    { return Header{Command: CmdEcho} }
func (EchoRequest) Payload() []byte   { return nil }
func (EchoRequest) ToBytes() []byte   { return marshal(Header{Command: CmdEcho}, nil) }

// EchoResponse answers an EchoRequest.
type EchoResponse struct{}

var _ Command = EchoResponse{}

func (EchoResponse) CommandID() uint16 { return CmdEcho }
func (EchoResponse) Header() Header    { return Header{Command: CmdEcho} }
func (EchoResponse) Payload() []byte   { return nil }
func (EchoResponse) ToBytes() []byte   { return marshal(Header{Command: CmdEcho}, nil) }

// ClientNameRequest tells the server which user is connecting, for access
// control purposes.
type ClientNameRequest struct {
	Name string
}

var _ Command = (*ClientNameRequest)(nil)

// NewClientNameRequest creates a client name announcement.
func NewClientNameRequest(name string) *ClientNameRequest {
	return &ClientNameRequest{Name: name}
}

func (c *ClientNameRequest) CommandID() uint16 { return CmdClientName }
func (c *ClientNameRequest) Header() Header {
	return Header{Command: CmdClientName, PayloadSize: uint32(len(c.Payload()))}
}
func (c *ClientNameRequest) Payload() []byte { return padString(c.Name) }
func (c *ClientNameRequest) ToBytes() []byte { return marshal(c.Header(), c.Payload()) }

// HostNameRequest tells the server which host the client connects from, for
// access control purposes.
type HostNameRequest struct {
	Name string
}

var _ Command = (*HostNameRequest)(nil)

// NewHostNameRequest creates a host name announcement.
func NewHostNameRequest(name string) *HostNameRequest {
	return &HostNameRequest{Name: name}
}

func (c *HostNameRequest) CommandID() uint16 { return CmdHostName }
func (c *HostNameRequest) Header() Header {
	return Header{Command: CmdHostName, PayloadSize: uint32(len(c.Payload()))}
}
func (c *HostNameRequest) Payload() []byte { return padString(c.Name) }
func (c *HostNameRequest) ToBytes() []byte { return marshal(c.Header(), c.Payload()) }

// ErrorResponse notifies the client that a request failed on the server.
// It echoes the failed request's header and carries a status code and a
// human-readable message.
type ErrorResponse struct {
	CID            uint32
	Status         uint32
	OriginalHeader Header
	Message        string
}

var _ Command = (*ErrorResponse)(nil)

// NewErrorResponse creates an error response echoing the failed request's header.
func NewErrorResponse(cid uint32, status uint32, original Header, message string) *ErrorResponse {
	return &ErrorResponse{CID: cid, Status: status, OriginalHeader: original, Message: message}
}

func (c *ErrorResponse) CommandID() uint16 { return CmdError }
func (c *ErrorResponse) Header() Header {
	return Header{
		Command:     CmdError,
		PayloadSize: uint32(len(c.Payload())),
		Param1:      c.CID,
		Param2:      c.Status,
	}
}

func (c *ErrorResponse) Payload() []byte {
	// The echoed header is always encoded in its standard 16-byte form: the
	// original payload is not carried, so the extended size fields would be
	// meaningless.
	orig := c.OriginalHeader
	if orig.IsExtended() {
		orig.PayloadSize = 0
		orig.DataCount = 0
	}
	payload := orig.Marshal()

	return append(payload, padString(c.Message)...)
}

func (c *ErrorResponse) ToBytes() []byte { return marshal(c.Header(), c.Payload()) }
