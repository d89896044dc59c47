package ca

// CreateChanRequest asks the server to create a channel to the named process
// variable. The cid is client-assigned and unique within the circuit.
type CreateChanRequest struct {
	Name    string
	CID     uint32
	Version uint16
}

var _ Command = (*CreateChanRequest)(nil)

// NewCreateChanRequest creates a channel creation request for the named
// process variable.
func NewCreateChanRequest(name string, cid uint32, version uint16) *CreateChanRequest {
	return &CreateChanRequest{Name: name, CID: cid, Version: version}
}

func (c *CreateChanRequest) CommandID() uint16 { return CmdCreateChan }
func (c *CreateChanRequest) Header() Header {
	return Header{
		Command:     CmdCreateChan,
		PayloadSize: uint32(len(c.Payload())),
		Param1:      c.CID,
		Param2:      uint32(c.Version),
	}
}
func (c *CreateChanRequest) Payload() []byte { return padString(c.Name) }
func (c *CreateChanRequest) ToBytes() []byte { return marshal(c.Header(), c.Payload()) }

// CreateChanResponse confirms channel creation. It binds the server-assigned
// sid to the client's cid and reports the channel's native DBR type and
// element count.
type CreateChanResponse struct {
	DataType  DataType
	DataCount uint32
	CID       uint32
	SID       uint32
}

var _ Command = (*CreateChanResponse)(nil)

// NewCreateChanResponse creates a successful channel creation response.
func NewCreateChanResponse(dataType DataType, dataCount uint32, cid uint32, sid uint32) *CreateChanResponse {
	return &CreateChanResponse{DataType: dataType, DataCount: dataCount, CID: cid, SID: sid}
}

func (c *CreateChanResponse) CommandID() uint16 { return CmdCreateChan }
func (c *CreateChanResponse) Header() Header {
	return Header{
		Command:   CmdCreateChan,
		DataType:  uint16(c.DataType),
		DataCount: c.DataCount,
		Param1:    c.CID,
		Param2:    c.SID,
	}
}
func (c *CreateChanResponse) Payload() []byte { return nil }
func (c *CreateChanResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// CreateChFailResponse reports that channel creation failed on the server.
type CreateChFailResponse struct {
	CID uint32
}

var _ Command = (*CreateChFailResponse)(nil)

// NewCreateChFailResponse creates a channel creation failure response.
func NewCreateChFailResponse(cid uint32) *CreateChFailResponse {
	return &CreateChFailResponse{CID: cid}
}

func (c *CreateChFailResponse) CommandID() uint16 { return CmdCreateChFail }
func (c *CreateChFailResponse) Header() Header {
	return Header{Command: CmdCreateChFail, Param1: c.CID}
}
func (c *CreateChFailResponse) Payload() []byte { return nil }
func (c *CreateChFailResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// AccessRightsResponse tells the client which operations the server permits
// on a channel. It may arrive before the CreateChanResponse and again
// whenever the rights change.
type AccessRightsResponse struct {
	CID          uint32
	AccessRights AccessRights
}

var _ Command = (*AccessRightsResponse)(nil)

// NewAccessRightsResponse creates an access rights notification.
func NewAccessRightsResponse(cid uint32, rights AccessRights) *AccessRightsResponse {
	return &AccessRightsResponse{CID: cid, AccessRights: rights}
}

func (c *AccessRightsResponse) CommandID() uint16 { return CmdAccessRights }
func (c *AccessRightsResponse) Header() Header {
	return Header{Command: CmdAccessRights, Param1: c.CID, Param2: uint32(c.AccessRights)}
}
func (c *AccessRightsResponse) Payload() []byte { return nil }
func (c *AccessRightsResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// ClearChannelRequest asks the server to release a channel.
type ClearChannelRequest struct {
	SID uint32
	CID uint32
}

var _ Command = (*ClearChannelRequest)(nil)

// NewClearChannelRequest creates a channel teardown request.
func NewClearChannelRequest(sid uint32, cid uint32) *ClearChannelRequest {
	return &ClearChannelRequest{SID: sid, CID: cid}
}

func (c *ClearChannelRequest) CommandID() uint16 { return CmdClearChannel }
func (c *ClearChannelRequest) Header() Header {
	return Header{Command: CmdClearChannel, Param1: c.SID, Param2: c.CID}
}
func (c *ClearChannelRequest) Payload() []byte { return nil }
func (c *ClearChannelRequest) ToBytes() []byte { return marshal(c.Header(), nil) }

// ClearChannelResponse confirms channel teardown. Processing it removes the
// channel from the circuit's correlation tables.
type ClearChannelResponse struct {
	SID uint32
	CID uint32
}

var _ Command = (*ClearChannelResponse)(nil)

// NewClearChannelResponse creates a channel teardown confirmation.
func NewClearChannelResponse(sid uint32, cid uint32) *ClearChannelResponse {
	return &ClearChannelResponse{SID: sid, CID: cid}
}

func (c *ClearChannelResponse) CommandID() uint16 { return CmdClearChannel }
func (c *ClearChannelResponse) Header() Header {
	return Header{Command: CmdClearChannel, Param1: c.SID, Param2: c.CID}
}
func (c *ClearChannelResponse) Payload() []byte { return nil }
func (c *ClearChannelResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// ServerDisconnResponse tells the client that the server dropped a channel
// on its own initiative, e.g. because the process variable disappeared.
type ServerDisconnResponse struct {
	CID uint32
}

var _ Command = (*ServerDisconnResponse)(nil)

// NewServerDisconnResponse creates a server-initiated channel drop notification.
func NewServerDisconnResponse(cid uint32) *ServerDisconnResponse {
	return &ServerDisconnResponse{CID: cid}
}

func (c *ServerDisconnResponse) CommandID() uint16 { return CmdServerDisconn }
func (c *ServerDisconnResponse) Header() Header {
	return Header{Command: CmdServerDisconn, Param1: c.CID}
}
func (c *ServerDisconnResponse) Payload() []byte { return nil }
func (c *ServerDisconnResponse) ToBytes() []byte { return marshal(c.Header(), nil) }
