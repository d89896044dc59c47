package ca

import (
	"encoding/binary"
	"net/netip"
)

// sidBroadcast in a SearchResponse's sid field means the client should
// connect to the datagram's source address rather than a server-specified one.
const sidBroadcast = 0xFFFFFFFF

// SearchRequest asks which server hosts the named process variable. The
// protocol requires every SearchRequest to be preceded, within the same
// datagram, by a VersionRequest.
type SearchRequest struct {
	Name    string
	CID     uint32
	Version uint16
	// Reply requests a NotFoundResponse even when the server does not host
	// the name. Only meaningful for non-broadcast searches.
	Reply bool
}

var _ Command = (*SearchRequest)(nil)

// NewSearchRequest creates a search request for the named process variable.
func NewSearchRequest(name string, cid uint32, version uint16, reply bool) *SearchRequest {
	return &SearchRequest{Name: name, CID: cid, Version: version, Reply: reply}
}

func (c *SearchRequest) CommandID() uint16 { return CmdSearch }
func (c *SearchRequest) Header() Header {
	replyFlag := dontReply
	if c.Reply {
		replyFlag = doReply
	}

	return Header{
		Command:     CmdSearch,
		PayloadSize: uint32(len(c.Payload())),
		DataType:    replyFlag,
		DataCount:   uint32(c.Version),
		Param1:      c.CID,
		Param2:      c.CID,
	}
}
func (c *SearchRequest) Payload() []byte { return padString(c.Name) }
func (c *SearchRequest) ToBytes() []byte { return marshal(c.Header(), c.Payload()) }

// SearchResponse announces which port serves a searched process variable.
// Its cid must match a search that is still unanswered on the receiving
// broadcaster.
type SearchResponse struct {
	Port    uint16
	SID     uint32
	CID     uint32
	Version uint16
}

var _ Command = (*SearchResponse)(nil)

// NewSearchResponse creates a search response. sid is normally left 0 to
// direct the client at the datagram's source address.
func NewSearchResponse(port uint16, sid uint32, cid uint32, version uint16) *SearchResponse {
	if sid == 0 {
		sid = sidBroadcast
	}

	return &SearchResponse{Port: port, SID: sid, CID: cid, Version: version}
}

func (c *SearchResponse) CommandID() uint16 { return CmdSearch }
func (c *SearchResponse) Header() Header {
	return Header{
		Command:     CmdSearch,
		PayloadSize: 8,
		DataType:    c.Port,
		Param1:      c.SID,
		Param2:      c.CID,
	}
}

// Payload carries the server's minor protocol version in the first two bytes.
func (c *SearchResponse) Payload() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], c.Version)

	return buf
}

func (c *SearchResponse) ToBytes() []byte { return marshal(c.Header(), c.Payload()) }

// NotFoundResponse answers a reply-requested search for a name the server
// does not host. Broadcasters tolerate it without consuming the pending
// search, so a later SearchResponse from another server can still claim it.
type NotFoundResponse struct {
	CID     uint32
	Version uint16
}

var _ Command = (*NotFoundResponse)(nil)

// NewNotFoundResponse creates a search miss response echoing the search's cid.
func NewNotFoundResponse(cid uint32, version uint16) *NotFoundResponse {
	return &NotFoundResponse{CID: cid, Version: version}
}

func (c *NotFoundResponse) CommandID() uint16 { return CmdNotFound }
func (c *NotFoundResponse) Header() Header {
	return Header{
		Command:   CmdNotFound,
		DataType:  dontReply,
		DataCount: uint32(c.Version),
		Param1:    c.CID,
		Param2:    c.CID,
	}
}
func (c *NotFoundResponse) Payload() []byte { return nil }
func (c *NotFoundResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// Beacon is a server's periodic liveness announcement on the broadcast
// network. Clients use beacon arrival patterns to detect new or restarted
// servers; this engine only parses and surfaces them.
type Beacon struct {
	Version    uint16
	ServerPort uint16
	BeaconID   uint32
	Addr       netip.Addr
}

var _ Command = (*Beacon)(nil)

// NewBeacon creates a server liveness announcement.
func NewBeacon(version uint16, serverPort uint16, beaconID uint32, addr netip.Addr) *Beacon {
	return &Beacon{Version: version, ServerPort: serverPort, BeaconID: beaconID, Addr: addr}
}

func (c *Beacon) CommandID() uint16 { return CmdBeacon }
func (c *Beacon) Header() Header {
	return Header{
		Command:   CmdBeacon,
		DataType:  c.Version,
		DataCount: uint32(c.ServerPort),
		Param1:    c.BeaconID,
		Param2:    ipToUint32(c.Addr),
	}
}
func (c *Beacon) Payload() []byte { return nil }
func (c *Beacon) ToBytes() []byte { return marshal(c.Header(), nil) }

// RepeaterRegisterRequest registers a client with the local CA repeater so
// it receives fanned-out broadcast traffic. A zero Addr lets the repeater
// use the datagram's source address.
type RepeaterRegisterRequest struct {
	ClientAddr netip.Addr
}

var _ Command = (*RepeaterRegisterRequest)(nil)

// NewRepeaterRegisterRequest creates a repeater registration request.
func NewRepeaterRegisterRequest(clientAddr netip.Addr) *RepeaterRegisterRequest {
	return &RepeaterRegisterRequest{ClientAddr: clientAddr}
}

func (c *RepeaterRegisterRequest) CommandID() uint16 { return CmdRepeaterRegister }
func (c *RepeaterRegisterRequest) Header() Header {
	return Header{Command: CmdRepeaterRegister, Param2: ipToUint32(c.ClientAddr)}
}
func (c *RepeaterRegisterRequest) Payload() []byte { return nil }
func (c *RepeaterRegisterRequest) ToBytes() []byte { return marshal(c.Header(), nil) }

// RepeaterConfirmResponse acknowledges repeater registration. Until a client
// broadcaster has processed one, sending any other command is a local
// protocol error.
type RepeaterConfirmResponse struct {
	RepeaterAddr netip.Addr
}

var _ Command = (*RepeaterConfirmResponse)(nil)

// NewRepeaterConfirmResponse creates a repeater registration confirmation.
func NewRepeaterConfirmResponse(repeaterAddr netip.Addr) *RepeaterConfirmResponse {
	return &RepeaterConfirmResponse{RepeaterAddr: repeaterAddr}
}

func (c *RepeaterConfirmResponse) CommandID() uint16 { return CmdRepeaterConfirm }
func (c *RepeaterConfirmResponse) Header() Header {
	return Header{Command: CmdRepeaterConfirm, Param2: ipToUint32(c.RepeaterAddr)}
}
func (c *RepeaterConfirmResponse) Payload() []byte { return nil }
func (c *RepeaterConfirmResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// ipToUint32 packs an IPv4 address big-endian. Addresses without an IPv4
// form, including plain IPv6, pack as 0, which peers read as "use the
// datagram's source address".
func ipToUint32(addr netip.Addr) uint32 {
	if !addr.Is4() && !addr.Is4In6() {
		return 0
	}
	v4 := addr.Unmap().As4()

	return binary.BigEndian.Uint32(v4[:])
}

// uint32ToIP is the inverse of ipToUint32; 0 yields the invalid address.
func uint32ToIP(v uint32) netip.Addr {
	if v == 0 {
		return netip.Addr{}
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)

	return netip.AddrFrom4(buf)
}
