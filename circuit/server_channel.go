package circuit

import (
	"github.com/epics-go/go-ca/ca"
)

// ServerChannel is the server-side view of a channel. Its builders produce
// responses from the request they answer, echoing the request's correlation
// ids so the client can match them up.
type ServerChannel struct {
	*Channel
}

// AsServerChannel wraps a channel that was instantiated by a received
// CreateChanRequest.
func AsServerChannel(ch *Channel) *ServerChannel {
	return &ServerChannel{Channel: ch}
}

// Version builds the version exchange answer that opens the circuit from
// the server side.
func (ch *ServerChannel) Version() *ca.VersionResponse {
	return ca.NewVersionResponse(ch.protocolVersion)
}

// CreateResponse builds the successful answer to the creation request,
// assigning the channel a fresh sid and declaring its native data type and
// element count.
func (ch *ServerChannel) CreateResponse(dataType ca.DataType, dataCount uint32) *ca.CreateChanResponse {
	return ca.NewCreateChanResponse(dataType, dataCount, ch.cid, ch.circuit.NewServerID())
}

// CreateFailResponse builds the answer reporting that the channel could not
// be created.
func (ch *ServerChannel) CreateFailResponse() *ca.CreateChFailResponse {
	return ca.NewCreateChFailResponse(ch.cid)
}

// AccessRightsResponse builds the notification that sets the client's
// access rights on this channel. It may be sent at any time while the
// channel exists.
func (ch *ServerChannel) AccessRightsResponse(rights ca.AccessRights) *ca.AccessRightsResponse {
	return ca.NewAccessRightsResponse(ch.cid, rights)
}

// ReadResponse builds the answer to a read request, carrying the value.
func (ch *ServerChannel) ReadResponse(req *ca.ReadNotifyRequest, data []byte, status uint32) *ca.ReadNotifyResponse {
	return ca.NewReadNotifyResponse(data, req.DataType, req.DataCount, status, req.IOID)
}

// WriteResponse builds the answer confirming a write request.
func (ch *ServerChannel) WriteResponse(req *ca.WriteNotifyRequest, status uint32) *ca.WriteNotifyResponse {
	return ca.NewWriteNotifyResponse(req.DataType, req.DataCount, status, req.IOID)
}

// SubscriptionUpdate builds a value update for an open subscription. Every
// update echoes the subscribe request's data type; the first one doubles as
// the subscription's confirmation.
func (ch *ServerChannel) SubscriptionUpdate(sub *ca.EventAddRequest, data []byte, status uint32) *ca.EventAddResponse {
	return ca.NewEventAddResponse(data, sub.DataType, sub.DataCount, status, sub.SubscriptionID)
}

// CancelResponse builds the confirmation that a subscription has been torn
// down. On the wire it is a subscription update with an empty payload.
func (ch *ServerChannel) CancelResponse(req *ca.EventCancelRequest) *ca.EventCancelResponse {
	return ca.NewEventCancelResponse(req.DataType, req.SID, req.SubscriptionID)
}

// ClearResponse builds the confirmation that the channel has been
// destroyed.
func (ch *ServerChannel) ClearResponse(req *ca.ClearChannelRequest) *ca.ClearChannelResponse {
	return ca.NewClearChannelResponse(req.SID, req.CID)
}

// DisconnResponse builds the notification that the server is dropping this
// channel without the client asking.
func (ch *ServerChannel) DisconnResponse() *ca.ServerDisconnResponse {
	return ca.NewServerDisconnResponse(ch.cid)
}
