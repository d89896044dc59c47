package circuit

import (
	"github.com/epics-go/go-ca/ca"
)

// ClientChannel is the client-side view of a channel. Its builders produce
// correctly correlated requests: each one fills in the channel's ids and,
// where the command opens a new exchange, allocates a fresh ioid or
// subscription id from the circuit.
//
// Builders only construct commands. Passing the result to the circuit's
// Send is what validates it and advances the state machines.
type ClientChannel struct {
	*Channel
}

// NewClientChannel creates an idle client-side channel for the named
// process variable, allocating a fresh cid.
func NewClientChannel(vc *VirtualCircuit, name string) (*ClientChannel, error) {
	ch, err := NewChannel(vc, name)
	if err != nil {
		return nil, err
	}

	return &ClientChannel{Channel: ch}, nil
}

// Version builds the version exchange request that opens the circuit. It
// carries the circuit's priority; the exchange must complete before any
// channel command is valid.
func (ch *ClientChannel) Version() *ca.VersionRequest {
	return ca.NewVersionRequest(ch.circuit.priority, ch.protocolVersion)
}

// Create builds the request that asks the server to attach this channel to
// its process variable.
func (ch *ClientChannel) Create() *ca.CreateChanRequest {
	return ca.NewCreateChanRequest(ch.name, ch.cid, ch.protocolVersion)
}

// Read builds a read request for dataCount elements of dataType, allocating
// a fresh ioid. A dataCount of 0 requests the channel's native element
// count.
func (ch *ClientChannel) Read(dataType ca.DataType, dataCount uint32) *ca.ReadNotifyRequest {
	if dataCount == 0 {
		dataCount = ch.nativeDataCount
	}

	return ca.NewReadNotifyRequest(dataType, dataCount, ch.sid, ch.circuit.NewIOID())
}

// ReadVariant builds a read request for the channel's native type promoted
// to the given metadata variant.
func (ch *ClientChannel) ReadVariant(variant ca.Variant, dataCount uint32) *ca.ReadNotifyRequest {
	return ch.Read(ca.Promote(ch.nativeDataType, variant), dataCount)
}

// Write builds a write request carrying data, allocating a fresh ioid.
func (ch *ClientChannel) Write(data []byte, dataType ca.DataType, dataCount uint32) *ca.WriteNotifyRequest {
	if dataCount == 0 {
		dataCount = ch.nativeDataCount
	}

	return ca.NewWriteNotifyRequest(data, dataType, dataCount, ch.sid, ch.circuit.NewIOID())
}

// Subscribe builds a subscription request, allocating a fresh subscription
// id. A dataCount of 0 subscribes to a dynamically sized value when the
// negotiated protocol version supports it, otherwise to the channel's
// native element count.
func (ch *ClientChannel) Subscribe(dataType ca.DataType, dataCount uint32, mask ca.EventMask) *ca.EventAddRequest {
	if dataCount == 0 && ch.protocolVersion < ca.ProtocolVersion {
		dataCount = ch.nativeDataCount
	}

	return ca.NewEventAddRequest(dataType, dataCount, ch.sid, ch.circuit.NewSubscriptionID(), mask)
}

// SubscribeVariant builds a subscription request for the channel's native
// type promoted to the given metadata variant.
func (ch *ClientChannel) SubscribeVariant(variant ca.Variant, dataCount uint32, mask ca.EventMask) *ca.EventAddRequest {
	return ch.Subscribe(ca.Promote(ch.nativeDataType, variant), dataCount, mask)
}

// Unsubscribe builds the cancellation for a subscription previously opened
// with Subscribe. The data type and count must echo the original request's.
func (ch *ClientChannel) Unsubscribe(sub *ca.EventAddRequest) *ca.EventCancelRequest {
	return ca.NewEventCancelRequest(sub.DataType, sub.DataCount, sub.SID, sub.SubscriptionID)
}

// Clear builds the request that destroys this channel.
func (ch *ClientChannel) Clear() *ca.ClearChannelRequest {
	return ca.NewClearChannelRequest(ch.sid, ch.cid)
}
