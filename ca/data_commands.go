package ca

import (
	"encoding/binary"

	"github.com/epics-go/go-ca/internal/util"
)

// ReadNotifyRequest asks the server for one snapshot of a channel's value.
// The ioid correlates the request with exactly one response.
type ReadNotifyRequest struct {
	DataType  DataType
	DataCount uint32
	SID       uint32
	IOID      uint32
}

var _ Command = (*ReadNotifyRequest)(nil)

// NewReadNotifyRequest creates a read request. A dataCount of 0 asks for the
// channel's full native element count.
func NewReadNotifyRequest(dataType DataType, dataCount uint32, sid uint32, ioid uint32) *ReadNotifyRequest {
	return &ReadNotifyRequest{DataType: dataType, DataCount: dataCount, SID: sid, IOID: ioid}
}

func (c *ReadNotifyRequest) CommandID() uint16 { return CmdReadNotify }
func (c *ReadNotifyRequest) Header() Header {
	return Header{
		Command:   CmdReadNotify,
		DataType:  uint16(c.DataType),
		DataCount: c.DataCount,
		Param1:    c.SID,
		Param2:    c.IOID,
	}
}
func (c *ReadNotifyRequest) Payload() []byte { return nil }
func (c *ReadNotifyRequest) ToBytes() []byte { return marshal(c.Header(), nil) }

// ReadNotifyResponse carries the value answering a ReadNotifyRequest. The
// value encoding is opaque to this engine; Data holds the raw DBR payload.
type ReadNotifyResponse struct {
	Data      []byte
	DataType  DataType
	DataCount uint32
	Status    uint32
	IOID      uint32
}

var _ Command = (*ReadNotifyResponse)(nil)

// NewReadNotifyResponse creates a read response carrying the raw DBR payload.
func NewReadNotifyResponse(data []byte, dataType DataType, dataCount uint32, status uint32, ioid uint32) *ReadNotifyResponse {
	return &ReadNotifyResponse{
		Data:      padPayload(util.CloneSlice(data, 0)),
		DataType:  dataType,
		DataCount: dataCount,
		Status:    status,
		IOID:      ioid,
	}
}

func (c *ReadNotifyResponse) CommandID() uint16 { return CmdReadNotify }
func (c *ReadNotifyResponse) Header() Header {
	return Header{
		Command:     CmdReadNotify,
		PayloadSize: uint32(len(c.Data)),
		DataType:    uint16(c.DataType),
		DataCount:   c.DataCount,
		Param1:      c.Status,
		Param2:      c.IOID,
	}
}
func (c *ReadNotifyResponse) Payload() []byte { return c.Data }
func (c *ReadNotifyResponse) ToBytes() []byte { return marshal(c.Header(), c.Data) }

// WriteNotifyRequest writes a value to a channel and asks for a completion
// confirmation correlated by ioid.
type WriteNotifyRequest struct {
	Data      []byte
	DataType  DataType
	DataCount uint32
	SID       uint32
	IOID      uint32
}

var _ Command = (*WriteNotifyRequest)(nil)

// NewWriteNotifyRequest creates a confirmed write request carrying the raw
// DBR payload.
func NewWriteNotifyRequest(data []byte, dataType DataType, dataCount uint32, sid uint32, ioid uint32) *WriteNotifyRequest {
	return &WriteNotifyRequest{
		Data:      padPayload(util.CloneSlice(data, 0)),
		DataType:  dataType,
		DataCount: dataCount,
		SID:       sid,
		IOID:      ioid,
	}
}

func (c *WriteNotifyRequest) CommandID() uint16 { return CmdWriteNotify }
func (c *WriteNotifyRequest) Header() Header {
	return Header{
		Command:     CmdWriteNotify,
		PayloadSize: uint32(len(c.Data)),
		DataType:    uint16(c.DataType),
		DataCount:   c.DataCount,
		Param1:      c.SID,
		Param2:      c.IOID,
	}
}
func (c *WriteNotifyRequest) Payload() []byte { return c.Data }
func (c *WriteNotifyRequest) ToBytes() []byte { return marshal(c.Header(), c.Data) }

// WriteNotifyResponse confirms completion of a WriteNotifyRequest.
type WriteNotifyResponse struct {
	DataType  DataType
	DataCount uint32
	Status    uint32
	IOID      uint32
}

var _ Command = (*WriteNotifyResponse)(nil)

// NewWriteNotifyResponse creates a write completion confirmation.
func NewWriteNotifyResponse(dataType DataType, dataCount uint32, status uint32, ioid uint32) *WriteNotifyResponse {
	return &WriteNotifyResponse{DataType: dataType, DataCount: dataCount, Status: status, IOID: ioid}
}

func (c *WriteNotifyResponse) CommandID() uint16 { return CmdWriteNotify }
func (c *WriteNotifyResponse) Header() Header {
	return Header{
		Command:   CmdWriteNotify,
		DataType:  uint16(c.DataType),
		DataCount: c.DataCount,
		Param1:    c.Status,
		Param2:    c.IOID,
	}
}
func (c *WriteNotifyResponse) Payload() []byte { return nil }
func (c *WriteNotifyResponse) ToBytes() []byte { return marshal(c.Header(), nil) }

// EventMask selects which kinds of changes trigger subscription updates.
type EventMask uint16

const (
	// EventValue triggers on value changes exceeding the monitor deadband.
	EventValue EventMask = 1 << iota
	// EventLog triggers on value changes exceeding the archival deadband.
	EventLog
	// EventAlarm triggers on alarm state changes.
	EventAlarm
	// EventProperty triggers on metadata changes.
	EventProperty
)

// eventAddPayloadSize is the fixed EventAddRequest payload: three obsolete
// float32 deadband fields, the 16-bit event mask, and 16 bits of padding.
const eventAddPayloadSize = 16

// EventAddRequest opens a standing subscription on a channel. The
// subscription id stays live across any number of EventAddResponse updates
// until an EventCancelRequest completes.
type EventAddRequest struct {
	DataType       DataType
	DataCount      uint32
	SID            uint32
	SubscriptionID uint32
	Mask           EventMask
}

var _ Command = (*EventAddRequest)(nil)

// NewEventAddRequest creates a subscription request. A dataCount of 0
// subscribes to the channel's full native element count.
func NewEventAddRequest(dataType DataType, dataCount uint32, sid uint32, subscriptionID uint32, mask EventMask) *EventAddRequest {
	return &EventAddRequest{
		DataType:       dataType,
		DataCount:      dataCount,
		SID:            sid,
		SubscriptionID: subscriptionID,
		Mask:           mask,
	}
}

func (c *EventAddRequest) CommandID() uint16 { return CmdEventAdd }
func (c *EventAddRequest) Header() Header {
	return Header{
		Command:     CmdEventAdd,
		PayloadSize: eventAddPayloadSize,
		DataType:    uint16(c.DataType),
		DataCount:   c.DataCount,
		Param1:      c.SID,
		Param2:      c.SubscriptionID,
	}
}

func (c *EventAddRequest) Payload() []byte {
	buf := make([]byte, eventAddPayloadSize)
	binary.BigEndian.PutUint16(buf[12:14], uint16(c.Mask))

	return buf
}

func (c *EventAddRequest) ToBytes() []byte { return marshal(c.Header(), c.Payload()) }

// EventAddResponse carries one subscription update. An update with an empty
// payload is wire-ambiguous: it is either a zero-length array update or the
// confirmation of a pending cancellation. The circuit resolves the ambiguity
// from its subscription tables.
type EventAddResponse struct {
	Data           []byte
	DataType       DataType
	DataCount      uint32
	Status         uint32
	SubscriptionID uint32
}

var _ Command = (*EventAddResponse)(nil)

// NewEventAddResponse creates a subscription update carrying the raw DBR payload.
func NewEventAddResponse(data []byte, dataType DataType, dataCount uint32, status uint32, subscriptionID uint32) *EventAddResponse {
	return &EventAddResponse{
		Data:           padPayload(util.CloneSlice(data, 0)),
		DataType:       dataType,
		DataCount:      dataCount,
		Status:         status,
		SubscriptionID: subscriptionID,
	}
}

func (c *EventAddResponse) CommandID() uint16 { return CmdEventAdd }
func (c *EventAddResponse) Header() Header {
	return Header{
		Command:     CmdEventAdd,
		PayloadSize: uint32(len(c.Data)),
		DataType:    uint16(c.DataType),
		DataCount:   c.DataCount,
		Param1:      c.Status,
		Param2:      c.SubscriptionID,
	}
}
func (c *EventAddResponse) Payload() []byte { return c.Data }
func (c *EventAddResponse) ToBytes() []byte { return marshal(c.Header(), c.Data) }

// EventCancelRequest asks the server to end a subscription. Its sid and data
// type must match the original EventAddRequest; the data count may be 0 even
// when the original's was not.
type EventCancelRequest struct {
	DataType       DataType
	DataCount      uint32
	SID            uint32
	SubscriptionID uint32
}

var _ Command = (*EventCancelRequest)(nil)

// NewEventCancelRequest creates a subscription cancellation request.
func NewEventCancelRequest(dataType DataType, dataCount uint32, sid uint32, subscriptionID uint32) *EventCancelRequest {
	return &EventCancelRequest{DataType: dataType, DataCount: dataCount, SID: sid, SubscriptionID: subscriptionID}
}

func (c *EventCancelRequest) CommandID() uint16 { return CmdEventCancel }
func (c *EventCancelRequest) Header() Header {
	return Header{
		Command:   CmdEventCancel,
		DataType:  uint16(c.DataType),
		DataCount: c.DataCount,
		Param1:    c.SID,
		Param2:    c.SubscriptionID,
	}
}
func (c *EventCancelRequest) Payload() []byte { return nil }
func (c *EventCancelRequest) ToBytes() []byte { return marshal(c.Header(), nil) }

// EventCancelResponse confirms a subscription cancellation. On the wire it
// is an EventAdd frame with an empty payload and zero count; the decoder
// never produces this type — circuits synthesize it when an empty update
// arrives while a cancel is outstanding.
type EventCancelResponse struct {
	DataType       DataType
	SID            uint32
	SubscriptionID uint32
}

var _ Command = (*EventCancelResponse)(nil)

// NewEventCancelResponse creates a subscription cancellation confirmation.
func NewEventCancelResponse(dataType DataType, sid uint32, subscriptionID uint32) *EventCancelResponse {
	return &EventCancelResponse{DataType: dataType, SID: sid, SubscriptionID: subscriptionID}
}

func (c *EventCancelResponse) CommandID() uint16 { return CmdEventAdd }
func (c *EventCancelResponse) Header() Header {
	return Header{
		Command:  CmdEventAdd,
		DataType: uint16(c.DataType),
		Param1:   c.SID,
		Param2:   c.SubscriptionID,
	}
}
func (c *EventCancelResponse) Payload() []byte { return nil }
func (c *EventCancelResponse) ToBytes() []byte { return marshal(c.Header(), nil) }
