package ca

import "encoding/binary"

const (
	// HeaderSize is the size of the standard CA command header in bytes.
	HeaderSize = 16
	// ExtendedHeaderSize is the size of the large-payload header form in bytes.
	ExtendedHeaderSize = 24

	// extendedMarker in the 16-bit payload size field, combined with a zero
	// data count field, selects the extended header form.
	extendedMarker = 0xFFFF
)

// Header is the fixed-layout preamble of every CA command. All fields are
// big-endian on the wire.
//
// The standard form packs PayloadSize and DataCount into 16 bits each. When
// either exceeds that range the extended form is used: the 16-bit payload
// size field holds 0xFFFF, the 16-bit count field holds 0, and the true
// 32-bit values follow the standard header.
type Header struct {
	Command     uint16
	PayloadSize uint32
	DataType    uint16
	DataCount   uint32
	Param1      uint32
	Param2      uint32
}

// IsExtended reports whether the header must be encoded in the extended
// large-payload form.
func (h Header) IsExtended() bool {
	return h.PayloadSize >= extendedMarker || h.DataCount > 0xFFFF
}

// Marshal returns the wire encoding of the header, choosing the standard or
// extended form as required by the field values.
func (h Header) Marshal() []byte {
	if h.IsExtended() {
		buf := make([]byte, ExtendedHeaderSize)
		binary.BigEndian.PutUint16(buf[0:2], h.Command)
		binary.BigEndian.PutUint16(buf[2:4], extendedMarker)
		binary.BigEndian.PutUint16(buf[4:6], h.DataType)
		// bytes 6:8 stay zero, marking the extended form
		binary.BigEndian.PutUint32(buf[8:12], h.Param1)
		binary.BigEndian.PutUint32(buf[12:16], h.Param2)
		binary.BigEndian.PutUint32(buf[16:20], h.PayloadSize)
		binary.BigEndian.PutUint32(buf[20:24], h.DataCount)

		return buf
	}

	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.Command)
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.PayloadSize))
	binary.BigEndian.PutUint16(buf[4:6], h.DataType)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.DataCount))
	binary.BigEndian.PutUint32(buf[8:12], h.Param1)
	binary.BigEndian.PutUint32(buf[12:16], h.Param2)

	return buf
}

// unmarshalHeader decodes one header from data.
//
// It returns the decoded header and the number of bytes it occupied. When
// data is too short it returns needed > 0, the number of additional bytes
// required before the header can be decoded.
func unmarshalHeader(data []byte) (hdr Header, size int, needed int) {
	if len(data) < HeaderSize {
		return Header{}, 0, HeaderSize - len(data)
	}

	hdr.Command = binary.BigEndian.Uint16(data[0:2])
	payloadSize := binary.BigEndian.Uint16(data[2:4])
	hdr.DataType = binary.BigEndian.Uint16(data[4:6])
	dataCount := binary.BigEndian.Uint16(data[6:8])
	hdr.Param1 = binary.BigEndian.Uint32(data[8:12])
	hdr.Param2 = binary.BigEndian.Uint32(data[12:16])

	if payloadSize == extendedMarker && dataCount == 0 {
		if len(data) < ExtendedHeaderSize {
			return Header{}, 0, ExtendedHeaderSize - len(data)
		}
		hdr.PayloadSize = binary.BigEndian.Uint32(data[16:20])
		hdr.DataCount = binary.BigEndian.Uint32(data[20:24])

		return hdr, ExtendedHeaderSize, 0
	}

	hdr.PayloadSize = uint32(payloadSize)
	hdr.DataCount = uint32(dataCount)

	return hdr, HeaderSize, 0
}
