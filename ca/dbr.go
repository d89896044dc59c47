package ca

// DataType is a CA DBR type code. The base codes 0-6 identify the value
// representation; adding a variant offset selects a representation bundled
// with status, timestamp, graphic or control metadata.
type DataType uint16

// Base DBR type codes.
const (
	DBRString DataType = 0
	DBRShort  DataType = 1
	DBRFloat  DataType = 2
	DBREnum   DataType = 3
	DBRChar   DataType = 4
	DBRLong   DataType = 5
	DBRDouble DataType = 6
)

// Variant selects which metadata bundle accompanies a value in read and
// subscribe operations. VariantNative requests the bare value.
type Variant uint8

const (
	VariantNative Variant = iota
	VariantStatus
	VariantTime
	VariantGraphic
	VariantControl
)

// Variant offsets added to a base DBR type code.
const (
	statusOffset  DataType = 7
	timeOffset    DataType = 14
	graphicOffset DataType = 21
	controlOffset DataType = 28
)

// Promote resolves a variant against a native type code, returning the DBR
// type that carries the native value representation plus the variant's
// metadata. A type that already carries a variant offset is first reduced to
// its base type.
func Promote(native DataType, variant Variant) DataType {
	base := native % 7

	switch variant {
	case VariantStatus:
		return base + statusOffset
	case VariantTime:
		return base + timeOffset
	case VariantGraphic:
		return base + graphicOffset
	case VariantControl:
		return base + controlOffset
	default:
		return base
	}
}

// String returns string representation of the variant.
func (v Variant) String() string {
	switch v {
	case VariantNative:
		return "native"
	case VariantStatus:
		return "status"
	case VariantTime:
		return "time"
	case VariantGraphic:
		return "graphic"
	case VariantControl:
		return "control"
	default:
		return "unknown"
	}
}

// AccessRights is the bitmask a server grants a client on one channel.
type AccessRights uint32

const (
	NoAccess    AccessRights = 0
	ReadAccess  AccessRights = 1
	WriteAccess AccessRights = 2
	ReadWrite   AccessRights = ReadAccess | WriteAccess
)

// CanRead reports whether the rights include read access.
func (a AccessRights) CanRead() bool { return a&ReadAccess != 0 }

// CanWrite reports whether the rights include write access.
func (a AccessRights) CanWrite() bool { return a&WriteAccess != 0 }
