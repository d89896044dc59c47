package ca

// ProtocolVersion is the CA minor protocol version this engine speaks.
// Circuits negotiate down to the peer's version when it is lower.
const ProtocolVersion uint16 = 13

const (
	// ServerPort is the conventional CA server TCP/UDP port.
	ServerPort = 5064
	// RepeaterPort is the conventional CA repeater UDP port.
	RepeaterPort = 5065
)

// MaxID is the exclusive upper bound for generated cid, ioid, subscription
// and search ids. Generators count up to MaxID-1, then wrap to 0 and keep
// skipping ids that are still live.
const MaxID uint32 = 1 << 16

// Search reply flags carried in a SearchRequest's data type field.
const (
	doReply   uint16 = 10
	dontReply uint16 = 5
)
