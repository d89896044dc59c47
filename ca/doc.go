// Package ca provides the wire command layer for the EPICS Channel Access (CA)
// protocol: typed command values, the 16/24-byte header codec, and streaming
// and datagram decoders.
//
// The package performs no network I/O. It converts between byte buffers and
// immutable Command values; the circuit and broadcast packages layer protocol
// state tracking on top of it.
//
// Commands come in two families:
//   - UDP commands used for name search and repeater registration
//     (VersionRequest/Response, SearchRequest/Response, Beacon,
//     RepeaterRegisterRequest, RepeaterConfirmResponse, NotFoundResponse).
//   - TCP commands exchanged over a virtual circuit (channel creation and
//     teardown, reads, writes, subscriptions, and circuit housekeeping such
//     as Echo, ClientNameRequest and HostNameRequest).
//
// Several CA command codes are shared between a request and its response and
// are disambiguated by the direction of travel, so the decoders take the
// sender's Role.
package ca
