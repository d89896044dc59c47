package ca

import (
	"errors"
	"fmt"
)

var (
	// ErrLocalProtocol indicates that our own side is about to violate the
	// CA protocol, e.g. sending a search before repeater registration or
	// fixing a circuit's priority twice.
	ErrLocalProtocol = errors.New("local protocol violation")

	// ErrRemoteProtocol indicates that the peer violated the CA protocol,
	// e.g. referencing an unknown ioid, sid or subscription id.
	ErrRemoteProtocol = errors.New("remote protocol violation")

	// ErrNeedData indicates that no complete command is available yet and
	// more bytes (or another datagram) must be received first.
	ErrNeedData = errors.New("need more data")
)

var (
	// ErrTruncatedDatagram indicates that a UDP payload ended in the middle
	// of a command.
	ErrTruncatedDatagram = errors.New("truncated datagram")

	// ErrUnknownCommandID indicates a command code this implementation does
	// not recognize for the given direction of travel.
	ErrUnknownCommandID = errors.New("unknown command id")
)

// Violation reports a protocol violation caused by a command travelling from
// sender. The error wraps ErrLocalProtocol when the offending traffic is our
// own (sender == ours) and ErrRemoteProtocol otherwise, so callers can
// distinguish the two kinds with errors.Is.
func Violation(ours Role, sender Role, format string, args ...any) error {
	kind := ErrRemoteProtocol
	if sender == ours {
		kind = ErrLocalProtocol
	}

	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
