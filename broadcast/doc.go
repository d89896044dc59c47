// Package broadcast implements the protocol state for one UDP socket used
// for name searches, beacons, and repeater registration.
//
// A Broadcaster performs no I/O. The transport hands it received datagrams
// with Recv, drains parsed commands with NextCommand, and sends the bytes
// returned by Send. Ordering rules are enforced per datagram: a search must
// travel in the same datagram as a version command.
package broadcast
