// Package circuit implements the per-TCP-connection protocol state for
// EPICS Channel Access: the VirtualCircuit command router and validator,
// the per-channel state machines, and the correlation tables that tie
// requests to responses.
//
// The package is sans-io: a transport layer feeds received bytes to Recv,
// replays each parsed command through ProcessCommand, and writes the
// buffers returned by Send to its socket. Every call runs to completion
// without blocking; a single VirtualCircuit must be driven from one logical
// thread of control at a time, or guarded by one lock held across each
// Send/Recv/ProcessCommand call.
//
// Four identifier spaces are tracked per circuit:
//   - cid: client-assigned channel ids, live for the channel lifetime.
//   - sid: server-assigned channel ids, known once creation succeeds.
//   - ioid: one-shot read/write ids, consumed when the response arrives.
//   - subscription id: standing monitor ids, live until a cancel completes.
//
// Every command, sent or received, is validated against per-role state
// transition tables; a command with no outgoing edge from the current state
// is a protocol violation and leaves all state untouched.
package circuit
