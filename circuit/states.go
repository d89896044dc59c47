package circuit

import "github.com/epics-go/go-ca/ca"

// CircuitState represents the lifecycle of one virtual circuit.
type CircuitState uint8

const (
	// CircuitIdle indicates that no version exchange has happened yet.
	CircuitIdle CircuitState = iota
	// CircuitConnected indicates that version negotiation is done and the
	// circuit is ready for channel traffic.
	CircuitConnected
	// CircuitDisconnected is terminal. It is reachable only via the
	// Disconnected sentinel, never via an ordinary command.
	CircuitDisconnected
)

// String returns string representation of the current state.
func (s CircuitState) String() string {
	switch s {
	case CircuitIdle:
		return "idle"
	case CircuitConnected:
		return "connected"
	case CircuitDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ChannelState represents the lifecycle of one channel.
type ChannelState uint8

const (
	// ChannelIdle indicates that no creation request has been issued.
	ChannelIdle ChannelState = iota
	// ChannelAwaitCreate indicates that a creation request is in flight.
	ChannelAwaitCreate
	// ChannelConnected indicates that the channel is ready for data traffic.
	ChannelConnected
	// ChannelMustClose indicates that a clear request is in flight; only
	// responses to earlier requests may still arrive.
	ChannelMustClose
	// ChannelClosed is reached when a clear completes or the server drops
	// the channel.
	ChannelClosed
	// ChannelFailed is reached when the server rejects channel creation.
	ChannelFailed
	// ChannelDisconnected is reached only through the circuit-level
	// Disconnected sentinel.
	ChannelDisconnected
)

// String returns string representation of the current state.
func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelAwaitCreate:
		return "await-create"
	case ChannelConnected:
		return "connected"
	case ChannelMustClose:
		return "must-close"
	case ChannelClosed:
		return "closed"
	case ChannelFailed:
		return "failed"
	case ChannelDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// bothRoles is the iteration order for the two per-role automata.
var bothRoles = [2]ca.Role{ca.ClientRole, ca.ServerRole}

type circuitKey struct {
	role  ca.Role
	state CircuitState
	kind  cmdKind
}

type channelKey struct {
	role  ca.Role
	state ChannelState
	kind  cmdKind
}

// The transition tables are total in the sense that the absence of an entry
// means "protocol violation". Both roles run the same graph in lockstep: the
// client automaton tracks what the client side has done or seen, the server
// automaton the same from the server's perspective.
var (
	circuitTable = map[circuitKey]CircuitState{}
	channelTable = map[channelKey]ChannelState{}
)

func addCircuit(from CircuitState, kind cmdKind, to CircuitState) {
	for _, role := range bothRoles {
		circuitTable[circuitKey{role, from, kind}] = to
	}
}

func addChannel(from ChannelState, kind cmdKind, to ChannelState) {
	for _, role := range bothRoles {
		channelTable[channelKey{role, from, kind}] = to
	}
}

func init() {
	// Circuit lifecycle: a version exchange connects the circuit; once
	// connected, housekeeping commands self-loop. CircuitDisconnected has no
	// outgoing edges — it is entered only via the Disconnected sentinel.
	addCircuit(CircuitIdle, kindVersionRequest, CircuitConnected)
	addCircuit(CircuitIdle, kindVersionResponse, CircuitConnected)
	for _, kind := range []cmdKind{
		kindVersionRequest, kindVersionResponse,
		kindEchoRequest, kindEchoResponse,
		kindClientName, kindHostName,
		kindError,
	} {
		addCircuit(CircuitConnected, kind, CircuitConnected)
	}

	// Channel lifecycle: create, exchange data, clear. Access rights may
	// arrive before the creation response and change at any time afterwards.
	addChannel(ChannelIdle, kindCreateChanRequest, ChannelAwaitCreate)
	addChannel(ChannelAwaitCreate, kindCreateChanResponse, ChannelConnected)
	addChannel(ChannelAwaitCreate, kindCreateChFail, ChannelFailed)
	addChannel(ChannelAwaitCreate, kindAccessRights, ChannelAwaitCreate)
	addChannel(ChannelAwaitCreate, kindServerDisconn, ChannelClosed)

	for _, kind := range []cmdKind{
		kindAccessRights,
		kindReadNotifyRequest, kindReadNotifyResponse,
		kindWriteNotifyRequest, kindWriteNotifyResponse,
		kindEventAddRequest, kindEventAddResponse,
		kindEventCancelRequest, kindEventCancelResponse,
	} {
		addChannel(ChannelConnected, kind, ChannelConnected)
	}
	addChannel(ChannelConnected, kindClearChannelRequest, ChannelMustClose)
	addChannel(ChannelConnected, kindServerDisconn, ChannelClosed)

	// In-flight responses may still drain while the clear is outstanding.
	for _, kind := range []cmdKind{
		kindAccessRights,
		kindReadNotifyResponse, kindWriteNotifyResponse,
		kindEventAddResponse, kindEventCancelResponse,
	} {
		addChannel(ChannelMustClose, kind, ChannelMustClose)
	}
	addChannel(ChannelMustClose, kindClearChannelResponse, ChannelClosed)
}
