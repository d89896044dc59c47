package circuit

import (
	"github.com/epics-go/go-ca/ca"
	"github.com/epics-go/go-ca/logger"
)

// Transition records one state change of one of a channel's per-role
// automata. ProcessCommand returns the transitions a command actually
// caused, so the owner can react to them (notify observers, resolve
// futures); deciding what to do with a transition is outside this engine.
type Transition struct {
	Role    ca.Role
	From    ChannelState
	To      ChannelState
	Command ca.Command
}

// Channel is the protocol state for one process variable on one circuit.
// It owns no network resources; its circuit routes commands to it and
// applies the resulting side effects to the correlation tables.
type Channel struct {
	circuit         *VirtualCircuit
	name            string
	cid             uint32
	sid             uint32
	nativeDataType  ca.DataType
	nativeDataCount uint32
	accessRights    ca.AccessRights
	protocolVersion uint16
	states          [2]ChannelState
	log             logger.Logger
}

// NewChannel creates a channel for the named process variable with an
// auto-assigned cid and binds it into the circuit's cid table immediately,
// before any network exchange.
func NewChannel(vc *VirtualCircuit, name string) (*Channel, error) {
	return newChannel(vc, name, vc.NewChannelID())
}

// NewChannelWithCID creates a channel with a caller-chosen cid. The cid
// must not collide with a live channel on the circuit.
func NewChannelWithCID(vc *VirtualCircuit, name string, cid uint32) (*Channel, error) {
	return newChannel(vc, name, cid)
}

func newChannel(vc *VirtualCircuit, name string, cid uint32) (*Channel, error) {
	ch := &Channel{
		circuit:         vc,
		name:            name,
		cid:             cid,
		nativeDataCount: 1,
		protocolVersion: vc.protocolVersion,
		log:             vc.log.With("pv", name, "cid", cid),
	}

	if err := vc.addChannel(ch); err != nil {
		return nil, err
	}

	return ch, nil
}

// Name returns the process variable name.
func (ch *Channel) Name() string { return ch.name }

// CID returns the client-assigned channel id.
func (ch *Channel) CID() uint32 { return ch.cid }

// SID returns the server-assigned channel id. It is 0 until a successful
// creation response has been processed.
func (ch *Channel) SID() uint32 { return ch.sid }

// NativeDataType returns the channel's native DBR type, known once creation
// succeeds.
func (ch *Channel) NativeDataType() ca.DataType { return ch.nativeDataType }

// NativeDataCount returns the channel's native element count, known once
// creation succeeds.
func (ch *Channel) NativeDataCount() uint32 { return ch.nativeDataCount }

// AccessRights returns the rights most recently granted by the server.
func (ch *Channel) AccessRights() ca.AccessRights { return ch.accessRights }

// ProtocolVersion returns the negotiated protocol version the channel
// operates under.
func (ch *Channel) ProtocolVersion() uint16 { return ch.protocolVersion }

// Circuit returns the owning virtual circuit.
func (ch *Channel) Circuit() *VirtualCircuit { return ch.circuit }

// State returns the current state of the automaton for the given role.
func (ch *Channel) State(role ca.Role) ChannelState { return ch.states[role] }

// ProcessCommand advances the channel's automata with a command received
// from the peer. It is normally invoked by the circuit's command dispatch;
// calling it directly bypasses the circuit's correlation bookkeeping.
func (ch *Channel) ProcessCommand(cmd ca.Command) ([]Transition, error) {
	return ch.processCommand(ch.circuit.theirRole, cmd)
}

// processCommand advances both per-role automata by table lookup. Either
// both lookups hit and the new states are committed, or nothing changes and
// a protocol violation is raised.
func (ch *Channel) processCommand(sender ca.Role, cmd ca.Command) ([]Transition, error) {
	kind := kindOf(cmd)

	var proposed [2]ChannelState
	for _, role := range bothRoles {
		next, ok := channelTable[channelKey{role, ch.states[role], kind}]
		if !ok {
			return nil, ca.Violation(ch.circuit.ourRole, sender,
				"channel %q (%s side %s) cannot process %s", ch.name, role, ch.states[role], kind)
		}
		proposed[role] = next
	}

	return ch.commit(proposed, cmd), nil
}

// disconnect forces both automata into ChannelDisconnected. Only the
// circuit's Disconnected sentinel handling calls it.
func (ch *Channel) disconnect(cmd ca.Command) []Transition {
	return ch.commit([2]ChannelState{ChannelDisconnected, ChannelDisconnected}, cmd)
}

func (ch *Channel) commit(proposed [2]ChannelState, cmd ca.Command) []Transition {
	var transitions []Transition
	for _, role := range bothRoles {
		if proposed[role] == ch.states[role] {
			continue
		}
		transitions = append(transitions, Transition{
			Role:    role,
			From:    ch.states[role],
			To:      proposed[role],
			Command: cmd,
		})
		ch.log.Debug("channel state transition",
			"role", role.String(), "from", ch.states[role].String(), "to", proposed[role].String(),
			"command", kindOf(cmd).String())
		ch.states[role] = proposed[role]
	}

	return transitions
}

// setProtocolVersion is called by the circuit when version negotiation
// settles.
func (ch *Channel) setProtocolVersion(version uint16) {
	ch.protocolVersion = version
}
