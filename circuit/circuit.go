package circuit

import (
	"net/netip"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/epics-go/go-ca/ca"
	"github.com/epics-go/go-ca/logger"
)

// CircuitKey identifies a virtual circuit: one TCP connection to one server
// address at one QoS priority.
type CircuitKey struct {
	Addr     netip.AddrPort
	Priority uint16
}

// VirtualCircuit is the protocol state for one TCP connection. It validates
// every command, sent or received, against the circuit- and channel-level
// state tables, owns the correlation tables for all four id spaces, and
// serializes outgoing commands to transmit buffers.
//
// A VirtualCircuit performs no I/O and never blocks. It must be driven from
// one logical thread of control at a time.
type VirtualCircuit struct {
	ourRole   ca.Role
	theirRole ca.Role

	addr            netip.AddrPort
	priority        uint16
	prioritySet     bool
	protocolVersion uint16
	states          [2]CircuitState

	channels    *xsync.MapOf[uint32, *Channel]            // cid -> channel
	channelsSID *xsync.MapOf[uint32, *Channel]            // sid -> channel
	ioids       *xsync.MapOf[uint32, *Channel]            // pending read/write -> channel
	eventAdd    *xsync.MapOf[uint32, *ca.EventAddRequest] // live subscriptions
	eventCancel *xsync.MapOf[uint32, *ca.EventAddRequest] // cancels outstanding

	recvBuf []byte

	cidGen  *ca.IDGenerator
	sidGen  *ca.IDGenerator
	ioidGen *ca.IDGenerator
	subGen  *ca.IDGenerator

	log logger.Logger
}

// NewClientCircuit creates the client-side protocol state for a connection
// to addr. The priority is fixed for the circuit's lifetime.
func NewClientCircuit(addr netip.AddrPort, priority uint16) *VirtualCircuit {
	vc := newCircuit(ca.ClientRole, addr)
	vc.priority = priority
	vc.prioritySet = true

	return vc
}

// NewServerCircuit creates the server-side protocol state for an accepted
// connection from addr. The circuit's priority is fixed by the first
// VersionRequest the client sends.
func NewServerCircuit(addr netip.AddrPort) *VirtualCircuit {
	return newCircuit(ca.ServerRole, addr)
}

func newCircuit(ourRole ca.Role, addr netip.AddrPort) *VirtualCircuit {
	vc := &VirtualCircuit{
		ourRole:         ourRole,
		theirRole:       ourRole.Peer(),
		addr:            addr,
		protocolVersion: ca.ProtocolVersion,
		channels:        xsync.NewMapOf[uint32, *Channel](),
		channelsSID:     xsync.NewMapOf[uint32, *Channel](),
		ioids:           xsync.NewMapOf[uint32, *Channel](),
		eventAdd:        xsync.NewMapOf[uint32, *ca.EventAddRequest](),
		eventCancel:     xsync.NewMapOf[uint32, *ca.EventAddRequest](),
		log:             logger.With("role", ourRole.String(), "addr", addr.String()),
	}

	vc.cidGen = ca.NewIDGenerator(func(id uint32) bool {
		_, ok := vc.channels.Load(id)
		return ok
	})
	vc.sidGen = ca.NewIDGenerator(func(id uint32) bool {
		_, ok := vc.channelsSID.Load(id)
		return ok
	})
	vc.ioidGen = ca.NewIDGenerator(func(id uint32) bool {
		_, ok := vc.ioids.Load(id)
		return ok
	})
	vc.subGen = ca.NewIDGenerator(func(id uint32) bool {
		if _, ok := vc.eventAdd.Load(id); ok {
			return true
		}
		_, ok := vc.eventCancel.Load(id)
		return ok
	})

	return vc
}

// Key returns the circuit's identity.
func (vc *VirtualCircuit) Key() CircuitKey {
	return CircuitKey{Addr: vc.addr, Priority: vc.priority}
}

// OurRole returns the role this circuit plays.
func (vc *VirtualCircuit) OurRole() ca.Role { return vc.ourRole }

// SetLogger replaces the logger used for protocol diagnostics. Channels
// created before the call keep the previous logger.
func (vc *VirtualCircuit) SetLogger(l logger.Logger) { vc.log = l }

// Priority returns the circuit priority and whether it has been fixed yet.
func (vc *VirtualCircuit) Priority() (uint16, bool) { return vc.priority, vc.prioritySet }

// ProtocolVersion returns the currently negotiated protocol version.
func (vc *VirtualCircuit) ProtocolVersion() uint16 { return vc.protocolVersion }

// State returns the circuit-level state of the automaton for the given role.
func (vc *VirtualCircuit) State(role ca.Role) CircuitState { return vc.states[role] }

// ChannelByCID returns the live channel with the given client id.
func (vc *VirtualCircuit) ChannelByCID(cid uint32) (*Channel, bool) {
	return vc.channels.Load(cid)
}

// ChannelBySID returns the live channel with the given server id.
func (vc *VirtualCircuit) ChannelBySID(sid uint32) (*Channel, bool) {
	return vc.channelsSID.Load(sid)
}

// NewChannelID returns an unused cid.
func (vc *VirtualCircuit) NewChannelID() uint32 { return vc.cidGen.Next() }

// NewServerID returns an unused sid.
func (vc *VirtualCircuit) NewServerID() uint32 { return vc.sidGen.Next() }

// NewIOID returns an unused ioid.
func (vc *VirtualCircuit) NewIOID() uint32 { return vc.ioidGen.Next() }

// NewSubscriptionID returns an unused subscription id.
func (vc *VirtualCircuit) NewSubscriptionID() uint32 { return vc.subGen.Next() }

// Send validates each command exactly like incoming traffic and serializes
// it. It returns one transmit buffer per command; the transport writes them
// to its socket in order. On a validation error nothing past the offending
// command is serialized.
func (vc *VirtualCircuit) Send(cmds ...ca.Command) ([][]byte, error) {
	bufs := make([][]byte, 0, len(cmds))
	for _, cmd := range cmds {
		if err := vc.process(vc.ourRole, cmd); err != nil {
			return bufs, err
		}
		bufs = append(bufs, cmd.ToBytes())
	}

	return bufs, nil
}

// Recv buffers received bytes and parses as many complete commands as they
// contain. It returns the parsed commands and the number of additional
// bytes needed before the next command can be parsed.
//
// A zero-length buffer means the transport saw EOF; it is translated into
// the Disconnected sentinel after every complete buffered command has been
// returned. Recv performs no validation — the caller must replay every
// returned command through ProcessCommand.
func (vc *VirtualCircuit) Recv(bufs ...[]byte) ([]ca.Command, int, error) {
	eof := false
	for _, buf := range bufs {
		if len(buf) == 0 {
			eof = true
			continue
		}
		vc.recvBuf = append(vc.recvBuf, buf...)
	}

	var cmds []ca.Command
	for {
		cmd, consumed, needed, err := ca.DecodeCommand(vc.theirRole, vc.recvBuf)
		if err != nil {
			return cmds, 0, err
		}
		if needed > 0 {
			if eof {
				return append(cmds, ca.Disconnected{}), 0, nil
			}
			return cmds, needed, nil
		}
		vc.recvBuf = vc.recvBuf[consumed:]
		cmds = append(cmds, cmd)
	}
}

// Disconnect returns the sentinel the transport replays through
// ProcessCommand when the connection ends, so that the circuit and every
// channel observe the disconnection through the normal command path.
func (vc *VirtualCircuit) Disconnect() ca.Command {
	return ca.Disconnected{}
}

// ProcessCommand validates one received command against the state tables,
// routes it to its channel if it is channel-scoped, and applies its side
// effects to the correlation tables. A protocol violation is reported as an
// error wrapping ca.ErrLocalProtocol or ca.ErrRemoteProtocol and leaves all
// state unchanged.
func (vc *VirtualCircuit) ProcessCommand(cmd ca.Command) error {
	return vc.process(vc.theirRole, cmd)
}

func (vc *VirtualCircuit) process(sender ca.Role, cmd ca.Command) error {
	if _, ok := cmd.(ca.Disconnected); ok {
		vc.handleDisconnect(cmd)
		return nil
	}

	// A subscription update with an empty payload is wire-ambiguous: it is
	// either a zero-length array update or the confirmation of a pending
	// cancellation. Resolve it from the subscription tables. This heuristic
	// can misclassify under adversarial timing; the ambiguity is in the
	// protocol itself.
	if resp, ok := cmd.(*ca.EventAddResponse); ok && len(resp.Data) == 0 {
		if orig, outstanding := vc.eventCancel.Load(resp.SubscriptionID); outstanding {
			cmd = ca.NewEventCancelResponse(orig.DataType, orig.SID, resp.SubscriptionID)
		} else if _, active := vc.eventAdd.Load(resp.SubscriptionID); !active {
			// A cancellation completed while an empty update was in flight.
			vc.log.Debug("dropping empty update for unknown subscription",
				"subscriptionid", resp.SubscriptionID)
			return nil
		}
	}

	kind := kindOf(cmd)
	if isChannelKind(kind) {
		return vc.processChannelCommand(sender, kind, cmd)
	}

	return vc.processCircuitCommand(sender, kind, cmd)
}

// handleDisconnect drives the circuit and every live channel into their
// terminal disconnected states. It is idempotent.
func (vc *VirtualCircuit) handleDisconnect(cmd ca.Command) {
	for _, role := range bothRoles {
		if vc.states[role] == CircuitDisconnected {
			continue
		}
		vc.log.Debug("circuit state transition",
			"role", role.String(), "from", vc.states[role].String(), "to", CircuitDisconnected.String())
		vc.states[role] = CircuitDisconnected
	}

	vc.channels.Range(func(_ uint32, ch *Channel) bool {
		ch.disconnect(cmd)
		return true
	})
}

// processCircuitCommand drives the circuit-level automata for both roles.
// Version commands additionally negotiate the protocol version and pin the
// circuit priority.
func (vc *VirtualCircuit) processCircuitCommand(sender ca.Role, kind cmdKind, cmd ca.Command) error {
	if kind == kindUnknown {
		return ca.Violation(vc.ourRole, sender, "command %s is not valid on a circuit", ca.CommandName(cmd.CommandID()))
	}

	// A version 0 response is a legacy no-data echo from servers that
	// predate negotiation; it carries no information.
	if rsp, ok := cmd.(*ca.VersionResponse); ok && rsp.Version == 0 {
		vc.log.Debug("ignoring legacy version response")
		return nil
	}

	var proposed [2]CircuitState
	for _, role := range bothRoles {
		next, ok := circuitTable[circuitKey{role, vc.states[role], kind}]
		if !ok {
			return ca.Violation(vc.ourRole, sender,
				"circuit (%s side %s) cannot process %s", role, vc.states[role], kind)
		}
		proposed[role] = next
	}

	// Validate version extras before committing any state.
	switch c := cmd.(type) {
	case *ca.VersionRequest:
		if vc.prioritySet && c.Priority != vc.priority {
			return ca.Violation(vc.ourRole, sender,
				"priority %d does not match the circuit's fixed priority %d", c.Priority, vc.priority)
		}
	}

	for _, role := range bothRoles {
		if proposed[role] == vc.states[role] {
			continue
		}
		vc.log.Debug("circuit state transition",
			"role", role.String(), "from", vc.states[role].String(), "to", proposed[role].String(),
			"command", kind.String())
		vc.states[role] = proposed[role]
	}

	switch c := cmd.(type) {
	case *ca.VersionRequest:
		if !vc.prioritySet {
			vc.priority = c.Priority
			vc.prioritySet = true
		}
		vc.negotiateVersion(c.Version)
	case *ca.VersionResponse:
		vc.negotiateVersion(c.Version)
	}

	return nil
}

// negotiateVersion settles on the lower of our and the peer's protocol
// versions and propagates the result to every live channel.
func (vc *VirtualCircuit) negotiateVersion(peer uint16) {
	version := min(vc.protocolVersion, peer)
	if version == vc.protocolVersion {
		return
	}
	vc.protocolVersion = version
	vc.channels.Range(func(_ uint32, ch *Channel) bool {
		ch.setProtocolVersion(version)
		return true
	})
}

// processChannelCommand routes a channel-scoped command to its owning
// channel, cross-checks subscription fields, delegates to the channel's
// state machine, and applies the command's side effects to the correlation
// tables.
func (vc *VirtualCircuit) processChannelCommand(sender ca.Role, kind cmdKind, cmd ca.Command) error {
	if vc.states[sender] != CircuitConnected {
		return ca.Violation(vc.ourRole, sender,
			"%s before version exchange (circuit %s)", kind, vc.states[sender])
	}

	ch, err := vc.lookupChannel(sender, cmd)
	if err != nil {
		return err
	}

	if err := vc.checkSubscriptionFields(sender, cmd); err != nil {
		return err
	}

	if _, err := ch.processCommand(sender, cmd); err != nil {
		return err
	}

	vc.applySideEffects(ch, cmd)

	return nil
}

// lookupChannel resolves the owning channel using whichever identifier the
// command type carries: cid for creation-path commands, sid for requests
// targeting an existing server-side channel, ioid for read/write responses,
// and the stored subscribe command for subscription updates. A
// CreateChanRequest for an unseen cid instantiates the channel.
func (vc *VirtualCircuit) lookupChannel(sender ca.Role, cmd ca.Command) (*Channel, error) {
	byCID := func(cid uint32) (*Channel, error) {
		ch, ok := vc.channels.Load(cid)
		if !ok {
			return nil, ca.Violation(vc.ourRole, sender, "unknown cid %d in %s", cid, ca.CommandName(cmd.CommandID()))
		}
		return ch, nil
	}
	bySID := func(sid uint32) (*Channel, error) {
		ch, ok := vc.channelsSID.Load(sid)
		if !ok {
			return nil, ca.Violation(vc.ourRole, sender, "unknown sid %d in %s", sid, ca.CommandName(cmd.CommandID()))
		}
		return ch, nil
	}
	byIOID := func(ioid uint32) (*Channel, error) {
		ch, ok := vc.ioids.Load(ioid)
		if !ok {
			return nil, ca.Violation(vc.ourRole, sender, "unknown ioid %d in %s", ioid, ca.CommandName(cmd.CommandID()))
		}
		return ch, nil
	}
	bySubscription := func(table *xsync.MapOf[uint32, *ca.EventAddRequest], id uint32) (*Channel, error) {
		orig, ok := table.Load(id)
		if !ok {
			return nil, ca.Violation(vc.ourRole, sender, "no active subscription %d", id)
		}
		return bySID(orig.SID)
	}

	switch c := cmd.(type) {
	case *ca.CreateChanRequest:
		if ch, ok := vc.channels.Load(c.CID); ok {
			return ch, nil
		}
		return newChannel(vc, c.Name, c.CID)

	case *ca.CreateChanResponse:
		return byCID(c.CID)
	case *ca.CreateChFailResponse:
		return byCID(c.CID)
	case *ca.AccessRightsResponse:
		return byCID(c.CID)
	case *ca.ServerDisconnResponse:
		return byCID(c.CID)

	case *ca.ClearChannelRequest:
		return bySID(c.SID)
	case *ca.ClearChannelResponse:
		return bySID(c.SID)
	case *ca.ReadNotifyRequest:
		return bySID(c.SID)
	case *ca.WriteNotifyRequest:
		return bySID(c.SID)
	case *ca.EventAddRequest:
		return bySID(c.SID)
	case *ca.EventCancelRequest:
		return bySID(c.SID)

	case *ca.ReadNotifyResponse:
		return byIOID(c.IOID)
	case *ca.WriteNotifyResponse:
		return byIOID(c.IOID)

	case *ca.EventAddResponse:
		return bySubscription(vc.eventAdd, c.SubscriptionID)
	case *ca.EventCancelResponse:
		return bySubscription(vc.eventCancel, c.SubscriptionID)
	}

	return nil, ca.Violation(vc.ourRole, sender, "command %s cannot be routed to a channel", ca.CommandName(cmd.CommandID()))
}

// checkSubscriptionFields cross-checks subscription commands against the
// stored original subscribe request.
func (vc *VirtualCircuit) checkSubscriptionFields(sender ca.Role, cmd ca.Command) error {
	switch c := cmd.(type) {
	case *ca.EventAddResponse:
		orig, ok := vc.eventAdd.Load(c.SubscriptionID)
		if !ok {
			return ca.Violation(vc.ourRole, sender, "no active subscription %d", c.SubscriptionID)
		}
		if c.DataType != orig.DataType {
			return ca.Violation(vc.ourRole, sender,
				"subscription %d update data type %d does not match the request's %d",
				c.SubscriptionID, c.DataType, orig.DataType)
		}
		// A request count of 0 subscribes to a dynamic element count, so any
		// response count is acceptable.
		if orig.DataCount != 0 && c.DataCount != orig.DataCount {
			return ca.Violation(vc.ourRole, sender,
				"subscription %d update data count %d does not match the request's %d",
				c.SubscriptionID, c.DataCount, orig.DataCount)
		}

	case *ca.EventCancelRequest:
		orig, ok := vc.eventAdd.Load(c.SubscriptionID)
		if !ok {
			return ca.Violation(vc.ourRole, sender, "no active subscription %d", c.SubscriptionID)
		}
		if c.SID != orig.SID {
			return ca.Violation(vc.ourRole, sender,
				"cancel sid %d does not match subscription %d's sid %d", c.SID, c.SubscriptionID, orig.SID)
		}
		if c.DataType != orig.DataType {
			return ca.Violation(vc.ourRole, sender,
				"cancel data type %d does not match subscription %d's %d", c.DataType, c.SubscriptionID, orig.DataType)
		}
		// Some clients send a cancel with count 0 even when the original
		// request's count was not; the protocol tolerates it.
		if c.DataCount != 0 && c.DataCount != orig.DataCount {
			return ca.Violation(vc.ourRole, sender,
				"cancel data count %d does not match subscription %d's %d", c.DataCount, c.SubscriptionID, orig.DataCount)
		}
	}

	return nil
}

// applySideEffects mutates the correlation tables after a command cleared
// the channel state machine.
func (vc *VirtualCircuit) applySideEffects(ch *Channel, cmd ca.Command) {
	switch c := cmd.(type) {
	case *ca.CreateChanResponse:
		ch.sid = c.SID
		ch.nativeDataType = c.DataType
		ch.nativeDataCount = c.DataCount
		vc.channelsSID.Store(c.SID, ch)

	case *ca.AccessRightsResponse:
		ch.accessRights = c.AccessRights

	case *ca.ClearChannelResponse:
		vc.destroyChannel(ch)
	case *ca.ServerDisconnResponse:
		vc.destroyChannel(ch)

	case *ca.ReadNotifyRequest:
		vc.ioids.Store(c.IOID, ch)
	case *ca.WriteNotifyRequest:
		vc.ioids.Store(c.IOID, ch)

	case *ca.ReadNotifyResponse:
		vc.ioids.Delete(c.IOID)
	case *ca.WriteNotifyResponse:
		vc.ioids.Delete(c.IOID)

	case *ca.EventAddRequest:
		vc.eventAdd.Store(c.SubscriptionID, c)

	case *ca.EventCancelRequest:
		if orig, ok := vc.eventAdd.LoadAndDelete(c.SubscriptionID); ok {
			vc.eventCancel.Store(c.SubscriptionID, orig)
		}

	case *ca.EventCancelResponse:
		vc.eventAdd.Delete(c.SubscriptionID)
		vc.eventCancel.Delete(c.SubscriptionID)
	}
}

// destroyChannel removes a channel from both id tables and purges any
// pending ioids that point at it.
func (vc *VirtualCircuit) destroyChannel(ch *Channel) {
	vc.channels.Delete(ch.cid)
	vc.channelsSID.Delete(ch.sid)
	vc.ioids.Range(func(ioid uint32, owner *Channel) bool {
		if owner == ch {
			vc.ioids.Delete(ioid)
		}
		return true
	})
}

// addChannel binds a freshly constructed channel into the cid table.
func (vc *VirtualCircuit) addChannel(ch *Channel) error {
	if _, loaded := vc.channels.LoadOrStore(ch.cid, ch); loaded {
		return ca.Violation(vc.ourRole, vc.ourRole, "cid %d already in use on this circuit", ch.cid)
	}

	return nil
}
