package broadcast

import (
	"net/netip"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/epics-go/go-ca/ca"
	"github.com/epics-go/go-ca/internal/queue"
	"github.com/epics-go/go-ca/logger"
)

// Datagram is one received UDP payload together with its sender address.
type Datagram struct {
	Payload []byte
	Addr    netip.AddrPort
}

// Broadcaster is the protocol state for one UDP socket. It owns the table
// of unanswered searches, the repeater registration flag, and the inbox of
// received-but-unparsed datagrams.
//
// Recv may be called from a receive goroutine while another drains
// NextCommand; everything else must be driven from one logical thread of
// control at a time.
type Broadcaster struct {
	ourRole   ca.Role
	theirRole ca.Role

	protocolVersion uint16
	registered      bool

	unanswered *xsync.MapOf[uint32, string] // pending search cid -> name
	answered   *xsync.MapOf[uint32, string] // answered search cid -> name

	inbox   queue.Queue[Datagram]
	cmds    queue.Queue[ca.Command]
	history []ca.Command // commands seen in the received datagram being drained

	searchGen *ca.IDGenerator

	log logger.Logger
}

// NewClientBroadcaster creates the client-side protocol state for a UDP
// socket. The client must register with the repeater before any other
// traffic.
func NewClientBroadcaster() *Broadcaster {
	return newBroadcaster(ca.ClientRole)
}

// NewServerBroadcaster creates the server-side protocol state for a UDP
// socket. Servers do not register with a repeater, so the broadcaster
// starts out registered.
func NewServerBroadcaster() *Broadcaster {
	b := newBroadcaster(ca.ServerRole)
	b.registered = true

	return b
}

func newBroadcaster(ourRole ca.Role) *Broadcaster {
	b := &Broadcaster{
		ourRole:         ourRole,
		theirRole:       ourRole.Peer(),
		protocolVersion: ca.ProtocolVersion,
		unanswered:      xsync.NewMapOf[uint32, string](),
		answered:        xsync.NewMapOf[uint32, string](),
		inbox:           queue.NewLockFreeQueue[Datagram](),
		cmds:            queue.NewSliceQueue[ca.Command](16),
		log:             logger.With("role", ourRole.String(), "transport", "udp"),
	}

	b.searchGen = ca.NewIDGenerator(func(id uint32) bool {
		_, ok := b.unanswered.Load(id)
		return ok
	})

	return b
}

// SetLogger replaces the logger used for protocol diagnostics.
func (b *Broadcaster) SetLogger(l logger.Logger) { b.log = l }

// Registered reports whether the repeater registration handshake has
// completed.
func (b *Broadcaster) Registered() bool { return b.registered }

// ProtocolVersion returns the lowest protocol version observed so far.
func (b *Broadcaster) ProtocolVersion() uint16 { return b.protocolVersion }

// Send validates each command and concatenates their wire encodings into
// one datagram payload. The commands form a single datagram, so ordering
// rules apply across the whole argument list. The outgoing history is local
// to the call: interleaving a Send does not disturb a received datagram
// still being drained by NextCommand.
func (b *Broadcaster) Send(cmds ...ca.Command) ([]byte, error) {
	history := make([]ca.Command, 0, len(cmds))

	var buf []byte
	for _, cmd := range cmds {
		if err := b.process(b.ourRole, cmd, &history); err != nil {
			return nil, err
		}
		buf = append(buf, cmd.ToBytes()...)
	}

	return buf, nil
}

// Recv appends a received datagram to the inbox. It performs no parsing:
// the cost of decoding is deferred to the NextCommand caller's schedule.
func (b *Broadcaster) Recv(payload []byte, addr netip.AddrPort) {
	b.inbox.Enqueue(Datagram{Payload: payload, Addr: addr})
}

// NextCommand parses and validates one received command. When the parsed
// command queue is empty it pops the next datagram from the inbox and
// decodes it as a batch; the per-datagram ordering history resets at that
// point. It returns ca.ErrNeedData when no datagram is waiting, including
// after an empty datagram.
func (b *Broadcaster) NextCommand() (ca.Command, error) {
	if b.cmds.IsEmpty() {
		dgram, ok := b.inbox.Dequeue()
		if !ok {
			return nil, ca.ErrNeedData
		}

		b.history = b.history[:0]
		batch, err := ca.DecodeDatagram(b.theirRole, dgram.Payload)
		if err != nil {
			return nil, err
		}
		for _, cmd := range batch {
			b.cmds.Enqueue(cmd)
		}
	}

	cmd, ok := b.cmds.Dequeue()
	if !ok {
		return nil, ca.ErrNeedData
	}

	if err := b.process(b.theirRole, cmd, &b.history); err != nil {
		return nil, err
	}

	return cmd, nil
}

// Disconnect clears the registration flag. Pending searches survive: the
// socket may re-register and the answers remain valid.
func (b *Broadcaster) Disconnect() {
	if b.ourRole == ca.ClientRole {
		b.registered = false
	}
}

// NewSearchID returns an unused search cid.
func (b *Broadcaster) NewSearchID() uint32 { return b.searchGen.Next() }

// Search builds the paired commands that look up a process variable by
// name. The two must travel in the same datagram.
func (b *Broadcaster) Search(name string) (*ca.VersionRequest, *ca.SearchRequest) {
	return ca.NewVersionRequest(0, b.protocolVersion),
		ca.NewSearchRequest(name, b.NewSearchID(), b.protocolVersion, false)
}

// Register builds the repeater registration request for the given local
// address.
func (b *Broadcaster) Register(clientAddr netip.Addr) *ca.RepeaterRegisterRequest {
	return ca.NewRepeaterRegisterRequest(clientAddr)
}

// SearchName returns the name a pending search cid was issued for.
func (b *Broadcaster) SearchName(cid uint32) (string, bool) {
	return b.unanswered.Load(cid)
}

// process validates one command, in either direction, against the given
// datagram's ordering history and the search correlation table, then
// appends it to that history.
func (b *Broadcaster) process(sender ca.Role, cmd ca.Command, history *[]ca.Command) error {
	if err := b.checkRegistration(sender, cmd); err != nil {
		return err
	}

	switch c := cmd.(type) {
	case *ca.RepeaterConfirmResponse:
		b.registered = true

	case *ca.VersionRequest:
		b.noteVersion(c.Version)
	case *ca.VersionResponse:
		b.noteVersion(c.Version)
	case *ca.Beacon:
		b.noteVersion(c.Version)

	case *ca.SearchRequest:
		if !historyHas(*history, ca.CmdVersion, true) {
			return ca.Violation(b.ourRole, sender,
				"search for %q must follow a version command in the same datagram", c.Name)
		}
		b.unanswered.Store(c.CID, c.Name)

	case *ca.SearchResponse:
		if !historyHas(*history, ca.CmdVersion, false) {
			return ca.Violation(b.ourRole, sender,
				"search response for cid %d must follow a version command in the same datagram", c.CID)
		}
		name, ok := b.unanswered.LoadAndDelete(c.CID)
		if !ok {
			// A duplicate answer for an already-resolved search is benign;
			// servers legitimately race each other to respond.
			if _, dup := b.answered.Load(c.CID); dup {
				b.log.Debug("duplicate search response", "cid", c.CID)
				break
			}
			return ca.Violation(b.ourRole, sender, "search response for unknown cid %d", c.CID)
		}
		b.answered.Store(c.CID, name)

	case *ca.NotFoundResponse:
		// Sent only when the search asked for a definitive reply. Stale
		// ones are tolerated; the search stays pending for retries.
		if _, ok := b.unanswered.Load(c.CID); !ok {
			b.log.Debug("not-found response for unknown cid", "cid", c.CID)
		}
	}

	*history = append(*history, cmd)

	return nil
}

// checkRegistration rejects client traffic sent before the repeater
// registration handshake completed.
func (b *Broadcaster) checkRegistration(sender ca.Role, cmd ca.Command) error {
	if sender != ca.ClientRole || b.registered {
		return nil
	}

	switch cmd.(type) {
	case *ca.RepeaterRegisterRequest, *ca.RepeaterConfirmResponse:
		return nil
	}

	return ca.Violation(b.ourRole, sender,
		"%s before repeater registration", ca.CommandName(cmd.CommandID()))
}

// historyHas reports whether the datagram history already carries a command
// with the given code in the given direction.
func historyHas(history []ca.Command, commandID uint16, request bool) bool {
	for _, cmd := range history {
		if cmd.CommandID() != commandID {
			continue
		}
		switch cmd.(type) {
		case *ca.VersionRequest:
			if request {
				return true
			}
		case *ca.VersionResponse:
			if !request {
				return true
			}
		}
	}

	return false
}

// noteVersion keeps the lowest protocol version seen on this socket.
func (b *Broadcaster) noteVersion(peer uint16) {
	if peer != 0 && peer < b.protocolVersion {
		b.protocolVersion = peer
	}
}
