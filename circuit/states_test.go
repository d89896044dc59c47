package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epics-go/go-ca/ca"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", CircuitIdle.String())
	assert.Equal(t, "connected", CircuitConnected.String())
	assert.Equal(t, "disconnected", CircuitDisconnected.String())
	assert.Equal(t, "unknown", CircuitState(99).String())

	assert.Equal(t, "await-create", ChannelAwaitCreate.String())
	assert.Equal(t, "must-close", ChannelMustClose.String())
	assert.Equal(t, "failed", ChannelFailed.String())
	assert.Equal(t, "unknown", ChannelState(99).String())
}

func TestCircuitTable_NoOrdinaryEdgeIntoDisconnected(t *testing.T) {
	for key, next := range circuitTable {
		assert.NotEqual(t, CircuitDisconnected, next,
			"only the disconnect sentinel may enter the terminal state, got edge %v", key)
		assert.NotEqual(t, CircuitDisconnected, key.state,
			"the terminal state must have no outgoing edges, got edge %v", key)
	}
}

func TestChannelTable_TerminalStates(t *testing.T) {
	for key := range channelTable {
		assert.NotContains(t,
			[]ChannelState{ChannelClosed, ChannelFailed, ChannelDisconnected}, key.state,
			"terminal channel states must have no outgoing edges, got edge %v", key)
	}
}

// Commands absent from a state's outgoing edges must raise and leave the
// state untouched, for every reachable state.
func TestChannelTable_AbsentEdgesRaise(t *testing.T) {
	tests := []struct {
		description string
		state       ChannelState
		kind        cmdKind
	}{
		{"read before create", ChannelIdle, kindReadNotifyRequest},
		{"clear before create", ChannelIdle, kindClearChannelRequest},
		{"duplicate create request", ChannelAwaitCreate, kindCreateChanRequest},
		{"read while create pending", ChannelAwaitCreate, kindReadNotifyRequest},
		{"create response on connected channel", ChannelConnected, kindCreateChanResponse},
		{"new read after clear sent", ChannelMustClose, kindReadNotifyRequest},
		{"new subscribe after clear sent", ChannelMustClose, kindEventAddRequest},
		{"duplicate clear request", ChannelMustClose, kindClearChannelRequest},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			for _, role := range bothRoles {
				_, ok := channelTable[channelKey{role, test.state, test.kind}]
				assert.False(t, ok, "role %s", role)
			}
		})
	}
}

func TestChannel_ViolationLeavesStateUntouched(t *testing.T) {
	client := NewClientCircuit(testAddr, 5)
	require.NoError(t, client.ProcessCommand(ca.NewVersionResponse(13)))

	ch, err := NewChannelWithCID(client, "gauge1", 7)
	require.NoError(t, err)

	// A create response before any create request has no table entry.
	err = client.ProcessCommand(ca.NewCreateChanResponse(ca.DBRDouble, 1, 7, 100))
	require.ErrorIs(t, err, ca.ErrRemoteProtocol)
	assert.ErrorContains(t, err, "cannot process")

	assert.Equal(t, ChannelIdle, ch.State(ca.ClientRole))
	assert.Equal(t, ChannelIdle, ch.State(ca.ServerRole))
	assert.Equal(t, uint32(0), ch.SID(), "rejected response must not bind a sid")
}

func TestChannel_TransitionsReported(t *testing.T) {
	client, server := connectedPair(t)

	ch, err := NewClientChannel(client, "gauge1")
	require.NoError(t, err)

	relay(t, client, server, ch.Create())

	transitions, err := ch.ProcessCommand(ca.NewCreateChanResponse(ca.DBRDouble, 1, ch.CID(), 100))
	require.NoError(t, err)
	require.Len(t, transitions, 2)

	for i, role := range bothRoles {
		assert.Equal(t, role, transitions[i].Role)
		assert.Equal(t, ChannelAwaitCreate, transitions[i].From)
		assert.Equal(t, ChannelConnected, transitions[i].To)
	}
}

func TestChannelCreationFailure(t *testing.T) {
	client, server := connectedPair(t)

	ch, err := NewClientChannel(client, "bogus1")
	require.NoError(t, err)
	relay(t, client, server, ch.Create())

	serverCh, ok := server.ChannelByCID(ch.CID())
	require.True(t, ok)
	relay(t, server, client, AsServerChannel(serverCh).CreateFailResponse())

	assert.Equal(t, ChannelFailed, ch.State(ca.ClientRole))
	assert.Equal(t, ChannelFailed, ch.State(ca.ServerRole))
}

func TestServerDisconnClosesChannel(t *testing.T) {
	client, server := connectedPair(t)

	ch, err := NewClientChannel(client, "gauge1")
	require.NoError(t, err)
	relay(t, client, server, ch.Create())
	relay(t, server, client, ca.NewCreateChanResponse(ca.DBRDouble, 1, ch.CID(), 100))

	serverCh, ok := server.ChannelByCID(ch.CID())
	require.True(t, ok)
	relay(t, server, client, AsServerChannel(serverCh).DisconnResponse())

	assert.Equal(t, ChannelClosed, ch.State(ca.ClientRole))
	_, ok = client.ChannelByCID(ch.CID())
	assert.False(t, ok)
	_, ok = client.ChannelBySID(100)
	assert.False(t, ok)
}

func TestKindOf_CoversEveryCommand(t *testing.T) {
	cmds := map[cmdKind]ca.Command{
		kindVersionRequest:       &ca.VersionRequest{},
		kindVersionResponse:      &ca.VersionResponse{},
		kindEchoRequest:          ca.EchoRequest{},
		kindEchoResponse:         ca.EchoResponse{},
		kindClientName:           &ca.ClientNameRequest{},
		kindHostName:             &ca.HostNameRequest{},
		kindError:                &ca.ErrorResponse{},
		kindCreateChanRequest:    &ca.CreateChanRequest{},
		kindCreateChanResponse:   &ca.CreateChanResponse{},
		kindCreateChFail:         &ca.CreateChFailResponse{},
		kindAccessRights:         &ca.AccessRightsResponse{},
		kindClearChannelRequest:  &ca.ClearChannelRequest{},
		kindClearChannelResponse: &ca.ClearChannelResponse{},
		kindServerDisconn:        &ca.ServerDisconnResponse{},
		kindReadNotifyRequest:    &ca.ReadNotifyRequest{},
		kindReadNotifyResponse:   &ca.ReadNotifyResponse{},
		kindWriteNotifyRequest:   &ca.WriteNotifyRequest{},
		kindWriteNotifyResponse:  &ca.WriteNotifyResponse{},
		kindEventAddRequest:      &ca.EventAddRequest{},
		kindEventAddResponse:     &ca.EventAddResponse{},
		kindEventCancelRequest:   &ca.EventCancelRequest{},
		kindEventCancelResponse:  &ca.EventCancelResponse{},
		kindDisconnected:         ca.Disconnected{},
	}

	for kind, cmd := range cmds {
		assert.Equal(t, kind, kindOf(cmd), "command %T", cmd)
	}

	assert.Equal(t, kindUnknown, kindOf(&ca.SearchRequest{}), "broadcast commands have no circuit kind")
}
