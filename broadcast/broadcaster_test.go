package broadcast

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/epics-go/go-ca/ca"
	"github.com/epics-go/go-ca/logger"
)

var (
	serverAddr   = netip.MustParseAddrPort("10.0.7.21:5064")
	repeaterAddr = netip.MustParseAddrPort("127.0.0.1:5065")
)

// registeredClient returns a client broadcaster that completed the repeater
// handshake.
func registeredClient(t *testing.T) *Broadcaster {
	t.Helper()

	b := NewClientBroadcaster()
	_, err := b.Send(b.Register(netip.Addr{}))
	require.NoError(t, err)

	b.Recv(ca.NewRepeaterConfirmResponse(repeaterAddr.Addr()).ToBytes(), repeaterAddr)
	cmd, err := b.NextCommand()
	require.NoError(t, err)
	require.IsType(t, &ca.RepeaterConfirmResponse{}, cmd)
	require.True(t, b.Registered())

	return b
}

func TestBroadcaster_RegistrationGate(t *testing.T) {
	b := NewClientBroadcaster()
	require.False(t, b.Registered())

	ver, search := b.Search("gauge1")
	_, err := b.Send(ver, search)
	require.ErrorIs(t, err, ca.ErrLocalProtocol)
	assert.ErrorContains(t, err, "repeater registration")

	// The registration request itself passes the gate.
	_, err = b.Send(b.Register(netip.Addr{}))
	require.NoError(t, err)
}

func TestBroadcaster_ServerStartsRegistered(t *testing.T) {
	b := NewServerBroadcaster()
	assert.True(t, b.Registered())
}

func TestBroadcaster_SearchLifecycle(t *testing.T) {
	b := registeredClient(t)

	ver, search := b.Search("gauge1")
	payload, err := b.Send(ver, search)
	require.NoError(t, err)
	assert.Len(t, payload, ca.HeaderSize+len(search.ToBytes()))

	name, pending := b.SearchName(search.CID)
	require.True(t, pending)
	assert.Equal(t, "gauge1", name)

	// The matching answer consumes the pending search.
	var answer []byte
	answer = append(answer, ca.NewVersionResponse(ca.ProtocolVersion).ToBytes()...)
	answer = append(answer, ca.NewSearchResponse(5064, 0, search.CID, ca.ProtocolVersion).ToBytes()...)
	b.Recv(answer, serverAddr)

	cmd, err := b.NextCommand()
	require.NoError(t, err)
	require.IsType(t, &ca.VersionResponse{}, cmd)

	cmd, err = b.NextCommand()
	require.NoError(t, err)
	rsp, ok := cmd.(*ca.SearchResponse)
	require.True(t, ok)
	assert.Equal(t, uint16(5064), rsp.Port)

	_, pending = b.SearchName(search.CID)
	assert.False(t, pending)

	// A second server racing the first is tolerated.
	b.Recv(answer, serverAddr)
	_, err = b.NextCommand()
	require.NoError(t, err)
	_, err = b.NextCommand()
	require.NoError(t, err)
}

func TestBroadcaster_SendWhileDrainingDatagram(t *testing.T) {
	b := registeredClient(t)

	ver, search := b.Search("gauge1")
	_, err := b.Send(ver, search)
	require.NoError(t, err)

	var answer []byte
	answer = append(answer, ca.NewVersionResponse(ca.ProtocolVersion).ToBytes()...)
	answer = append(answer, ca.NewSearchResponse(5064, 0, search.CID, ca.ProtocolVersion).ToBytes()...)
	b.Recv(answer, serverAddr)

	cmd, err := b.NextCommand()
	require.NoError(t, err)
	require.IsType(t, &ca.VersionResponse{}, cmd)

	// Sending between two drains of the same datagram must not disturb its
	// ordering history.
	ver2, search2 := b.Search("gauge2")
	_, err = b.Send(ver2, search2)
	require.NoError(t, err)

	cmd, err = b.NextCommand()
	require.NoError(t, err)
	rsp, ok := cmd.(*ca.SearchResponse)
	require.True(t, ok)
	assert.Equal(t, search.CID, rsp.CID)

	_, pending := b.SearchName(search.CID)
	assert.False(t, pending)
	_, pending = b.SearchName(search2.CID)
	assert.True(t, pending)
}

func TestBroadcaster_DuplicateResponseLogsDebug(t *testing.T) {
	b := registeredClient(t)

	mockLogger := logger.NewMockLogger()
	mockLogger.On("Debug", mock.Anything, mock.Anything).Return()
	b.SetLogger(mockLogger)

	ver, search := b.Search("gauge1")
	_, err := b.Send(ver, search)
	require.NoError(t, err)

	var answer []byte
	answer = append(answer, ca.NewVersionResponse(ca.ProtocolVersion).ToBytes()...)
	answer = append(answer, ca.NewSearchResponse(5064, 0, search.CID, ca.ProtocolVersion).ToBytes()...)
	b.Recv(answer, serverAddr)
	b.Recv(answer, serverAddr)

	for i := 0; i < 4; i++ {
		_, err = b.NextCommand()
		require.NoError(t, err)
	}

	mockLogger.AssertCalled(t, "Debug", "duplicate search response", []any{"cid", search.CID})
	mockLogger.AssertNumberOfCalls(t, "Debug", 1)
}

func TestBroadcaster_SearchResponseForUnknownCID(t *testing.T) {
	b := registeredClient(t)

	var payload []byte
	payload = append(payload, ca.NewVersionResponse(ca.ProtocolVersion).ToBytes()...)
	payload = append(payload, ca.NewSearchResponse(5064, 0, 999, ca.ProtocolVersion).ToBytes()...)
	b.Recv(payload, serverAddr)

	_, err := b.NextCommand()
	require.NoError(t, err)
	_, err = b.NextCommand()
	require.ErrorIs(t, err, ca.ErrRemoteProtocol)
	assert.ErrorContains(t, err, "unknown cid")
}

func TestBroadcaster_SearchOrderingPerDatagram(t *testing.T) {
	b := registeredClient(t)

	// Prime the history with a datagram that does carry a version command.
	ver, search := b.Search("gauge1")
	_, err := b.Send(ver, search)
	require.NoError(t, err)

	// A search without a version command in its own datagram raises no
	// matter how many earlier datagrams carried one.
	_, bare := b.Search("gauge2")
	_, err = b.Send(bare)
	require.ErrorIs(t, err, ca.ErrLocalProtocol)
	assert.ErrorContains(t, err, "same datagram")

	// The same rule applies on the receive path.
	b.Recv(ca.NewSearchResponse(5064, 0, search.CID, ca.ProtocolVersion).ToBytes(), serverAddr)
	_, err = b.NextCommand()
	require.ErrorIs(t, err, ca.ErrRemoteProtocol)
}

func TestBroadcaster_NextCommandNeedsData(t *testing.T) {
	b := registeredClient(t)

	_, err := b.NextCommand()
	require.ErrorIs(t, err, ca.ErrNeedData)

	// An empty datagram is tolerated and yields no commands.
	b.Recv(nil, serverAddr)
	_, err = b.NextCommand()
	require.ErrorIs(t, err, ca.ErrNeedData)
}

func TestBroadcaster_BeaconsFlowWithoutSearches(t *testing.T) {
	b := registeredClient(t)

	beacon := ca.NewBeacon(ca.ProtocolVersion, 5064, 42, serverAddr.Addr())
	b.Recv(beacon.ToBytes(), serverAddr)

	cmd, err := b.NextCommand()
	require.NoError(t, err)

	decoded, ok := cmd.(*ca.Beacon)
	require.True(t, ok)
	assert.Equal(t, uint32(42), decoded.BeaconID)
	assert.Equal(t, serverAddr.Addr(), decoded.Addr)
}

func TestBroadcaster_NotFoundLeavesSearchPending(t *testing.T) {
	b := registeredClient(t)

	ver, search := b.Search("gauge1")
	_, err := b.Send(ver, search)
	require.NoError(t, err)

	b.Recv(ca.NewNotFoundResponse(search.CID, ca.ProtocolVersion).ToBytes(), serverAddr)
	cmd, err := b.NextCommand()
	require.NoError(t, err)
	require.IsType(t, &ca.NotFoundResponse{}, cmd)

	// Another server can still claim the search later.
	_, pending := b.SearchName(search.CID)
	assert.True(t, pending)
}

func TestBroadcaster_Disconnect(t *testing.T) {
	b := registeredClient(t)

	ver, search := b.Search("gauge1")
	_, err := b.Send(ver, search)
	require.NoError(t, err)

	b.Disconnect()
	assert.False(t, b.Registered())

	// Pending searches survive re-registration.
	_, pending := b.SearchName(search.CID)
	assert.True(t, pending)
}

func TestBroadcaster_SearchIDsSkipPending(t *testing.T) {
	b := registeredClient(t)

	ver, search := b.Search("gauge1")
	_, err := b.Send(ver, search)
	require.NoError(t, err)

	// The id of the still-pending search must not be reused.
	for i := 0; i < 5; i++ {
		assert.NotEqual(t, search.CID, b.NewSearchID())
	}
}

func TestBroadcaster_ServerSideSearchHandling(t *testing.T) {
	b := NewServerBroadcaster()

	var payload []byte
	payload = append(payload, ca.NewVersionRequest(0, ca.ProtocolVersion).ToBytes()...)
	payload = append(payload, ca.NewSearchRequest("gauge1", 3, ca.ProtocolVersion, false).ToBytes()...)
	b.Recv(payload, netip.MustParseAddrPort("10.0.7.99:41234"))

	cmd, err := b.NextCommand()
	require.NoError(t, err)
	require.IsType(t, &ca.VersionRequest{}, cmd)

	cmd, err = b.NextCommand()
	require.NoError(t, err)
	search, ok := cmd.(*ca.SearchRequest)
	require.True(t, ok)
	assert.Equal(t, "gauge1", search.Name)

	// Answering is the server's choice; the broadcaster validates the reply
	// it sends travels with a version command.
	reply, err := b.Send(
		ca.NewVersionResponse(ca.ProtocolVersion),
		ca.NewSearchResponse(5064, 0, search.CID, ca.ProtocolVersion))
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}
