package ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand_Direction(t *testing.T) {
	tests := []struct {
		description string
		sender      Role
		input       []byte
		expected    Command
	}{
		{
			description: "version from client decodes as request with priority",
			sender:      ClientRole,
			input:       []byte{0, 0, 0, 0, 0, 5, 0, 13, 0, 0, 0, 0, 0, 0, 0, 0},
			expected:    &VersionRequest{Priority: 5, Version: 13},
		},
		{
			description: "version from server decodes as response",
			sender:      ServerRole,
			input:       []byte{0, 0, 0, 0, 0, 5, 0, 13, 0, 0, 0, 0, 0, 0, 0, 0},
			expected:    &VersionResponse{Version: 13},
		},
		{
			description: "create channel from client carries the name",
			sender:      ClientRole,
			input: []byte{
				0, 18, 0, 8, 0, 0, 0, 0, 0, 0, 0, 7, 0, 0, 0, 13,
				'g', 'a', 'u', 'g', 'e', '1', 0, 0,
			},
			expected: &CreateChanRequest{Name: "gauge1", CID: 7, Version: 13},
		},
		{
			description: "create channel from server carries sid and native type",
			sender:      ServerRole,
			input:       []byte{0, 18, 0, 0, 0, 6, 0, 1, 0, 0, 0, 7, 0, 0, 0, 100},
			expected:    &CreateChanResponse{DataType: DBRDouble, DataCount: 1, CID: 7, SID: 100},
		},
		{
			description: "clear channel from client is a request",
			sender:      ClientRole,
			input:       []byte{0, 12, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100, 0, 0, 0, 7},
			expected:    &ClearChannelRequest{SID: 100, CID: 7},
		},
		{
			description: "clear channel from server is a response",
			sender:      ServerRole,
			input:       []byte{0, 12, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100, 0, 0, 0, 7},
			expected:    &ClearChannelResponse{SID: 100, CID: 7},
		},
		{
			description: "echo from server is a response",
			sender:      ServerRole,
			input:       []byte{0, 23, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			expected:    EchoResponse{},
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			cmd, consumed, needed, err := DecodeCommand(test.sender, test.input)
			require.NoError(t, err)
			require.Zero(t, needed)
			assert.Equal(t, len(test.input), consumed)
			assert.Equal(t, test.expected, cmd)
		})
	}
}

func TestDecodeCommand_WrongDirection(t *testing.T) {
	tests := []struct {
		description string
		sender      Role
		input       []byte
	}{
		{
			description: "access rights from client",
			sender:      ClientRole,
			input:       []byte{0, 22, 0, 0, 0, 0, 0, 0, 0, 0, 0, 7, 0, 0, 0, 3},
		},
		{
			description: "event cancel from server",
			sender:      ServerRole,
			input:       []byte{0, 2, 0, 0, 0, 6, 0, 1, 0, 0, 0, 100, 0, 0, 0, 9},
		},
		{
			description: "beacon from client",
			sender:      ClientRole,
			input:       []byte{0, 13, 0, 0, 0, 13, 0x13, 0xc8, 0, 0, 0, 1, 0, 0, 0, 0},
		},
		{
			description: "unassigned command code",
			sender:      ServerRole,
			input:       []byte{0, 99, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			cmd, _, _, err := DecodeCommand(test.sender, test.input)
			require.ErrorIs(t, err, ErrUnknownCommandID)
			assert.Nil(t, cmd)
		})
	}
}

func TestDecodeCommand_Streaming(t *testing.T) {
	full := NewReadNotifyResponse([]byte{1, 2, 3, 4, 5, 6, 7, 8}, DBRDouble, 1, 1, 5).ToBytes()
	require.Len(t, full, HeaderSize+8)

	// Feed the stream one byte at a time; the decoder must report exactly
	// how many more bytes it needs at every step.
	for i := 0; i < len(full); i++ {
		cmd, consumed, needed, err := DecodeCommand(ServerRole, full[:i])
		require.NoError(t, err)
		require.Nil(t, cmd)
		require.Zero(t, consumed)

		if i < HeaderSize {
			assert.Equal(t, HeaderSize-i, needed, "prefix of %d bytes", i)
		} else {
			assert.Equal(t, len(full)-i, needed, "prefix of %d bytes", i)
		}
	}

	cmd, consumed, needed, err := DecodeCommand(ServerRole, full)
	require.NoError(t, err)
	require.Zero(t, needed)
	assert.Equal(t, len(full), consumed)

	rsp, ok := cmd.(*ReadNotifyResponse)
	require.True(t, ok)
	assert.Equal(t, uint32(5), rsp.IOID)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, rsp.Data)
}

func TestDecodeCommand_ExtendedHeader(t *testing.T) {
	payload := make([]byte, 0x10008)
	payload[0] = 0xAA
	payload[len(payload)-1] = 0xBB

	hdr := Header{
		Command:     CmdReadNotify,
		PayloadSize: uint32(len(payload)),
		DataType:    uint16(DBRDouble),
		DataCount:   8193,
		Param1:      1,
		Param2:      5,
	}
	require.True(t, hdr.IsExtended())

	wire := append(hdr.Marshal(), payload...)
	require.Len(t, wire, ExtendedHeaderSize+len(payload))

	// A short prefix must ask for the extended header's extra bytes first.
	_, _, needed, err := DecodeCommand(ServerRole, wire[:HeaderSize])
	require.NoError(t, err)
	assert.Equal(t, ExtendedHeaderSize-HeaderSize, needed)

	cmd, consumed, needed, err := DecodeCommand(ServerRole, wire)
	require.NoError(t, err)
	require.Zero(t, needed)
	assert.Equal(t, len(wire), consumed)

	rsp, ok := cmd.(*ReadNotifyResponse)
	require.True(t, ok)
	assert.Equal(t, uint32(8193), rsp.DataCount)
	assert.Len(t, rsp.Data, len(payload))
	assert.Equal(t, byte(0xAA), rsp.Data[0])
	assert.Equal(t, byte(0xBB), rsp.Data[len(payload)-1])
}

func TestDecodeCommand_PayloadIsCopied(t *testing.T) {
	wire := NewWriteNotifyRequest([]byte{1, 2, 3, 4, 5, 6, 7, 8}, DBRChar, 8, 100, 5).ToBytes()

	cmd, _, _, err := DecodeCommand(ClientRole, wire)
	require.NoError(t, err)

	req, ok := cmd.(*WriteNotifyRequest)
	require.True(t, ok)

	wire[HeaderSize] = 0xFF
	assert.Equal(t, byte(1), req.Data[0], "decoded payload must not alias the input buffer")
}

func TestDecodeDatagram(t *testing.T) {
	t.Run("empty payload yields empty batch", func(t *testing.T) {
		cmds, err := DecodeDatagram(ServerRole, nil)
		require.NoError(t, err)
		assert.Empty(t, cmds)
	})

	t.Run("packed version and search pair", func(t *testing.T) {
		var payload []byte
		payload = append(payload, NewVersionRequest(0, ProtocolVersion).ToBytes()...)
		payload = append(payload, NewSearchRequest("gauge1", 3, ProtocolVersion, false).ToBytes()...)

		cmds, err := DecodeDatagram(ClientRole, payload)
		require.NoError(t, err)
		require.Len(t, cmds, 2)

		assert.IsType(t, &VersionRequest{}, cmds[0])
		search, ok := cmds[1].(*SearchRequest)
		require.True(t, ok)
		assert.Equal(t, "gauge1", search.Name)
		assert.Equal(t, uint32(3), search.CID)
	})

	t.Run("truncated tail is malformed", func(t *testing.T) {
		payload := NewVersionRequest(0, ProtocolVersion).ToBytes()
		payload = append(payload, 0, 6, 0, 8) // half a search header

		_, err := DecodeDatagram(ClientRole, payload)
		require.ErrorIs(t, err, ErrTruncatedDatagram)
	})
}

func FuzzDecodeCommand(f *testing.F) {
	f.Add([]byte{0, 0, 0, 0, 0, 5, 0, 13, 0, 0, 0, 0, 0, 0, 0, 0})
	f.Add(NewCreateChanRequest("gauge1", 7, ProtocolVersion).ToBytes())
	f.Add(NewSearchResponse(5064, 0, 3, ProtocolVersion).ToBytes())
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, sender := range []Role{ClientRole, ServerRole} {
			cmd, consumed, needed, err := DecodeCommand(sender, data)
			if err != nil {
				continue
			}
			if needed > 0 {
				if consumed != 0 || cmd != nil {
					t.Errorf("short input reported consumed=%d cmd=%v", consumed, cmd)
				}
				continue
			}
			if consumed <= 0 || consumed > len(data) {
				t.Errorf("consumed %d of %d bytes", consumed, len(data))
			}
			if cmd == nil {
				t.Error("complete decode returned nil command")
			}
		}
	})
}
