package ca

import (
	"encoding/binary"
	"fmt"

	"github.com/epics-go/go-ca/internal/util"
)

// DecodeCommand decodes one command from the front of data.
//
// sender is the role of the peer that produced the bytes; several CA command
// codes decode to different command types depending on the direction of
// travel.
//
// When data holds a complete command it returns the command and the number
// of bytes consumed. When it does not, it returns needed > 0, the number of
// additional bytes required, and consumed == 0. The returned command owns
// copies of any payload bytes, so the caller may reuse data.
func DecodeCommand(sender Role, data []byte) (cmd Command, consumed int, needed int, err error) {
	hdr, hdrSize, needed := unmarshalHeader(data)
	if needed > 0 {
		return nil, 0, needed, nil
	}

	total := hdrSize + int(hdr.PayloadSize)
	if len(data) < total {
		return nil, 0, total - len(data), nil
	}

	cmd, err = commandFromWire(sender, hdr, data[hdrSize:total])
	if err != nil {
		return nil, 0, 0, err
	}

	return cmd, total, 0, nil
}

// DecodeDatagram decodes every command packed into one UDP payload.
//
// An empty payload yields an empty batch. A payload ending in the middle of
// a command is malformed: UDP delivers whole datagrams or nothing, so a
// short tail cannot be completed by waiting for more bytes.
func DecodeDatagram(sender Role, data []byte) ([]Command, error) {
	var cmds []Command
	for len(data) > 0 {
		cmd, consumed, needed, err := DecodeCommand(sender, data)
		if err != nil {
			return nil, err
		}
		if needed > 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes, %d more needed", ErrTruncatedDatagram, len(data), needed)
		}
		cmds = append(cmds, cmd)
		data = data[consumed:]
	}

	return cmds, nil
}

// commandFromWire builds the typed command for a decoded header and payload.
//
//nolint:cyclop,gocyclo // one arm per command code keeps the dispatch exhaustive in one place.
func commandFromWire(sender Role, hdr Header, payload []byte) (Command, error) {
	fromClient := sender == ClientRole

	switch hdr.Command {
	case CmdVersion:
		if fromClient {
			return &VersionRequest{Priority: hdr.DataType, Version: uint16(hdr.DataCount)}, nil
		}

		return &VersionResponse{Version: uint16(hdr.DataCount)}, nil

	case CmdSearch:
		if fromClient {
			return &SearchRequest{
				Name:    stringFromPayload(payload),
				CID:     hdr.Param1,
				Version: uint16(hdr.DataCount),
				Reply:   hdr.DataType == doReply,
			}, nil
		}

		var version uint16
		if len(payload) >= 2 {
			version = binary.BigEndian.Uint16(payload[0:2])
		}

		return &SearchResponse{Port: hdr.DataType, SID: hdr.Param1, CID: hdr.Param2, Version: version}, nil

	case CmdNotFound:
		if fromClient {
			break
		}

		return &NotFoundResponse{CID: hdr.Param1, Version: uint16(hdr.DataCount)}, nil

	case CmdBeacon:
		if fromClient {
			break
		}

		return &Beacon{
			Version:    hdr.DataType,
			ServerPort: uint16(hdr.DataCount),
			BeaconID:   hdr.Param1,
			Addr:       uint32ToIP(hdr.Param2),
		}, nil

	case CmdRepeaterRegister:
		if !fromClient {
			break
		}

		return &RepeaterRegisterRequest{ClientAddr: uint32ToIP(hdr.Param2)}, nil

	case CmdRepeaterConfirm:
		if fromClient {
			break
		}

		return &RepeaterConfirmResponse{RepeaterAddr: uint32ToIP(hdr.Param2)}, nil

	case CmdCreateChan:
		if fromClient {
			return &CreateChanRequest{
				Name:    stringFromPayload(payload),
				CID:     hdr.Param1,
				Version: uint16(hdr.Param2),
			}, nil
		}

		return &CreateChanResponse{
			DataType:  DataType(hdr.DataType),
			DataCount: hdr.DataCount,
			CID:       hdr.Param1,
			SID:       hdr.Param2,
		}, nil

	case CmdCreateChFail:
		if fromClient {
			break
		}

		return &CreateChFailResponse{CID: hdr.Param1}, nil

	case CmdAccessRights:
		if fromClient {
			break
		}

		return &AccessRightsResponse{CID: hdr.Param1, AccessRights: AccessRights(hdr.Param2)}, nil

	case CmdClearChannel:
		if fromClient {
			return &ClearChannelRequest{SID: hdr.Param1, CID: hdr.Param2}, nil
		}

		return &ClearChannelResponse{SID: hdr.Param1, CID: hdr.Param2}, nil

	case CmdServerDisconn:
		if fromClient {
			break
		}

		return &ServerDisconnResponse{CID: hdr.Param1}, nil

	case CmdReadNotify:
		if fromClient {
			return &ReadNotifyRequest{
				DataType:  DataType(hdr.DataType),
				DataCount: hdr.DataCount,
				SID:       hdr.Param1,
				IOID:      hdr.Param2,
			}, nil
		}

		return &ReadNotifyResponse{
			Data:      util.CloneSlice(payload, 0),
			DataType:  DataType(hdr.DataType),
			DataCount: hdr.DataCount,
			Status:    hdr.Param1,
			IOID:      hdr.Param2,
		}, nil

	case CmdWriteNotify:
		if fromClient {
			return &WriteNotifyRequest{
				Data:      util.CloneSlice(payload, 0),
				DataType:  DataType(hdr.DataType),
				DataCount: hdr.DataCount,
				SID:       hdr.Param1,
				IOID:      hdr.Param2,
			}, nil
		}

		return &WriteNotifyResponse{
			DataType:  DataType(hdr.DataType),
			DataCount: hdr.DataCount,
			Status:    hdr.Param1,
			IOID:      hdr.Param2,
		}, nil

	case CmdEventAdd:
		if fromClient {
			var mask EventMask
			if len(payload) >= 14 {
				mask = EventMask(binary.BigEndian.Uint16(payload[12:14]))
			}

			return &EventAddRequest{
				DataType:       DataType(hdr.DataType),
				DataCount:      hdr.DataCount,
				SID:            hdr.Param1,
				SubscriptionID: hdr.Param2,
				Mask:           mask,
			}, nil
		}

		return &EventAddResponse{
			Data:           util.CloneSlice(payload, 0),
			DataType:       DataType(hdr.DataType),
			DataCount:      hdr.DataCount,
			Status:         hdr.Param1,
			SubscriptionID: hdr.Param2,
		}, nil

	case CmdEventCancel:
		if !fromClient {
			break
		}

		return &EventCancelRequest{
			DataType:       DataType(hdr.DataType),
			DataCount:      hdr.DataCount,
			SID:            hdr.Param1,
			SubscriptionID: hdr.Param2,
		}, nil

	case CmdEcho:
		if fromClient {
			return EchoRequest{}, nil
		}

		return EchoResponse{}, nil

	case CmdClientName:
		if !fromClient {
			break
		}

		return &ClientNameRequest{Name: stringFromPayload(payload)}, nil

	case CmdHostName:
		if !fromClient {
			break
		}

		return &HostNameRequest{Name: stringFromPayload(payload)}, nil

	case CmdError:
		if fromClient {
			break
		}

		orig, _, needed := unmarshalHeader(payload)
		var message string
		if needed == 0 && len(payload) > HeaderSize {
			message = stringFromPayload(payload[HeaderSize:])
		}

		return &ErrorResponse{CID: hdr.Param1, Status: hdr.Param2, OriginalHeader: orig, Message: message}, nil
	}

	return nil, fmt.Errorf("%w: %d from %s", ErrUnknownCommandID, hdr.Command, sender)
}
