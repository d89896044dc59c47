package circuit

import "github.com/epics-go/go-ca/ca"

// cmdKind distinguishes the concrete command variants for table lookups.
// The wire command code alone is not enough: several codes are shared
// between a request and its response.
type cmdKind uint8

const (
	kindUnknown cmdKind = iota
	kindVersionRequest
	kindVersionResponse
	kindEchoRequest
	kindEchoResponse
	kindClientName
	kindHostName
	kindError
	kindCreateChanRequest
	kindCreateChanResponse
	kindCreateChFail
	kindAccessRights
	kindClearChannelRequest
	kindClearChannelResponse
	kindServerDisconn
	kindReadNotifyRequest
	kindReadNotifyResponse
	kindWriteNotifyRequest
	kindWriteNotifyResponse
	kindEventAddRequest
	kindEventAddResponse
	kindEventCancelRequest
	kindEventCancelResponse
	kindDisconnected
)

var kindNames = map[cmdKind]string{
	kindUnknown:              "unknown",
	kindVersionRequest:       "version.req",
	kindVersionResponse:      "version.rsp",
	kindEchoRequest:          "echo.req",
	kindEchoResponse:         "echo.rsp",
	kindClientName:           "client.name",
	kindHostName:             "host.name",
	kindError:                "error.rsp",
	kindCreateChanRequest:    "create.chan.req",
	kindCreateChanResponse:   "create.chan.rsp",
	kindCreateChFail:         "create.chan.fail",
	kindAccessRights:         "access.rights",
	kindClearChannelRequest:  "clear.chan.req",
	kindClearChannelResponse: "clear.chan.rsp",
	kindServerDisconn:        "server.disconn",
	kindReadNotifyRequest:    "read.notify.req",
	kindReadNotifyResponse:   "read.notify.rsp",
	kindWriteNotifyRequest:   "write.notify.req",
	kindWriteNotifyResponse:  "write.notify.rsp",
	kindEventAddRequest:      "event.add.req",
	kindEventAddResponse:     "event.add.rsp",
	kindEventCancelRequest:   "event.cancel.req",
	kindEventCancelResponse:  "event.cancel.rsp",
	kindDisconnected:         "disconnected",
}

// String returns string representation of the command kind.
func (k cmdKind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return "unknown"
	}

	return name
}

// kindOf maps a command value to its kind. The set of command variants is
// closed; a new variant must be added here and to the transition tables.
func kindOf(cmd ca.Command) cmdKind {
	switch cmd.(type) {
	case *ca.VersionRequest:
		return kindVersionRequest
	case *ca.VersionResponse:
		return kindVersionResponse
	case ca.EchoRequest:
		return kindEchoRequest
	case ca.EchoResponse:
		return kindEchoResponse
	case *ca.ClientNameRequest:
		return kindClientName
	case *ca.HostNameRequest:
		return kindHostName
	case *ca.ErrorResponse:
		return kindError
	case *ca.CreateChanRequest:
		return kindCreateChanRequest
	case *ca.CreateChanResponse:
		return kindCreateChanResponse
	case *ca.CreateChFailResponse:
		return kindCreateChFail
	case *ca.AccessRightsResponse:
		return kindAccessRights
	case *ca.ClearChannelRequest:
		return kindClearChannelRequest
	case *ca.ClearChannelResponse:
		return kindClearChannelResponse
	case *ca.ServerDisconnResponse:
		return kindServerDisconn
	case *ca.ReadNotifyRequest:
		return kindReadNotifyRequest
	case *ca.ReadNotifyResponse:
		return kindReadNotifyResponse
	case *ca.WriteNotifyRequest:
		return kindWriteNotifyRequest
	case *ca.WriteNotifyResponse:
		return kindWriteNotifyResponse
	case *ca.EventAddRequest:
		return kindEventAddRequest
	case *ca.EventAddResponse:
		return kindEventAddResponse
	case *ca.EventCancelRequest:
		return kindEventCancelRequest
	case *ca.EventCancelResponse:
		return kindEventCancelResponse
	case ca.Disconnected:
		return kindDisconnected
	default:
		return kindUnknown
	}
}

// isChannelKind reports whether a command kind is routed to a channel
// rather than handled at circuit scope.
func isChannelKind(kind cmdKind) bool {
	switch kind {
	case kindCreateChanRequest, kindCreateChanResponse, kindCreateChFail,
		kindAccessRights, kindClearChannelRequest, kindClearChannelResponse,
		kindServerDisconn,
		kindReadNotifyRequest, kindReadNotifyResponse,
		kindWriteNotifyRequest, kindWriteNotifyResponse,
		kindEventAddRequest, kindEventAddResponse,
		kindEventCancelRequest, kindEventCancelResponse:
		return true
	default:
		return false
	}
}
