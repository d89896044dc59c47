package ca

// Role identifies which side of the protocol an entity plays.
// Every circuit and broadcaster has "our" role and "their" role, which is
// always the other one.
type Role uint8

const (
	// ClientRole is the side that searches for process variables and creates channels.
	ClientRole Role = iota
	// ServerRole is the side that owns process variables and answers requests.
	ServerRole
)

// Peer returns the opposite role.
func (r Role) Peer() Role {
	if r == ClientRole {
		return ServerRole
	}

	return ClientRole
}

// String returns string representation of the role.
func (r Role) String() string {
	switch r {
	case ClientRole:
		return "client"
	case ServerRole:
		return "server"
	default:
		return "unknown"
	}
}
