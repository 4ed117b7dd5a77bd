package core

// ActionKind describes what the client wants to do.
type ActionKind int

const (
	// ActionUnknown is the fallback for unrecognized inbound actions.
	ActionUnknown ActionKind = iota
	// ActionCreate creates a room and connects the creator to it.
	ActionCreate
	// ActionUpdate changes a room's attributes.
	ActionUpdate
	// ActionConnect connects the client to a room under a pseudonym.
	ActionConnect
	// ActionDisconnect disconnects the client from a room.
	ActionDisconnect
	// ActionUpdateUserRight changes one right of a room occupant.
	ActionUpdateUserRight
	// ActionGetAll lists every stored room with its live occupancy.
	ActionGetAll
)

// Action represents a request decoded from a client, tagged by kind.
// Each kind reads only its own payload fields.
type Action struct {
	Kind ActionKind

	RoomID       int64
	RoomName     string
	MaxUsers     int
	RoomPassword string // password assigned on create
	Password     string // password supplied to enter or administer a room
	Pseudonym    string
	RoomInfo     map[string]any
	RightName    string
	RightValue   bool
}
