package core

import (
	"time"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Reply action names as they appear on the wire.
const (
	ReplyCreate           = "create"
	ReplyChangeRoomInfo   = "changeRoomInfo"
	ReplyConnect          = "connect"
	ReplyDisconnect       = "disconnectFromRoom"
	ReplyUpdateUserRight  = "updateRoomUserRight"
	ReplyGetAll           = "getAll"
	ReplyUpdateClients    = "updateClients"
	ReplyUpdateRoom       = "updateRoom"
	ReplyUpdateUserRights = "updateUserRights"
)

// RoomAttributes is the public projection of a room's persisted state.
// The password never leaves the core.
type RoomAttributes struct {
	ID        int64
	Name      string
	Creator   int64
	MaxUsers  int
	CreatedAt time.Time
}

// Occupant describes one connected client of a room.
type Occupant struct {
	ClientID   string
	Pseudonym  string
	UserID     int64 // 0 for unauthenticated clients
	Registered bool

	client *Client
}

// RoomSummary pairs a room's public attributes with its live occupancy.
type RoomSummary struct {
	Room           RoomAttributes
	UsersConnected int
}

// RightView is the admin-board projection of one right record.
type RightView struct {
	UserID int64
	Edit   bool
	Grant  bool
	Kick   bool
	Ban    bool
}

// Reply is the outcome record sent back to a client: the answer to its own
// action, or a notification triggered by someone else's.
type Reply struct {
	Service string
	Action  string
	Success bool
	Text    string

	RoomID          int64
	Room            *RoomAttributes
	Rooms           []RoomSummary
	Clients         []Occupant
	RoomInformation *RoomAttributes
	Rights          []RightView
}

func publicAttributes(attrs store.Room) *RoomAttributes {
	return &RoomAttributes{
		ID:        attrs.ID,
		Name:      attrs.Name,
		Creator:   attrs.Creator,
		MaxUsers:  attrs.MaxUsers,
		CreatedAt: attrs.CreatedAt,
	}
}
