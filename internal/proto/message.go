package proto

// ActionMessage is the envelope for actions coming from the client.
type ActionMessage struct {
	Action       string         `json:"action"`
	RoomID       int64          `json:"roomId,omitempty"`
	RoomName     string         `json:"roomName,omitempty"`
	MaxUsers     int            `json:"maxUsers,omitempty"`
	RoomPassword string         `json:"roomPassword,omitempty"`
	Password     string         `json:"password,omitempty"`
	Pseudonym    string         `json:"pseudonym,omitempty"`
	RoomInfo     map[string]any `json:"roomInfo,omitempty"`
	RightName    string         `json:"rightName,omitempty"`
	RightValue   bool           `json:"rightValue,omitempty"`
}

// Inbound action names.
const (
	ActionCreate          = "create"
	ActionUpdate          = "update"
	ActionConnect         = "connect"
	ActionDisconnect      = "disconnectFromRoom"
	ActionUpdateUserRight = "updateRoomUserRight"
	ActionGetAll          = "getAll"
)

// Reply is the envelope for outcomes and notifications sent to the client.
type Reply struct {
	Service string `json:"service"`
	Action  string `json:"action,omitempty"`
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`

	RoomID          int64           `json:"roomId,omitempty"`
	Room            *RoomAttributes `json:"room,omitempty"`
	Rooms           []RoomSummary   `json:"rooms,omitempty"`
	Clients         []RoomClient    `json:"clients,omitempty"`
	RoomInformation *RoomAttributes `json:"roomInformation,omitempty"`
	Rights          []RoomRight     `json:"rights,omitempty"`
}

// RoomAttributes is the public projection of a room.
type RoomAttributes struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Creator      int64  `json:"creator"`
	MaxUsers     int    `json:"maxUsers"`
	CreationDate string `json:"creationDate"`
}

// RoomClient is one entry of a room's connected-client list.
type RoomClient struct {
	ID         string `json:"id"`
	Pseudonym  string `json:"pseudonym"`
	Registered bool   `json:"registered"`
}

// RoomSummary pairs a room with its live occupancy.
type RoomSummary struct {
	Room           RoomAttributes `json:"room"`
	UsersConnected int            `json:"usersConnected"`
}

// RoomRight is the admin-board projection of one right record.
type RoomRight struct {
	UserID int64 `json:"userId"`
	Edit   bool  `json:"edit"`
	Grant  bool  `json:"grant"`
	Kick   bool  `json:"kick"`
	Ban    bool  `json:"ban"`
}
