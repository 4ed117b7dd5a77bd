package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/proto"
)

func TestActionFromMessage(t *testing.T) {
	tests := []struct {
		wire string
		kind core.ActionKind
	}{
		{proto.ActionCreate, core.ActionCreate},
		{proto.ActionUpdate, core.ActionUpdate},
		{proto.ActionConnect, core.ActionConnect},
		{proto.ActionDisconnect, core.ActionDisconnect},
		{proto.ActionUpdateUserRight, core.ActionUpdateUserRight},
		{proto.ActionGetAll, core.ActionGetAll},
		{"explode", core.ActionUnknown},
		{"", core.ActionUnknown},
	}

	for _, tt := range tests {
		action := actionFromMessage(&proto.ActionMessage{Action: tt.wire})
		require.Equal(t, tt.kind, action.Kind, "action %q", tt.wire)
	}
}

func TestActionFromMessageCarriesPayload(t *testing.T) {
	msg := &proto.ActionMessage{
		Action:       proto.ActionUpdate,
		RoomID:       7,
		Password:     "secret",
		RoomInfo:     map[string]any{"name": "renamed"},
		RightName:    "edit",
		RightValue:   true,
		Pseudonym:    "alice",
		RoomName:     "lobby",
		MaxUsers:     5,
		RoomPassword: "roompw",
	}

	action := actionFromMessage(msg)
	require.Equal(t, int64(7), action.RoomID)
	require.Equal(t, "secret", action.Password)
	require.Equal(t, map[string]any{"name": "renamed"}, action.RoomInfo)
	require.Equal(t, "edit", action.RightName)
	require.True(t, action.RightValue)
	require.Equal(t, "alice", action.Pseudonym)
	require.Equal(t, "lobby", action.RoomName)
	require.Equal(t, 5, action.MaxUsers)
	require.Equal(t, "roompw", action.RoomPassword)
}

func TestReplyToWire(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	reply := &core.Reply{
		Service: "room",
		Action:  core.ReplyConnect,
		Success: true,
		Text:    "connected",
		RoomID:  3,
		Room: &core.RoomAttributes{
			ID:        3,
			Name:      "lobby",
			Creator:   1,
			MaxUsers:  10,
			CreatedAt: created,
		},
		Clients: []core.Occupant{
			{ClientID: "c1", Pseudonym: "alice", Registered: true},
			{ClientID: "c2", Pseudonym: "bob"},
		},
		Rights: []core.RightView{
			{UserID: 1, Edit: true, Grant: true},
		},
	}

	wire := replyToWire(reply)
	require.Equal(t, "room", wire.Service)
	require.Equal(t, "connect", wire.Action)
	require.True(t, wire.Success)
	require.Equal(t, int64(3), wire.RoomID)

	require.NotNil(t, wire.Room)
	require.Equal(t, "2024-05-01T12:30:00Z", wire.Room.CreationDate)

	require.Len(t, wire.Clients, 2)
	require.Equal(t, proto.RoomClient{ID: "c1", Pseudonym: "alice", Registered: true}, wire.Clients[0])

	require.Len(t, wire.Rights, 1)
	require.True(t, wire.Rights[0].Edit)
}

func TestReplyToWireOmitsAbsentSections(t *testing.T) {
	wire := replyToWire(&core.Reply{Service: "room", Action: core.ReplyGetAll, Success: true})
	require.Nil(t, wire.Room)
	require.Nil(t, wire.Rooms)
	require.Nil(t, wire.Clients)
	require.Nil(t, wire.RoomInformation)
	require.Nil(t, wire.Rights)
}

func TestReplyToWireRoomSummaries(t *testing.T) {
	reply := &core.Reply{
		Service: "room",
		Action:  core.ReplyGetAll,
		Success: true,
		Rooms: []core.RoomSummary{
			{Room: core.RoomAttributes{ID: 1, Name: "one"}, UsersConnected: 2},
			{Room: core.RoomAttributes{ID: 2, Name: "two"}},
		},
	}

	wire := replyToWire(reply)
	require.Len(t, wire.Rooms, 2)
	require.Equal(t, int64(1), wire.Rooms[0].Room.ID)
	require.Equal(t, 2, wire.Rooms[0].UsersConnected)
	require.Equal(t, 0, wire.Rooms[1].UsersConnected)
}
