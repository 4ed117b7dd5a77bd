package http

import (
	"time"

	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/proto"
)

// actionFromMessage maps an inbound wire message to a core action.
// Unrecognized action names map to ActionUnknown, which the service answers
// with its "Unknown action" failure reply.
func actionFromMessage(msg *proto.ActionMessage) *core.Action {
	action := &core.Action{
		RoomID:       msg.RoomID,
		RoomName:     msg.RoomName,
		MaxUsers:     msg.MaxUsers,
		RoomPassword: msg.RoomPassword,
		Password:     msg.Password,
		Pseudonym:    msg.Pseudonym,
		RoomInfo:     msg.RoomInfo,
		RightName:    msg.RightName,
		RightValue:   msg.RightValue,
	}

	switch msg.Action {
	case proto.ActionCreate:
		action.Kind = core.ActionCreate
	case proto.ActionUpdate:
		action.Kind = core.ActionUpdate
	case proto.ActionConnect:
		action.Kind = core.ActionConnect
	case proto.ActionDisconnect:
		action.Kind = core.ActionDisconnect
	case proto.ActionUpdateUserRight:
		action.Kind = core.ActionUpdateUserRight
	case proto.ActionGetAll:
		action.Kind = core.ActionGetAll
	default:
		action.Kind = core.ActionUnknown
	}

	return action
}

// replyToWire maps a core reply to its wire representation.
func replyToWire(r *core.Reply) *proto.Reply {
	out := &proto.Reply{
		Service: r.Service,
		Action:  r.Action,
		Success: r.Success,
		Text:    r.Text,
		RoomID:  r.RoomID,
	}

	if r.Room != nil {
		out.Room = attributesToWire(r.Room)
	}
	if r.RoomInformation != nil {
		out.RoomInformation = attributesToWire(r.RoomInformation)
	}
	if r.Rooms != nil {
		out.Rooms = make([]proto.RoomSummary, 0, len(r.Rooms))
		for _, s := range r.Rooms {
			out.Rooms = append(out.Rooms, proto.RoomSummary{
				Room:           *attributesToWire(&s.Room),
				UsersConnected: s.UsersConnected,
			})
		}
	}
	if r.Clients != nil {
		out.Clients = make([]proto.RoomClient, 0, len(r.Clients))
		for _, c := range r.Clients {
			out.Clients = append(out.Clients, proto.RoomClient{
				ID:         c.ClientID,
				Pseudonym:  c.Pseudonym,
				Registered: c.Registered,
			})
		}
	}
	if r.Rights != nil {
		out.Rights = make([]proto.RoomRight, 0, len(r.Rights))
		for _, right := range r.Rights {
			out.Rights = append(out.Rights, proto.RoomRight{
				UserID: right.UserID,
				Edit:   right.Edit,
				Grant:  right.Grant,
				Kick:   right.Kick,
				Ban:    right.Ban,
			})
		}
	}

	return out
}

func attributesToWire(attrs *core.RoomAttributes) *proto.RoomAttributes {
	return &proto.RoomAttributes{
		ID:           attrs.ID,
		Name:         attrs.Name,
		Creator:      attrs.Creator,
		MaxUsers:     attrs.MaxUsers,
		CreationDate: attrs.CreatedAt.UTC().Format(time.RFC3339),
	}
}
