package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Service is the room protocol dispatcher. It validates inbound actions,
// mutates room state under the target room's lock, persists through the
// store, and fans replies out to the affected clients.
//
// Every send is computed as a (client, payload) pair while the relevant lock
// is held, then flushed after release, so payloads always reflect a
// consistent snapshot and no lock is held across a send.
type Service struct {
	name  string
	store store.Store
	log   *zerolog.Logger
}

// NewService constructs the room service. name is the service identifier
// echoed in every reply envelope.
func NewService(name string, st store.Store, logger *zerolog.Logger) *Service {
	return &Service{
		name:  name,
		store: st,
		log:   logger,
	}
}

// send is one pending notification: a payload addressed to a client.
type send struct {
	to    *Client
	reply *Reply
}

// Handle processes one action for a client. All domain and collaborator
// failures become a success=false reply to the requester; a panic inside a
// handler is fatal to that action only.
func (s *Service) Handle(ctx context.Context, action *Action, client *Client, rooms *RoomCollection) {
	var pending []send

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("client_id", client.ID).Msg("action dispatch panicked")
				pending = []send{{client, &Reply{Service: s.name, Success: false, Text: "An error occurred"}}}
			}
		}()
		pending = s.dispatch(ctx, action, client, rooms)
	}()

	for _, p := range pending {
		p.to.TrySend(p.reply)
	}
}

func (s *Service) dispatch(ctx context.Context, action *Action, client *Client, rooms *RoomCollection) []send {
	switch action.Kind {
	case ActionCreate:
		return s.create(ctx, action, client, rooms)
	case ActionUpdate:
		return s.update(ctx, action, client, rooms)
	case ActionConnect:
		return s.connect(action, client, rooms)
	case ActionDisconnect:
		return s.disconnect(action, client, rooms)
	case ActionUpdateUserRight:
		return s.updateUserRight(ctx, action, client, rooms)
	case ActionGetAll:
		return s.getAll(ctx, client, rooms)
	default:
		return []send{{client, &Reply{Service: s.name, Success: false, Text: "Unknown action"}}}
	}
}

// create persists a new room, grants the creator edit and grant rights,
// connects the creator and publishes the room. Any collaborator failure
// aborts before the room becomes visible in the collection.
func (s *Service) create(ctx context.Context, a *Action, client *Client, rooms *RoomCollection) []send {
	if !client.IsRegistered() {
		return s.fail(client, ReplyCreate, 0, ErrAuthFailed)
	}

	name := strings.TrimSpace(a.RoomName)
	if name == "" {
		return s.fail(client, ReplyCreate, 0, ErrEmptyRoomName)
	}
	if a.MaxUsers < 0 {
		return s.fail(client, ReplyCreate, 0, ErrNegativeMaxUsers)
	}

	ent, err := s.store.CreateRoom(ctx, client.User.ID, name, a.MaxUsers, a.RoomPassword)
	if err != nil {
		return s.fail(client, ReplyCreate, 0, fmt.Errorf("create room: %w", err))
	}

	right := &store.RoomRight{UserID: client.User.ID, RoomID: ent.ID, Edit: true, Grant: true}
	if err := s.store.SetRight(ctx, right); err != nil {
		return s.fail(client, ReplyCreate, 0, fmt.Errorf("grant creator rights: %w", err))
	}

	room := NewRoom(*ent)
	pseudonym := strings.TrimSpace(a.Pseudonym)
	if pseudonym == "" {
		pseudonym = client.User.Username
	}

	occupants, err := room.AddClient(client, pseudonym, ent.Password)
	if err != nil {
		return s.fail(client, ReplyCreate, ent.ID, err)
	}

	if err := rooms.Add(room); err != nil {
		return s.fail(client, ReplyCreate, ent.ID, err)
	}
	client.JoinedRoom(room.ID())

	attrs := room.Attributes()
	s.log.Info().Int64("room_id", attrs.ID).Str("name", attrs.Name).Int64("creator", attrs.Creator).Msg("room created")

	pending := []send{{client, &Reply{
		Service: s.name,
		Action:  ReplyCreate,
		Success: true,
		Text:    fmt.Sprintf("The room %q has been created", attrs.Name),
		RoomID:  attrs.ID,
		Room:    publicAttributes(attrs),
	}}}
	return append(pending, s.notifyClients(attrs.ID, occupants)...)
}

// update applies a validated attribute bundle to a room and tells every
// occupant about the new attributes.
func (s *Service) update(ctx context.Context, a *Action, client *Client, rooms *RoomCollection) []send {
	room := rooms.GetByID(a.RoomID)
	if room == nil {
		return s.fail(client, ReplyChangeRoomInfo, a.RoomID, ErrRoomNotFound)
	}
	if !client.IsRegistered() {
		return s.fail(client, ReplyChangeRoomInfo, a.RoomID, ErrAuthFailed)
	}

	hasEdit, err := s.store.HasEditRight(ctx, client.User.ID, room.ID())
	if err != nil {
		return s.fail(client, ReplyChangeRoomInfo, a.RoomID, fmt.Errorf("check edit right: %w", err))
	}
	if !hasEdit {
		return s.fail(client, ReplyChangeRoomInfo, a.RoomID, ErrNoEditRight)
	}
	if !room.IsPasswordCorrect(a.Password) {
		return s.fail(client, ReplyChangeRoomInfo, a.RoomID, ErrWrongPassword)
	}

	candidate, err := room.PreviewUpdate(a.RoomInfo)
	if err != nil {
		return s.fail(client, ReplyChangeRoomInfo, a.RoomID, err)
	}
	if err := s.store.SaveRoom(ctx, &candidate); err != nil {
		return s.fail(client, ReplyChangeRoomInfo, a.RoomID, fmt.Errorf("save room: %w", err))
	}

	// Snapshot is taken at commit time, so occupants who joined while the
	// save was in flight still get the notification.
	attrs, occupants := room.CommitUpdate(candidate)

	pending := []send{{client, &Reply{
		Service: s.name,
		Action:  ReplyChangeRoomInfo,
		Success: true,
		Text:    "Room information updated",
		RoomID:  attrs.ID,
	}}}
	info := publicAttributes(attrs)
	for _, occ := range occupants {
		pending = append(pending, send{occ.client, &Reply{
			Service:         s.name,
			Action:          ReplyUpdateRoom,
			Success:         true,
			RoomID:          attrs.ID,
			RoomInformation: info,
		}})
	}
	return pending
}

// connect joins the client to a room. The room's AddClient runs the whole
// validation chain (capacity, password, ban, pseudonym) under one lock.
func (s *Service) connect(a *Action, client *Client, rooms *RoomCollection) []send {
	room := rooms.GetByID(a.RoomID)
	if room == nil {
		return s.fail(client, ReplyConnect, a.RoomID, ErrRoomNotFound)
	}

	occupants, err := room.AddClient(client, strings.TrimSpace(a.Pseudonym), a.Password)
	if err != nil {
		return s.fail(client, ReplyConnect, a.RoomID, err)
	}
	client.JoinedRoom(room.ID())

	pending := []send{{client, &Reply{
		Service: s.name,
		Action:  ReplyConnect,
		Success: true,
		Text:    fmt.Sprintf("You are connected to the room %q", room.Name()),
		RoomID:  room.ID(),
	}}}
	return append(pending, s.notifyClients(room.ID(), occupants)...)
}

// disconnect removes the client from a room. The room stays alive even when
// it becomes empty; rooms only disappear through RemoveRoom.
func (s *Service) disconnect(a *Action, client *Client, rooms *RoomCollection) []send {
	room := rooms.GetByID(a.RoomID)
	if room == nil {
		return s.fail(client, ReplyDisconnect, a.RoomID, ErrRoomNotFound)
	}

	remaining, err := room.RemoveClient(client.ID)
	if err != nil {
		return s.fail(client, ReplyDisconnect, a.RoomID, err)
	}
	client.LeftRoom(room.ID())

	pending := []send{{client, &Reply{
		Service: s.name,
		Action:  ReplyDisconnect,
		Success: true,
		Text:    fmt.Sprintf("You left the room %q", room.Name()),
		RoomID:  room.ID(),
	}}}
	return append(pending, s.notifyClients(room.ID(), remaining)...)
}

// updateUserRight changes one named right of a room occupant and broadcasts
// the room's right records to the occupants entitled to the admin board.
func (s *Service) updateUserRight(ctx context.Context, a *Action, client *Client, rooms *RoomCollection) []send {
	room := rooms.GetByID(a.RoomID)
	if room == nil {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, ErrRoomNotFound)
	}
	if !client.IsRegistered() {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, ErrAuthFailed)
	}

	hasGrant, err := s.store.HasGrantRight(ctx, client.User.ID, room.ID())
	if err != nil {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, fmt.Errorf("check grant right: %w", err))
	}
	if !hasGrant {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, ErrNoGrantRight)
	}
	if !room.IsPasswordCorrect(a.Password) {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, ErrWrongPassword)
	}

	target, ok := room.ClientByPseudonym(a.Pseudonym)
	if !ok || target.User == nil {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID,
			&RoomError{ErrCodeNotFound, fmt.Sprintf("There is no user with the pseudonym %q in this room", a.Pseudonym)})
	}

	right, err := s.store.GetRight(ctx, target.User.ID, room.ID())
	if err != nil {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, fmt.Errorf("load right: %w", err))
	}
	if right == nil {
		right = &store.RoomRight{UserID: target.User.ID, RoomID: room.ID()}
	}

	switch a.RightName {
	case "edit":
		right.Edit = a.RightValue
	case "grant":
		right.Grant = a.RightValue
	case "kick":
		right.Kick = a.RightValue
	case "ban":
		right.Ban = a.RightValue
	default:
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, unknownRightError(a.RightName))
	}

	if err := s.store.SetRight(ctx, right); err != nil {
		return s.fail(client, ReplyUpdateUserRight, a.RoomID, fmt.Errorf("save right: %w", err))
	}

	s.log.Info().
		Int64("room_id", room.ID()).
		Int64("user_id", target.User.ID).
		Str("right", a.RightName).
		Bool("value", a.RightValue).
		Msg("user right updated")

	pending := []send{{client, &Reply{
		Service: s.name,
		Action:  ReplyUpdateUserRight,
		Success: true,
		Text:    "User right updated",
		RoomID:  room.ID(),
	}}}
	return append(pending, s.notifyRights(ctx, room)...)
}

// getAll returns every stored room with its live connected-client count.
// Rooms not currently loaded count zero occupants.
func (s *Service) getAll(ctx context.Context, client *Client, rooms *RoomCollection) []send {
	ents, err := s.store.ListRooms(ctx)
	if err != nil {
		return s.fail(client, ReplyGetAll, 0, fmt.Errorf("list rooms: %w", err))
	}

	summaries := make([]RoomSummary, 0, len(ents))
	for _, ent := range ents {
		count := 0
		if room := rooms.GetByID(ent.ID); room != nil {
			count = room.ClientCount()
		}
		summaries = append(summaries, RoomSummary{
			Room:           *publicAttributes(*ent),
			UsersConnected: count,
		})
	}

	return []send{{client, &Reply{
		Service: s.name,
		Action:  ReplyGetAll,
		Success: true,
		Rooms:   summaries,
	}}}
}

// DetachAll removes the client from every room it occupies and notifies the
// remaining occupants. Called by the transport when a session ends.
func (s *Service) DetachAll(client *Client, rooms *RoomCollection) {
	client.Close()

	var pending []send
	for _, id := range client.RoomIDs() {
		client.LeftRoom(id)
		room := rooms.GetByID(id)
		if room == nil {
			continue
		}
		remaining, err := room.RemoveClient(client.ID)
		if err != nil {
			continue
		}
		pending = append(pending, s.notifyClients(id, remaining)...)
	}

	for _, p := range pending {
		p.to.TrySend(p.reply)
	}
}

// RemoveRoom notifies and detaches every occupant of a room, then removes it
// from the collection.
func (s *Service) RemoveRoom(roomID int64, rooms *RoomCollection) error {
	room := rooms.GetByID(roomID)
	if room == nil {
		return ErrRoomNotFound
	}

	occupants := room.Occupants()
	var pending []send
	for _, occ := range occupants {
		if _, err := room.RemoveClient(occ.ClientID); err != nil {
			continue
		}
		occ.client.LeftRoom(roomID)
		pending = append(pending, send{occ.client, &Reply{
			Service: s.name,
			Action:  ReplyDisconnect,
			Success: true,
			Text:    fmt.Sprintf("The room %q has been closed", room.Name()),
			RoomID:  roomID,
		}})
	}

	if err := rooms.Remove(roomID); err != nil {
		return err
	}
	for _, p := range pending {
		p.to.TrySend(p.reply)
	}
	return nil
}

// notifyClients builds an updateClients notification for every occupant in
// the snapshot.
func (s *Service) notifyClients(roomID int64, occupants []Occupant) []send {
	pending := make([]send, 0, len(occupants))
	for _, occ := range occupants {
		pending = append(pending, send{occ.client, &Reply{
			Service: s.name,
			Action:  ReplyUpdateClients,
			Success: true,
			RoomID:  roomID,
			Clients: occupants,
		}})
	}
	return pending
}

// notifyRights builds an updateUserRights notification for every occupant
// the rights store admits to the room's admin board.
func (s *Service) notifyRights(ctx context.Context, room *Room) []send {
	rights, err := s.store.ListRoomRights(ctx, room.ID())
	if err != nil {
		s.log.Warn().Err(err).Int64("room_id", room.ID()).Msg("list rights for broadcast")
		return nil
	}

	views := make([]RightView, 0, len(rights))
	for _, r := range rights {
		views = append(views, RightView{
			UserID: r.UserID,
			Edit:   r.Edit,
			Grant:  r.Grant,
			Kick:   r.Kick,
			Ban:    r.Ban,
		})
	}

	var pending []send
	for _, occ := range room.Occupants() {
		if occ.UserID == 0 {
			continue
		}
		ok, err := s.store.HasAdminView(ctx, occ.UserID, room.ID())
		if err != nil {
			s.log.Warn().Err(err).Int64("user_id", occ.UserID).Msg("check admin view")
			continue
		}
		if !ok {
			continue
		}
		pending = append(pending, send{occ.client, &Reply{
			Service: s.name,
			Action:  ReplyUpdateUserRights,
			Success: true,
			RoomID:  room.ID(),
			Rights:  views,
		}})
	}
	return pending
}

// fail converts any error into a single success=false reply. Domain errors
// carry their own message; everything else is logged and reported
// generically so collaborator internals never reach the wire.
func (s *Service) fail(to *Client, action string, roomID int64, err error) []send {
	text := "An error occurred"
	var re *RoomError
	if errors.As(err, &re) {
		text = re.Message
	} else if err != nil {
		s.log.Error().Err(err).Str("action", action).Str("client_id", to.ID).Msg("action failed")
	}
	return []send{{to, &Reply{
		Service: s.name,
		Action:  action,
		Success: false,
		Text:    text,
		RoomID:  roomID,
	}}}
}
