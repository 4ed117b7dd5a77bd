package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// fakeStore is an in-memory store.Store for service tests.
type fakeStore struct {
	mu         sync.Mutex
	nextRoomID int64
	rooms      map[int64]*store.Room
	rights     map[string]*store.RoomRight

	failCreateRoom bool
	failSaveRoom   bool
	failSetRight   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:  make(map[int64]*store.Room),
		rights: make(map[string]*store.RoomRight),
	}
}

func rightKey(userID, roomID int64) string {
	return strconv.FormatInt(userID, 10) + "/" + strconv.FormatInt(roomID, 10)
}

func (f *fakeStore) CreateRoom(_ context.Context, creator int64, name string, maxUsers int, password string) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateRoom {
		return nil, errors.New("create failed")
	}
	f.nextRoomID++
	room := &store.Room{
		ID:        f.nextRoomID,
		Name:      name,
		Creator:   creator,
		Password:  password,
		MaxUsers:  maxUsers,
		CreatedAt: time.Now(),
	}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeStore) SaveRoom(_ context.Context, room *store.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaveRoom {
		return errors.New("save failed")
	}
	if _, ok := f.rooms[room.ID]; !ok {
		return fmt.Errorf("room %d not found", room.ID)
	}
	clone := *room
	f.rooms[room.ID] = &clone
	return nil
}

func (f *fakeStore) GetRoomByID(_ context.Context, id int64) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %d not found", id)
	}
	clone := *room
	return &clone, nil
}

func (f *fakeStore) ListRooms(_ context.Context) ([]*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rooms := make([]*store.Room, 0, len(f.rooms))
	for id := int64(1); id <= f.nextRoomID; id++ {
		if room, ok := f.rooms[id]; ok {
			clone := *room
			rooms = append(rooms, &clone)
		}
	}
	return rooms, nil
}

func (f *fakeStore) GetRight(_ context.Context, userID, roomID int64) (*store.RoomRight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	right, ok := f.rights[rightKey(userID, roomID)]
	if !ok {
		return nil, nil
	}
	clone := *right
	return &clone, nil
}

func (f *fakeStore) SetRight(_ context.Context, right *store.RoomRight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetRight {
		return errors.New("set right failed")
	}
	clone := *right
	f.rights[rightKey(right.UserID, right.RoomID)] = &clone
	return nil
}

func (f *fakeStore) ListRoomRights(_ context.Context, roomID int64) ([]*store.RoomRight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rights []*store.RoomRight
	for _, right := range f.rights {
		if right.RoomID == roomID {
			clone := *right
			rights = append(rights, &clone)
		}
	}
	return rights, nil
}

func (f *fakeStore) HasEditRight(ctx context.Context, userID, roomID int64) (bool, error) {
	right, err := f.GetRight(ctx, userID, roomID)
	if err != nil {
		return false, err
	}
	return right != nil && right.Edit, nil
}

func (f *fakeStore) HasGrantRight(ctx context.Context, userID, roomID int64) (bool, error) {
	right, err := f.GetRight(ctx, userID, roomID)
	if err != nil {
		return false, err
	}
	return right != nil && right.Grant, nil
}

func (f *fakeStore) HasAdminView(ctx context.Context, userID, roomID int64) (bool, error) {
	f.mu.Lock()
	room, ok := f.rooms[roomID]
	creator := ok && room.Creator == userID
	f.mu.Unlock()
	if creator {
		return true, nil
	}
	right, err := f.GetRight(ctx, userID, roomID)
	if err != nil {
		return false, err
	}
	return right != nil, nil
}

func (f *fakeStore) CreateUser(context.Context, string, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) CreateGuestUser(context.Context, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetUserByID(context.Context, int64) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetUserByUsername(context.Context, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetUserBySessionID(context.Context, string) (*store.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Close() error { return nil }

func newTestService(st store.Store) *Service {
	logger := zerolog.Nop()
	return NewService("room", st, &logger)
}

func registeredClient(id int64, username string) *Client {
	return NewClient("conn-"+username, &store.User{ID: id, Username: username})
}

func guestClient(id string) *Client {
	return NewClient(id, nil)
}

// mustReply drains the client's outbound channel until a reply with the
// given action arrives.
func mustReply(t *testing.T, c *Client, action string) *Reply {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case r := <-c.Replies:
			if r == nil {
				continue
			}
			if r.Action == action {
				return r
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected reply with action %q not received", action)
	return nil
}

func drainReplies(c *Client) {
	for {
		select {
		case <-c.Replies:
		default:
			return
		}
	}
}
