package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/roomcast/roomcast-server/internal/store"
)

// RoomCollection is the process-wide indexed set of live rooms: an ordered
// sequence plus an id -> position map for O(1) lookup. Structural changes
// are serialized by a single mutex so the index never disagrees with the
// sequence.
type RoomCollection struct {
	mu    sync.RWMutex
	rooms []*Room
	index map[int64]int
}

// NewRoomCollection constructs an empty collection.
func NewRoomCollection() *RoomCollection {
	return &RoomCollection{
		index: make(map[int64]int),
	}
}

// Add appends and indexes a room. Fails if a room with the same ID is
// already present.
func (rc *RoomCollection) Add(room *Room) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	id := room.ID()
	if _, exists := rc.index[id]; exists {
		return duplicateRoomError(id)
	}
	rc.rooms = append(rc.rooms, room)
	rc.index[id] = len(rc.rooms) - 1
	return nil
}

// Remove deletes the room with the given ID. The caller is responsible for
// notifying and detaching the room's clients first; the collection has no
// notification capability of its own.
func (rc *RoomCollection) Remove(roomID int64) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	pos, exists := rc.index[roomID]
	if !exists {
		return ErrRoomNotFound
	}

	last := len(rc.rooms) - 1
	if pos != last {
		rc.rooms[pos] = rc.rooms[last]
		rc.index[rc.rooms[pos].ID()] = pos
	}
	rc.rooms = rc.rooms[:last]
	delete(rc.index, roomID)
	return nil
}

// Exists reports whether a room with the given ID is present.
func (rc *RoomCollection) Exists(roomID int64) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	_, ok := rc.index[roomID]
	return ok
}

// GetByID returns the room with the given ID, or nil if absent.
func (rc *RoomCollection) GetByID(roomID int64) *Room {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	pos, ok := rc.index[roomID]
	if !ok {
		return nil
	}
	return rc.rooms[pos]
}

// Len returns the number of rooms in the collection.
func (rc *RoomCollection) Len() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.rooms)
}

// Load bulk-populates the collection from the room store. Intended for
// startup, before the collection is shared.
func (rc *RoomCollection) Load(ctx context.Context, st store.RoomStore) error {
	rooms, err := st.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	for _, ent := range rooms {
		if err := rc.Add(NewRoom(*ent)); err != nil {
			return fmt.Errorf("add room %d: %w", ent.ID, err)
		}
	}
	return nil
}
