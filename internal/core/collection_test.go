package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomcast/roomcast-server/internal/store"
)

func TestCollectionAddAndLookup(t *testing.T) {
	rc := NewRoomCollection()
	room := NewRoom(store.Room{ID: 1, Name: "lobby"})

	require.NoError(t, rc.Add(room))
	require.True(t, rc.Exists(1))
	require.Same(t, room, rc.GetByID(1))
	require.Equal(t, 1, rc.Len())

	require.False(t, rc.Exists(2))
	require.Nil(t, rc.GetByID(2))
}

func TestCollectionRejectsDuplicateID(t *testing.T) {
	rc := NewRoomCollection()
	require.NoError(t, rc.Add(NewRoom(store.Room{ID: 1})))

	err := rc.Add(NewRoom(store.Room{ID: 1}))
	require.Equal(t, ErrCodeDuplicateRoom, CodeOf(err))
	require.Equal(t, 1, rc.Len())
}

func TestCollectionRemove(t *testing.T) {
	rc := NewRoomCollection()
	require.NoError(t, rc.Add(NewRoom(store.Room{ID: 1})))

	require.NoError(t, rc.Remove(1))
	require.False(t, rc.Exists(1))
	require.Nil(t, rc.GetByID(1))

	err := rc.Remove(1)
	require.Equal(t, ErrCodeNotFound, CodeOf(err))
}

func TestCollectionIndexConsistency(t *testing.T) {
	rc := NewRoomCollection()
	for id := int64(1); id <= 10; id++ {
		require.NoError(t, rc.Add(NewRoom(store.Room{ID: id})))
	}

	// Removing from the middle must keep every surviving ID reachable.
	require.NoError(t, rc.Remove(3))
	require.NoError(t, rc.Remove(7))
	require.NoError(t, rc.Remove(10))

	for id := int64(1); id <= 10; id++ {
		room := rc.GetByID(id)
		if id == 3 || id == 7 || id == 10 {
			require.False(t, rc.Exists(id), "id %d", id)
			require.Nil(t, room, "id %d", id)
			continue
		}
		require.True(t, rc.Exists(id), "id %d", id)
		require.NotNil(t, room, "id %d", id)
		require.Equal(t, id, room.ID())
	}
	require.Equal(t, 7, rc.Len())
}

func TestCollectionLoad(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := st.CreateRoom(ctx, 1, fmt.Sprintf("room-%d", i), 0, "")
		require.NoError(t, err)
	}

	rc := NewRoomCollection()
	require.NoError(t, rc.Load(ctx, st))
	require.Equal(t, 3, rc.Len())
	for id := int64(1); id <= 3; id++ {
		require.True(t, rc.Exists(id))
		require.Equal(t, 0, rc.GetByID(id).ClientCount())
	}
}
