package core

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Client binds a live connection to an optional authenticated user.
// The transport layer owns the connection; the core only enqueues
// replies on the outbound channel and never closes the socket itself.
type Client struct {
	ID      string
	User    *store.User // nil for unauthenticated connections
	Replies chan *Reply

	// rooms the client currently occupies, keyed by room ID. Guarded by
	// mu: the client's dispatch goroutine and administrative room removal
	// both touch this map.
	mu    sync.Mutex
	rooms map[int64]struct{}

	closed atomic.Bool
}

// NewClient constructs a client with an initialized outbound channel.
// user may be nil for unauthenticated connections.
func NewClient(id string, user *store.User) *Client {
	return &Client{
		ID:      id,
		User:    user,
		Replies: make(chan *Reply, 16),
		rooms:   make(map[int64]struct{}),
	}
}

// IsRegistered reports whether the client carries a non-guest user.
func (c *Client) IsRegistered() bool {
	return c.User != nil && !c.User.IsGuest
}

// Identity returns the ban-list identity of the client: the user ID when
// authenticated, otherwise the connection ID.
func (c *Client) Identity() string {
	if c.User != nil {
		return "user:" + strconv.FormatInt(c.User.ID, 10)
	}
	return "conn:" + c.ID
}

// TrySend enqueues a reply without blocking. Replies to closed clients or
// slow consumers are dropped.
func (c *Client) TrySend(r *Reply) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.Replies <- r:
		return true
	default:
		return false
	}
}

// Close marks the client as closed. Subsequent sends are dropped silently.
func (c *Client) Close() {
	c.closed.Store(true)
}

// JoinedRoom records that the client now occupies the room.
func (c *Client) JoinedRoom(roomID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = struct{}{}
}

// LeftRoom records that the client no longer occupies the room.
func (c *Client) LeftRoom(roomID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

// RoomIDs returns a snapshot of the rooms the client currently occupies.
func (c *Client) RoomIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}
