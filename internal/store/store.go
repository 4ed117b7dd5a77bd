package store

import (
	"context"
	"time"
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	CreatedAt    time.Time
}

// Room represents the persisted state of a chat room.
type Room struct {
	ID        int64
	Name      string
	Creator   int64  // user ID of the room creator
	Password  string // empty means public
	MaxUsers  int    // 0 means unlimited
	CreatedAt time.Time
}

// RoomRight holds the per-room permissions of one user.
type RoomRight struct {
	UserID int64
	RoomID int64
	Edit   bool // may change the room's attributes
	Grant  bool // may grant rights to other users
	Kick   bool
	Ban    bool
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserBySessionID retrieves a guest user by session ID.
	GetUserBySessionID(ctx context.Context, sessionID string) (*User, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom persists a new room and returns it with its assigned ID.
	CreateRoom(ctx context.Context, creator int64, name string, maxUsers int, password string) (*Room, error)

	// SaveRoom updates an existing room's attributes.
	SaveRoom(ctx context.Context, room *Room) error

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// ListRooms lists every stored room.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// RightStore handles per-room user rights.
type RightStore interface {
	// GetRight retrieves the right record of a user for a room, or nil if absent.
	GetRight(ctx context.Context, userID, roomID int64) (*RoomRight, error)

	// SetRight inserts or updates a right record.
	SetRight(ctx context.Context, right *RoomRight) error

	// ListRoomRights lists every right record for a room.
	ListRoomRights(ctx context.Context, roomID int64) ([]*RoomRight, error)

	// HasEditRight reports whether the user may edit the room's attributes.
	HasEditRight(ctx context.Context, userID, roomID int64) (bool, error)

	// HasGrantRight reports whether the user may grant rights in the room.
	HasGrantRight(ctx context.Context, userID, roomID int64) (bool, error)

	// HasAdminView reports whether the user sees the room's admin board:
	// the room creator, or any user holding a right record for the room.
	HasAdminView(ctx context.Context, userID, roomID int64) (bool, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	RightStore

	// Close closes the underlying database connection.
	Close() error
}
