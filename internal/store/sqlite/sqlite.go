package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roomcast/roomcast-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_guest      BOOLEAN NOT NULL DEFAULT 0,
	session_id    TEXT,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	creator    INTEGER NOT NULL REFERENCES users(id),
	password   TEXT NOT NULL DEFAULT '',
	max_users  INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS room_rights (
	user_id   INTEGER NOT NULL REFERENCES users(id),
	room_id   INTEGER NOT NULL REFERENCES rooms(id),
	can_edit  BOOLEAN NOT NULL DEFAULT 0,
	can_grant BOOLEAN NOT NULL DEFAULT 0,
	can_kick  BOOLEAN NOT NULL DEFAULT 0,
	can_ban   BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, room_id)
);
`

// New creates a new SQLite store and bootstraps the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function instead
// of the default schema. Useful for tests.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, is_guest)
		VALUES (?, ?, 0)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// CreateGuestUser creates a temporary guest user with session ID.
func (s *SQLiteStore) CreateGuestUser(ctx context.Context, sessionID string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, is_guest, session_id)
		VALUES (?, '', 1, ?)
	`
	guestUsername := "guest_" + sessionID[:8]

	result, err := s.db.ExecContext(ctx, query, guestUsername, sessionID)
	if err != nil {
		return nil, fmt.Errorf("insert guest user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_guest, COALESCE(session_id, ''), created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsGuest,
		&user.SessionID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_guest, COALESCE(session_id, ''), created_at
		FROM users
		WHERE username = ? AND is_guest = 0
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsGuest,
		&user.SessionID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserBySessionID retrieves a guest user by session ID.
func (s *SQLiteStore) GetUserBySessionID(ctx context.Context, sessionID string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_guest, COALESCE(session_id, ''), created_at
		FROM users
		WHERE session_id = ? AND is_guest = 1
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsGuest,
		&user.SessionID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("guest user not found: %w", err)
		}
		return nil, fmt.Errorf("query guest user: %w", err)
	}

	return &user, nil
}

// ==== RoomStore implementation ====

// CreateRoom persists a new room and returns it with its assigned ID.
func (s *SQLiteStore) CreateRoom(ctx context.Context, creator int64, name string, maxUsers int, password string) (*store.Room, error) {
	query := `
		INSERT INTO rooms (name, creator, password, max_users)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, creator, password, maxUsers)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// SaveRoom updates an existing room's attributes.
func (s *SQLiteStore) SaveRoom(ctx context.Context, room *store.Room) error {
	query := `
		UPDATE rooms
		SET name = ?, password = ?, max_users = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, room.Name, room.Password, room.MaxUsers, room.ID)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("room %d not found", room.ID)
	}

	return nil
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, name, creator, password, max_users, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Creator,
		&room.Password,
		&room.MaxUsers,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room not found: %w", err)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// ListRooms lists every stored room.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	query := `
		SELECT id, name, creator, password, max_users, created_at
		FROM rooms
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.Creator,
			&room.Password,
			&room.MaxUsers,
			&room.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return rooms, nil
}

// ==== RightStore implementation ====

// GetRight retrieves the right record of a user for a room, or nil if absent.
func (s *SQLiteStore) GetRight(ctx context.Context, userID, roomID int64) (*store.RoomRight, error) {
	query := `
		SELECT user_id, room_id, can_edit, can_grant, can_kick, can_ban
		FROM room_rights
		WHERE user_id = ? AND room_id = ?
	`
	var right store.RoomRight
	err := s.db.QueryRowContext(ctx, query, userID, roomID).Scan(
		&right.UserID,
		&right.RoomID,
		&right.Edit,
		&right.Grant,
		&right.Kick,
		&right.Ban,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query right: %w", err)
	}

	return &right, nil
}

// SetRight inserts or updates a right record.
func (s *SQLiteStore) SetRight(ctx context.Context, right *store.RoomRight) error {
	query := `
		INSERT INTO room_rights (user_id, room_id, can_edit, can_grant, can_kick, can_ban)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, room_id) DO UPDATE SET
			can_edit = excluded.can_edit,
			can_grant = excluded.can_grant,
			can_kick = excluded.can_kick,
			can_ban = excluded.can_ban
	`
	_, err := s.db.ExecContext(ctx, query,
		right.UserID,
		right.RoomID,
		right.Edit,
		right.Grant,
		right.Kick,
		right.Ban,
	)
	if err != nil {
		return fmt.Errorf("upsert right: %w", err)
	}

	return nil
}

// ListRoomRights lists every right record for a room.
func (s *SQLiteStore) ListRoomRights(ctx context.Context, roomID int64) ([]*store.RoomRight, error) {
	query := `
		SELECT user_id, room_id, can_edit, can_grant, can_kick, can_ban
		FROM room_rights
		WHERE room_id = ?
		ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query rights: %w", err)
	}
	defer rows.Close()

	var rights []*store.RoomRight
	for rows.Next() {
		var right store.RoomRight
		if err := rows.Scan(
			&right.UserID,
			&right.RoomID,
			&right.Edit,
			&right.Grant,
			&right.Kick,
			&right.Ban,
		); err != nil {
			return nil, fmt.Errorf("scan right: %w", err)
		}
		rights = append(rights, &right)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rights: %w", err)
	}

	return rights, nil
}

// HasEditRight reports whether the user may edit the room's attributes.
func (s *SQLiteStore) HasEditRight(ctx context.Context, userID, roomID int64) (bool, error) {
	right, err := s.GetRight(ctx, userID, roomID)
	if err != nil {
		return false, err
	}
	return right != nil && right.Edit, nil
}

// HasGrantRight reports whether the user may grant rights in the room.
func (s *SQLiteStore) HasGrantRight(ctx context.Context, userID, roomID int64) (bool, error) {
	right, err := s.GetRight(ctx, userID, roomID)
	if err != nil {
		return false, err
	}
	return right != nil && right.Grant, nil
}

// HasAdminView reports whether the user sees the room's admin board.
func (s *SQLiteStore) HasAdminView(ctx context.Context, userID, roomID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rooms WHERE id = ? AND creator = ?
		) OR EXISTS (
			SELECT 1 FROM room_rights WHERE room_id = ? AND user_id = ?
		)
	`
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, roomID, userID, roomID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("query admin view: %w", err)
	}
	return ok, nil
}
