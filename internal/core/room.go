package core

import (
	"crypto/subtle"
	"fmt"
	"sort"
	"sync"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Room is the authoritative live state of one chat room: its persisted
// attributes, the connected clients with their pseudonyms, and the ban list.
// All state is guarded by a per-room mutex; mutating methods take a
// membership snapshot under the same lock so notifications always reflect a
// state that existed at a single instant.
type Room struct {
	mu         sync.Mutex
	attrs      store.Room
	clients    map[string]*Client // client ID -> client
	pseudonyms map[string]string  // client ID -> pseudonym, same key set as clients
	banned     map[string]struct{}
}

// NewRoom constructs a room around its persisted attributes, with no clients.
func NewRoom(attrs store.Room) *Room {
	return &Room{
		attrs:      attrs,
		clients:    make(map[string]*Client),
		pseudonyms: make(map[string]string),
		banned:     make(map[string]struct{}),
	}
}

// ID returns the room's stable identifier.
func (r *Room) ID() int64 {
	return r.attrs.ID
}

// Name returns the room's current name.
func (r *Room) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attrs.Name
}

// Attributes returns a copy of the room's persisted attributes.
func (r *Room) Attributes() store.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attrs
}

// ClientCount returns the number of connected clients.
func (r *Room) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// AddClient validates and inserts a client under a single critical section.
// Checks run in fixed order: capacity, password, ban status, non-empty
// pseudonym, pseudonym uniqueness; the first failure is returned. On success
// both the client and pseudonym maps are updated together and the full
// occupant list, including the newcomer, is returned as a snapshot.
func (r *Room) AddClient(c *Client, pseudonym, password string) ([]Occupant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.attrs.MaxUsers > 0 && len(r.clients) >= r.attrs.MaxUsers:
		return nil, ErrRoomFull
	case !r.passwordMatches(password):
		return nil, ErrWrongPassword
	case r.isBanned(c.Identity()):
		return nil, ErrBanned
	case pseudonym == "":
		return nil, ErrEmptyPseudonym
	case r.pseudonymUsed(pseudonym):
		return nil, ErrPseudonymTaken
	}

	r.clients[c.ID] = c
	r.pseudonyms[c.ID] = pseudonym
	return r.occupants(), nil
}

// RemoveClient removes a client from both maps and returns the remaining
// occupants as a snapshot.
func (r *Room) RemoveClient(clientID string) ([]Occupant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; !ok {
		return nil, ErrNotInRoom
	}
	delete(r.clients, clientID)
	delete(r.pseudonyms, clientID)
	return r.occupants(), nil
}

// IsFull reports whether the room is at capacity.
func (r *Room) IsFull() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attrs.MaxUsers > 0 && len(r.clients) >= r.attrs.MaxUsers
}

// IsPasswordCorrect compares the candidate against the stored password.
// A room without a password accepts any candidate.
func (r *Room) IsPasswordCorrect(candidate string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passwordMatches(candidate)
}

// IsClientBanned reports whether the identity is in the ban set.
func (r *Room) IsClientBanned(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isBanned(identity)
}

// IsPseudonymUsed reports whether a present client holds the pseudonym.
// The comparison is case-sensitive.
func (r *Room) IsPseudonymUsed(pseudonym string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pseudonymUsed(pseudonym)
}

// Ban adds an identity to the ban set.
func (r *Room) Ban(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banned[identity] = struct{}{}
}

// Unban removes an identity from the ban set.
func (r *Room) Unban(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.banned, identity)
}

// ClientByPseudonym resolves a present client by its pseudonym.
func (r *Room) ClientByPseudonym(pseudonym string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.pseudonyms {
		if p == pseudonym {
			return r.clients[id], true
		}
	}
	return nil, false
}

// Occupants returns a snapshot of the connected clients and their pseudonyms.
func (r *Room) Occupants() []Occupant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.occupants()
}

// mutable is the set of attributes a bulk update may touch. Identity fields
// (id, creator, creationDate) are immutable once assigned by the store.
var mutable = map[string]func(*store.Room, any) error{
	"name": func(room *store.Room, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("name must be a string")
		}
		room.Name = s
		return nil
	},
	"password": func(room *store.Room, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("password must be a string")
		}
		room.Password = s
		return nil
	},
	"maxUsers": func(room *store.Room, v any) error {
		n, ok := asInt(v)
		if !ok || n < 0 {
			return fmt.Errorf("maxUsers must be a non-negative number")
		}
		room.MaxUsers = n
		return nil
	},
}

// PreviewUpdate validates an attribute bundle against the mutable set and
// returns the attributes that would result. Keys are checked in sorted order
// and the first invalid one fails the whole bundle; the room is untouched.
func (r *Room) PreviewUpdate(info map[string]any) (store.Room, error) {
	r.mu.Lock()
	candidate := r.attrs
	r.mu.Unlock()

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		apply, ok := mutable[k]
		if !ok {
			return store.Room{}, invalidAttributeError(k)
		}
		if err := apply(&candidate, info[k]); err != nil {
			return store.Room{}, invalidAttributeError(k)
		}
	}
	return candidate, nil
}

// CommitUpdate installs previously persisted attributes and returns them
// together with an occupant snapshot taken under the same lock, so the
// update notification reflects exactly the committed state.
func (r *Room) CommitUpdate(attrs store.Room) (store.Room, []Occupant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs = attrs
	return r.attrs, r.occupants()
}

// occupants builds a snapshot of the current membership. Caller holds r.mu.
func (r *Room) occupants() []Occupant {
	occ := make([]Occupant, 0, len(r.clients))
	for id, c := range r.clients {
		o := Occupant{
			ClientID:  id,
			Pseudonym: r.pseudonyms[id],
			client:    c,
		}
		if c.User != nil {
			o.UserID = c.User.ID
			o.Registered = !c.User.IsGuest
		}
		occ = append(occ, o)
	}
	sort.Slice(occ, func(i, j int) bool { return occ[i].Pseudonym < occ[j].Pseudonym })
	return occ
}

func (r *Room) passwordMatches(candidate string) bool {
	if r.attrs.Password == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(r.attrs.Password), []byte(candidate)) == 1
}

func (r *Room) isBanned(identity string) bool {
	_, ok := r.banned[identity]
	return ok
}

func (r *Room) pseudonymUsed(pseudonym string) bool {
	for _, p := range r.pseudonyms {
		if p == pseudonym {
			return true
		}
	}
	return false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
