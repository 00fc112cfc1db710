package lobby

import "sync"

// Conn is a non-owning handle to a participant's transport connection.
//
// The gateway owns the underlying connection and its lifecycle; the registry
// only stores handles so the router can address outbound frames. Handles must
// be comparable (pointer types are), since disconnect cleanup matches entries
// by identity.
type Conn interface {
	// WriteText queues one text frame for delivery. Sends are fire-and-forget:
	// the router never waits for acknowledgement.
	WriteText(data []byte) error
}

// Room associates one host connection (the game server side) with the
// controller connections joined under its code.
type Room struct {
	code string
	host Conn

	mu    sync.Mutex
	users map[int32]Conn

	// sealed is reserved for future "no more joins" semantics. No code path
	// transitions it today, but it is modeled and exposed so the wire protocol
	// can grow without a registry change.
	sealed bool
}

func (r *Room) Code() string { return r.code }

// Host returns the room's owning connection. It is set at creation and never
// reassigned for the life of the room.
func (r *Room) Host() Conn { return r.host }

func (r *Room) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// User returns the connection joined under the given peer ID.
func (r *Room) User(id int32) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.users[id]
	return conn, ok
}

func (r *Room) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *Room) addUser(id int32, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = conn
}

func (r *Room) dropConn(conn Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.users {
		if c == conn {
			delete(r.users, id)
			removed++
		}
	}
	return removed
}

// Registry is the single source of truth for room membership and for the set
// of peer IDs ever issued by this process.
//
// All methods are safe for concurrent use. Operations are O(1) map touches
// under one mutex; there is no finer-grained locking requirement.
type Registry struct {
	// maxRooms caps the number of active rooms. <= 0 means unlimited.
	maxRooms int

	mu     sync.Mutex
	rooms  map[string]*Room
	issued map[int32]struct{}
}

func NewRegistry(maxRooms int) *Registry {
	return &Registry{
		maxRooms: maxRooms,
		rooms:    make(map[string]*Room),
		issued:   make(map[int32]struct{}),
	}
}

// CreateRoom inserts a new room with the sender as host and no users.
//
// The code should come from UniqueRoomCode; a duplicate is still rejected
// rather than overwriting an existing room.
func (r *Registry) CreateRoom(code string, host Conn) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[code]; ok {
		return nil, ErrDuplicateRoomCode
	}
	if r.maxRooms > 0 && len(r.rooms) >= r.maxRooms {
		return nil, ErrTooManyRooms
	}

	room := &Room{
		code:  code,
		host:  host,
		users: make(map[int32]Conn),
	}
	r.rooms[code] = room
	return room, nil
}

func (r *Registry) Room(code string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *Registry) HasRoom(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[code]
	return ok
}

func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// AddUser joins a connection to a room under the given peer ID. Re-joining
// with an already-present ID silently replaces the stored connection; the
// router relies on this to recover controllers that reconnect.
func (r *Registry) AddUser(code string, id int32, conn Conn) error {
	room, ok := r.Room(code)
	if !ok {
		return ErrRoomNotFound
	}
	room.addUser(id, conn)
	return nil
}

// User looks up the connection joined to the given room under id.
func (r *Registry) User(code string, id int32) (Conn, error) {
	room, ok := r.Room(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	conn, ok := room.User(id)
	if !ok {
		return nil, ErrUserNotFound
	}
	return conn, nil
}

// IssuePeerID records an ID as issued for the remainder of the process
// lifetime. The issued set is never pruned, so IDs are not reused even after
// the peer disconnects.
func (r *Registry) IssuePeerID(id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.issued[id]; ok {
		return ErrDuplicatePeerID
	}
	r.issued[id] = struct{}{}
	return nil
}

func (r *Registry) PeerIDIssued(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.issued[id]
	return ok
}

// DropConn removes every membership entry holding the given connection: user
// entries are deleted from their rooms, and a room whose host connection
// dropped is deleted outright. Issued peer IDs are never pruned.
//
// It returns the number of user entries and rooms removed.
func (r *Registry) DropConn(conn Conn) (users, rooms int) {
	r.mu.Lock()
	hosted := make([]string, 0, 1)
	live := make([]*Room, 0, len(r.rooms))
	for code, room := range r.rooms {
		if room.host == conn {
			hosted = append(hosted, code)
			continue
		}
		live = append(live, room)
	}
	for _, code := range hosted {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	for _, room := range live {
		users += room.dropConn(conn)
	}
	return users, len(hosted)
}
