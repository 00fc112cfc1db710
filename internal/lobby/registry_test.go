package lobby

import (
	"errors"
	"testing"
)

type stubConn struct{ name string }

func (*stubConn) WriteText([]byte) error { return nil }

func TestCreateRoomAndLookup(t *testing.T) {
	reg := NewRegistry(0)
	host := &stubConn{name: "host"}

	room, err := reg.CreateRoom("AB12", host)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	got, ok := reg.Room("AB12")
	if !ok {
		t.Fatalf("room not found after create")
	}
	if got != room {
		t.Fatalf("lookup returned a different room")
	}
	if got.Host() != Conn(host) {
		t.Fatalf("host mismatch")
	}
	if got.UserCount() != 0 {
		t.Fatalf("new room has %d users, want 0", got.UserCount())
	}
	if got.Sealed() {
		t.Fatalf("new room is sealed")
	}
	if got.Code() != "AB12" {
		t.Fatalf("code = %q, want AB12", got.Code())
	}
}

func TestCreateRoomDuplicateCode(t *testing.T) {
	reg := NewRegistry(0)
	if _, err := reg.CreateRoom("AB12", &stubConn{}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := reg.CreateRoom("AB12", &stubConn{}); !errors.Is(err, ErrDuplicateRoomCode) {
		t.Fatalf("err = %v, want ErrDuplicateRoomCode", err)
	}

	// The first room must be untouched by the rejected insert.
	room, ok := reg.Room("AB12")
	if !ok || room.UserCount() != 0 {
		t.Fatalf("original room mutated by duplicate create")
	}
}

func TestCreateRoomQuota(t *testing.T) {
	reg := NewRegistry(1)
	if _, err := reg.CreateRoom("AAAA", &stubConn{}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := reg.CreateRoom("BBBB", &stubConn{}); !errors.Is(err, ErrTooManyRooms) {
		t.Fatalf("err = %v, want ErrTooManyRooms", err)
	}
}

func TestAddUserAndRejoin(t *testing.T) {
	reg := NewRegistry(0)
	if _, err := reg.CreateRoom("AB12", &stubConn{name: "host"}); err != nil {
		t.Fatalf("create room: %v", err)
	}

	first := &stubConn{name: "pad-1"}
	if err := reg.AddUser("AB12", 42, first); err != nil {
		t.Fatalf("add user: %v", err)
	}
	conn, err := reg.User("AB12", 42)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if conn != Conn(first) {
		t.Fatalf("user 42 resolves to the wrong connection")
	}

	// Re-joining under the same ID replaces the stale connection.
	second := &stubConn{name: "pad-1-reconnected"}
	if err := reg.AddUser("AB12", 42, second); err != nil {
		t.Fatalf("re-join: %v", err)
	}
	conn, err = reg.User("AB12", 42)
	if err != nil {
		t.Fatalf("lookup user after re-join: %v", err)
	}
	if conn != Conn(second) {
		t.Fatalf("re-join did not replace the stored connection")
	}
}

func TestAddUserRoomNotFound(t *testing.T) {
	reg := NewRegistry(0)
	if err := reg.AddUser("ZZZZ", 42, &stubConn{}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
	if reg.RoomCount() != 0 {
		t.Fatalf("failed join mutated the registry")
	}
}

func TestUserNotFound(t *testing.T) {
	reg := NewRegistry(0)
	if _, err := reg.CreateRoom("AB12", &stubConn{}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := reg.User("AB12", 7); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	if _, err := reg.User("ZZZZ", 7); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestIssuePeerID(t *testing.T) {
	reg := NewRegistry(0)
	if err := reg.IssuePeerID(42); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !reg.PeerIDIssued(42) {
		t.Fatalf("42 not recorded as issued")
	}
	if err := reg.IssuePeerID(42); !errors.Is(err, ErrDuplicatePeerID) {
		t.Fatalf("err = %v, want ErrDuplicatePeerID", err)
	}
}

func TestDropConnRemovesUserEntries(t *testing.T) {
	reg := NewRegistry(0)
	host := &stubConn{name: "host"}
	if _, err := reg.CreateRoom("AB12", host); err != nil {
		t.Fatalf("create room: %v", err)
	}

	pad := &stubConn{name: "pad"}
	if err := reg.AddUser("AB12", 42, pad); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if err := reg.AddUser("AB12", 43, &stubConn{name: "other"}); err != nil {
		t.Fatalf("add user: %v", err)
	}

	users, rooms := reg.DropConn(pad)
	if users != 1 || rooms != 0 {
		t.Fatalf("DropConn = (%d users, %d rooms), want (1, 0)", users, rooms)
	}
	if _, err := reg.User("AB12", 42); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("user 42 still present after drop")
	}
	if _, err := reg.User("AB12", 43); err != nil {
		t.Fatalf("unrelated user removed: %v", err)
	}
}

func TestDropConnDeletesHostedRoom(t *testing.T) {
	reg := NewRegistry(0)
	host := &stubConn{name: "host"}
	if _, err := reg.CreateRoom("AB12", host); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := reg.CreateRoom("CD34", &stubConn{name: "other-host"}); err != nil {
		t.Fatalf("create room: %v", err)
	}

	users, rooms := reg.DropConn(host)
	if users != 0 || rooms != 1 {
		t.Fatalf("DropConn = (%d users, %d rooms), want (0, 1)", users, rooms)
	}
	if reg.HasRoom("AB12") {
		t.Fatalf("hosted room survived host disconnect")
	}
	if !reg.HasRoom("CD34") {
		t.Fatalf("unrelated room removed")
	}
}

func TestDropConnFreesCodeForReuse(t *testing.T) {
	reg := NewRegistry(0)
	host := &stubConn{}
	if _, err := reg.CreateRoom("AB12", host); err != nil {
		t.Fatalf("create room: %v", err)
	}
	reg.DropConn(host)

	// Uniqueness is checked against active rooms only; a freed code may be
	// reissued.
	if _, err := reg.CreateRoom("AB12", &stubConn{}); err != nil {
		t.Fatalf("freed code not reusable: %v", err)
	}
}
