package lobby

import (
	"fmt"
	"math"

	"github.com/pion/randutil"
)

const (
	// CodeLength is the fixed length of a room code.
	CodeLength = 4

	// codeAlphabet deliberately omits '0': codes are read aloud and typed on
	// controllers, and '0' is too easy to confuse with 'O'.
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ123456789"
)

const (
	// HostPeerID is reserved: it designates the host/server side in routing
	// decisions and is never issued to a controller.
	HostPeerID int32 = 1

	MinPeerID int32 = 2
	MaxPeerID int32 = math.MaxInt32
)

// UniqueRoomCode draws random codes until one is absent from the live room
// map. It only reads the registry; the caller reserves the code by creating
// the room.
//
// The loop is unbounded: with 35^4 combinations and rooms freed on cleanup it
// terminates in one or two draws in practice, but it degrades (never fails) as
// the active-code space fills.
func (r *Registry) UniqueRoomCode() (string, error) {
	for {
		code, err := randutil.GenerateCryptoRandomString(CodeLength, codeAlphabet)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if !r.HasRoom(code) {
			return code, nil
		}
	}
}

// UniquePeerID draws random IDs in [MinPeerID, MaxPeerID] until one has never
// been issued by this process. It never returns HostPeerID. Like
// UniqueRoomCode it only reads the registry; the caller records the ID with
// IssuePeerID.
func (r *Registry) UniquePeerID() (int32, error) {
	span := uint64(MaxPeerID) - uint64(MinPeerID) + 1
	for {
		n, err := randutil.CryptoUint64()
		if err != nil {
			return 0, fmt.Errorf("generate peer id: %w", err)
		}
		id := MinPeerID + int32(n%span)
		if !r.PeerIDIssued(id) {
			return id, nil
		}
	}
}
