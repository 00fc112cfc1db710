package signaling

import (
	"encoding/json"
	"fmt"
	"strings"
)

type messageType string

const (
	messageTypeID        messageType = "Id"
	messageTypeRoomCode  messageType = "RoomCode"
	messageTypeJoin      messageType = "Join"
	messageTypeOffer     messageType = "Offer"
	messageTypeAnswer    messageType = "Answer"
	messageTypeCandidate messageType = "Candidate"

	// Protocol names these, but the relay has no route for them. They are
	// accepted and dropped without closing the connection.
	messageTypeUserConnected    messageType = "UserConnected"
	messageTypeUserDisconnected messageType = "UserDisconnected"
	messageTypeCheckIn          messageType = "CheckIn"
)

// envelope is the one-object-per-frame wire format. Fields are present only
// when meaningful; pointer types distinguish absent from zero where zero is a
// valid value.
type envelope struct {
	Type       messageType `json:"type"`
	From       *int32      `json:"from,omitempty"`
	To         *int32      `json:"to,omitempty"`
	RoomCode   string      `json:"room_code,omitempty"`
	ID         *int32      `json:"id,omitempty"`
	SDP        string      `json:"sdp,omitempty"`
	Name       string      `json:"name,omitempty"`
	Successful *bool       `json:"successful,omitempty"`
}

// parseMessage decodes a frame into the envelope the router inspects.
//
// Unknown fields are deliberately tolerated: relay types are forwarded as the
// original bytes, so fields the relay does not model must not make a frame
// unroutable.
func parseMessage(data []byte) (envelope, error) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return envelope{}, err
	}
	if err := msg.validate(); err != nil {
		return envelope{}, err
	}
	return msg, nil
}

func (m envelope) validate() error {
	switch m.Type {
	case messageTypeID, messageTypeRoomCode:
		// Pure requests; the sender's connection is all the context needed.
		return nil
	case messageTypeJoin:
		return m.require(needRoomCode | needFrom)
	case messageTypeOffer:
		return m.require(needRoomCode | needFrom | needSDP)
	case messageTypeAnswer:
		return m.require(needRoomCode | needTo | needSDP)
	case messageTypeCandidate:
		return m.require(needRoomCode | needFrom | needTo | needName)
	case messageTypeUserConnected, messageTypeUserDisconnected, messageTypeCheckIn:
		return nil
	default:
		return fmt.Errorf("unsupported message type %q", m.Type)
	}
}

type fieldSet uint8

const (
	needRoomCode fieldSet = 1 << iota
	needFrom
	needTo
	needSDP
	needName
)

func (m envelope) require(fields fieldSet) error {
	var missing []string
	if fields&needRoomCode != 0 && m.RoomCode == "" {
		missing = append(missing, "room_code")
	}
	if fields&needFrom != 0 && m.From == nil {
		missing = append(missing, "from")
	}
	if fields&needTo != 0 && m.To == nil {
		missing = append(missing, "to")
	}
	if fields&needSDP != 0 && m.SDP == "" {
		missing = append(missing, "sdp")
	}
	if fields&needName != 0 && m.Name == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s message missing %s", m.Type, strings.Join(missing, ", "))
	}
	return nil
}

// sdpPreview collapses CRLF line terminators to spaces so multi-line SDP fits
// a single log line. Display only; forwarded bytes are never touched.
func sdpPreview(sdp string) string {
	return strings.ReplaceAll(sdp, "\r\n", " ")
}

func ptr[T any](v T) *T { return &v }
