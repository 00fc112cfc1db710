package signaling

import (
	"strings"
	"testing"
)

func TestParseMessage_ValidTypes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want messageType
	}{
		{"id request", `{"type":"Id"}`, messageTypeID},
		{"room code request", `{"type":"RoomCode"}`, messageTypeRoomCode},
		{"join", `{"type":"Join","room_code":"ABCD","from":42}`, messageTypeJoin},
		{"offer", `{"type":"Offer","room_code":"ABCD","from":42,"sdp":"v=0\r\no=- 0 0"}`, messageTypeOffer},
		{"answer", `{"type":"Answer","room_code":"ABCD","to":42,"sdp":"v=0"}`, messageTypeAnswer},
		{"candidate", `{"type":"Candidate","room_code":"ABCD","from":1,"to":42,"name":"candidate:1 1 udp"}`, messageTypeCandidate},
		{"user connected", `{"type":"UserConnected"}`, messageTypeUserConnected},
		{"check in", `{"type":"CheckIn"}`, messageTypeCheckIn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := parseMessage([]byte(tc.raw))
			if err != nil {
				t.Fatalf("parseMessage: %v", err)
			}
			if msg.Type != tc.want {
				t.Fatalf("type=%q, want %q", msg.Type, tc.want)
			}
		})
	}
}

func TestParseMessage_Rejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `not json`},
		{"no type", `{}`},
		{"unknown type", `{"type":"Teleport"}`},
		{"join without room", `{"type":"Join","from":42}`},
		{"join without from", `{"type":"Join","room_code":"ABCD"}`},
		{"offer without sdp", `{"type":"Offer","room_code":"ABCD","from":42}`},
		{"answer without to", `{"type":"Answer","room_code":"ABCD","sdp":"v=0"}`},
		{"candidate without name", `{"type":"Candidate","room_code":"ABCD","from":1,"to":42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseMessage([]byte(tc.raw)); err == nil {
				t.Fatalf("parseMessage accepted %s", tc.raw)
			}
		})
	}
}

func TestParseMessage_ZeroValuedIDsAreValid(t *testing.T) {
	msg, err := parseMessage([]byte(`{"type":"Candidate","room_code":"ABCD","from":0,"to":0,"name":"c"}`))
	if err != nil {
		t.Fatalf("parseMessage: %v", err)
	}
	if msg.From == nil || *msg.From != 0 {
		t.Fatalf("from=%v, want present 0", msg.From)
	}
	if msg.To == nil || *msg.To != 0 {
		t.Fatalf("to=%v, want present 0", msg.To)
	}
}

func TestParseMessage_ToleratesUnknownFields(t *testing.T) {
	msg, err := parseMessage([]byte(`{"type":"Offer","room_code":"ABCD","from":42,"sdp":"v=0","sdpMLineIndex":3,"future":"field"}`))
	if err != nil {
		t.Fatalf("parseMessage rejected extra fields: %v", err)
	}
	if msg.Type != messageTypeOffer {
		t.Fatalf("type=%q, want %q", msg.Type, messageTypeOffer)
	}
}

func TestValidate_ErrorNamesMissingFields(t *testing.T) {
	_, err := parseMessage([]byte(`{"type":"Candidate"}`))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"room_code", "from", "to", "name"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not name %q", err, field)
		}
	}
}

func TestSDPPreview(t *testing.T) {
	got := sdpPreview("v=0\r\no=- 0 0 IN IP4 0.0.0.0\r\ns=-")
	want := "v=0 o=- 0 0 IN IP4 0.0.0.0 s=-"
	if got != want {
		t.Fatalf("sdpPreview=%q, want %q", got, want)
	}
}
