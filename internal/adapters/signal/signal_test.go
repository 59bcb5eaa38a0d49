package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/meetowl/signaling/internal/app"
	"github.com/meetowl/signaling/internal/config"
	"github.com/meetowl/signaling/internal/core"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:         "test",
		ReadLimit:    65536,
		PingPeriod:   50 * time.Second,
		PongWait:     60 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Relay) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	relay := app.NewRelay(core.NewRegistry())
	ctl := NewController(relay, testConfig())

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(context.Background(), c)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, relay
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readMsg(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return m
}

func sendMsg(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	if err := ws.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSignal_JoinAndOfferRoundTrip(t *testing.T) {
	srv, relay := newTestServer(t)

	a := dial(t, srv)
	sendMsg(t, a, map[string]any{"type": "join-room", "roomId": "r1", "userId": "user-a", "userName": "Alice"})
	welcome := readMsg(t, a)
	if welcome["type"] != "room-participants" {
		t.Fatalf("A welcome type = %v, want room-participants", welcome["type"])
	}
	if got := welcome["participants"].([]any); len(got) != 0 {
		t.Fatalf("A welcome list = %v, want empty", got)
	}

	b := dial(t, srv)
	sendMsg(t, b, map[string]any{"type": "join-room", "roomId": "r1", "userId": "user-b", "userName": "Bob"})
	bWelcome := readMsg(t, b)
	list := bWelcome["participants"].([]any)
	if len(list) != 1 {
		t.Fatalf("B welcome list = %v, want one entry", list)
	}
	aInfo := list[0].(map[string]any)
	if aInfo["userName"] != "Alice" {
		t.Errorf("B's welcome entry = %v, want Alice", aInfo)
	}

	joined := readMsg(t, a)
	if joined["type"] != "user-joined" || joined["userName"] != "Bob" {
		t.Fatalf("A's user-joined = %v, want Bob", joined)
	}
	bSocket := joined["socketId"].(string)

	sendMsg(t, a, map[string]any{
		"type":  "offer",
		"offer": map[string]any{"type": "offer", "sdp": "v=0 e2e"},
		"to":    bSocket,
	})
	offer := readMsg(t, b)
	if offer["type"] != "offer" || offer["userName"] != "Alice" {
		t.Fatalf("B's offer = %v, want tagged with Alice", offer)
	}
	if sdp := offer["offer"].(map[string]any); sdp["sdp"] != "v=0 e2e" {
		t.Errorf("offer sdp = %v, want forwarded verbatim", sdp["sdp"])
	}

	sendMsg(t, b, map[string]any{"type": "leave-room"})
	left := readMsg(t, a)
	if left["type"] != "user-left" || left["socketId"] != bSocket {
		t.Fatalf("A's user-left = %v, want Bob's", left)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rooms := relay.Rooms()
		if len(rooms) == 1 && rooms[0].MemberCount == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("registry did not settle after leave: %v", rooms)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSignal_DisconnectNotifiesRoom(t *testing.T) {
	srv, relay := newTestServer(t)

	a := dial(t, srv)
	sendMsg(t, a, map[string]any{"type": "join-room", "roomId": "r1", "userId": "user-a", "userName": "Alice"})
	readMsg(t, a) // welcome

	b := dial(t, srv)
	sendMsg(t, b, map[string]any{"type": "join-room", "roomId": "r1", "userId": "user-b", "userName": "Bob"})
	readMsg(t, b) // welcome
	readMsg(t, a) // user-joined

	_ = b.Close()

	left := readMsg(t, a)
	if left["type"] != "user-left" || left["userId"] != "user-b" {
		t.Fatalf("A's message after B dropped = %v, want Bob's user-left", left)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if rooms := relay.Rooms(); len(rooms) == 1 && rooms[0].MemberCount == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("registry still holds dropped connection: %v", relay.Rooms())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSignal_MalformedMessagesKeepConnectionOpen(t *testing.T) {
	srv, _ := newTestServer(t)

	ws := dial(t, srv)

	// None of these may kill the connection.
	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	sendMsg(t, ws, map[string]any{"type": "no-such-kind"})
	sendMsg(t, ws, map[string]any{"type": "join-room"})                                  // missing room and identity
	sendMsg(t, ws, map[string]any{"type": "join-room", "roomId": "r1", "userId": ""})    // empty user id
	sendMsg(t, ws, map[string]any{"type": "offer", "offer": map[string]any{}, "to": ""}) // missing target

	sendMsg(t, ws, map[string]any{"type": "join-room", "roomId": "r1", "userId": "user-a", "userName": "Alice"})
	welcome := readMsg(t, ws)
	if welcome["type"] != "room-participants" {
		t.Fatalf("connection unusable after malformed input, got %v", welcome)
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no allowlist admits anything", nil, "https://evil.example", true},
		{"listed origin admitted", []string{"https://app.example"}, "https://app.example", true},
		{"unlisted origin rejected", []string{"https://app.example"}, "https://evil.example", false},
		{"empty origin header admitted", []string{"https://app.example"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := originChecker(tt.allowed)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := check(req); got != tt.want {
				t.Errorf("originChecker(%v) with origin %q = %v, want %v", tt.allowed, tt.origin, got, tt.want)
			}
		})
	}
}
