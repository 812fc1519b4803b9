package handlers_test

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	"invtrack/internal/http/handlers"
)

func TestLiveStreamGuards(t *testing.T) {
	a := newTestApp(t, handlers.Options{})

	if resp, _ := a.api(t, "GET", "/ws/equipment", "", nil); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("anonymous: want 401, got %d", resp.StatusCode)
	}
	tok := a.token(t, "oper", "secret1")
	if resp, _ := a.api(t, "GET", "/ws/equipment", tok, nil); resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("plain http: want 426, got %d", resp.StatusCode)
	}

	_, body := a.api(t, "GET", "/healthz", "", nil)
	if h := decode[struct {
		OK          bool `json:"ok"`
		Subscribers int  `json:"subscribers"`
	}](t, body); !h.OK || h.Subscribers != 0 {
		t.Fatalf("healthz = %+v", h)
	}
}

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLiveStreamRelaysEvents(t *testing.T) {
	a := newTestApp(t, handlers.Options{})
	tok := a.token(t, "oper", "secret1")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = a.app.Listener(ln) }()
	t.Cleanup(func() { _ = a.app.Shutdown() })

	const held = 50 * time.Millisecond
	entries := captureLogs(t, func() {
		conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/equipment",
			http.Header{"Authorization": {"Bearer " + tok}})
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		waitFor(t, "subscriber", func() bool { return a.deps.Hub.Subscribers() == 1 })

		u := createUnit(t, a, tok, "AABBCC000090")
		var ev struct {
			Type        string `json:"type"`
			EquipmentID string `json:"equipmentId"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if ev.Type != "equipment.created" || ev.EquipmentID != u.ID {
			t.Fatalf("event = %+v", ev)
		}

		time.Sleep(held)
		_ = conn.Close()
		waitFor(t, "unsubscribe", func() bool { return a.deps.Hub.Subscribers() == 0 })
	})

	if _, ok := findLog(entries, "ws.connect"); !ok {
		t.Fatal("ws.connect not logged")
	}
	bye, ok := findLog(entries, "ws.disconnect")
	if !ok {
		t.Fatal("ws.disconnect not logged")
	}
	// the entry is built when the connection ends, so it covers the whole session
	if bye.Took < float64(held/time.Millisecond) {
		t.Fatalf("disconnect took = %vms, want >= %v", bye.Took, held)
	}
}
