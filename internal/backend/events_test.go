package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/mvickers/papercut/internal/models"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []Event
}

func (h *recordingHandler) HandleEvent(ev Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *recordingHandler) snapshot() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *recordingHandler) waitFor(t *testing.T, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if evs := h.snapshot(); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %d", n, len(h.snapshot()))
	return nil
}

// fakeStream accepts one WebSocket client at a time and pushes the scripted
// messages, then holds the connection open until the server shuts down.
func fakeStream(t *testing.T, messages ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		for _, msg := range messages {
			if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
				return
			}
		}
		<-ctx.Done()
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestListenerDispatch(t *testing.T) {
	srv := fakeStream(t,
		`{"type":"connected","phase":"idle","version":"1.4.0"}`,
		`{"type":"pong"}`,
		`{"type":"phase_update","phase":"rendering"}`,
		`{"type":"telemetry","fps":24}`,
		`{"type":"pipeline_complete","phase":"complete","render_path":"renders/final.mp4"}`,
	)
	defer srv.Close()

	h := &recordingHandler{}
	l := NewListener(wsURL(srv), h, time.Minute, 50*time.Millisecond)
	l.Start(context.Background())
	defer l.Stop()

	evs := h.waitFor(t, 3)
	if evs[0].Type != EventConnected || evs[0].Phase != models.PhaseIdle {
		t.Errorf("event 0 = %+v", evs[0])
	}
	if evs[1].Type != EventPhaseUpdate || evs[1].Phase != models.PhaseRendering {
		t.Errorf("event 1 = %+v", evs[1])
	}
	if evs[2].Type != EventPipelineComplete || evs[2].RenderPath != "renders/final.mp4" {
		t.Errorf("event 2 = %+v", evs[2])
	}
}

func TestListenerSkipsMalformedFrames(t *testing.T) {
	srv := fakeStream(t,
		`{not json`,
		`{"type":"phase_update","phase":"scripting"}`,
	)
	defer srv.Close()

	h := &recordingHandler{}
	l := NewListener(wsURL(srv), h, time.Minute, 50*time.Millisecond)
	l.Start(context.Background())
	defer l.Stop()

	evs := h.waitFor(t, 1)
	if evs[0].Phase != models.PhaseScripting {
		t.Errorf("got %+v", evs[0])
	}
}

func TestListenerReconnects(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		msg, _ := json.Marshal(Event{Type: EventPhaseUpdate, Phase: models.PhaseIngesting})
		conn.Write(r.Context(), websocket.MessageText, msg)
		if n == 1 {
			// Drop the first connection immediately to force a reconnect.
			conn.Close(websocket.StatusInternalError, "going away")
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		<-r.Context().Done()
	}))
	defer srv.Close()

	h := &recordingHandler{}
	l := NewListener(wsURL(srv), h, time.Minute, 20*time.Millisecond)
	l.Start(context.Background())
	defer l.Stop()

	h.waitFor(t, 2)
	mu.Lock()
	defer mu.Unlock()
	if dials < 2 {
		t.Errorf("dials = %d, want at least 2", dials)
	}
}

func TestListenerStopIsIdempotent(t *testing.T) {
	srv := fakeStream(t, `{"type":"connected","phase":"idle"}`)
	defer srv.Close()

	l := NewListener(wsURL(srv), &recordingHandler{}, time.Minute, 50*time.Millisecond)
	l.Start(context.Background())
	l.Stop()
	l.Stop() // second stop must not block or panic
}
