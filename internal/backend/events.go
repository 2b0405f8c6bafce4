package backend

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/mvickers/papercut/internal/models"
)

// Event is one server→client message on the backend event stream, tagged by
// Type; fields beyond the tag are populated per message kind.
type Event struct {
	Type      string               `json:"type"`
	Phase     models.PipelinePhase `json:"phase,omitempty"`
	Version   string               `json:"version,omitempty"`
	ThreadID  string               `json:"thread_id,omitempty"`
	Node      string               `json:"node,omitempty"`
	Timestamp time.Time            `json:"timestamp,omitempty"`

	Errors    []models.PipelineError `json:"errors,omitempty"`
	PaperEdit *models.Sequence       `json:"paper_edit,omitempty"`

	RenderPath   string          `json:"render_path,omitempty"`
	TimelinePath string          `json:"timeline_path,omitempty"`
	MusicPath    string          `json:"music_path,omitempty"`
	OverlayClips json.RawMessage `json:"overlay_clips,omitempty"`
}

const (
	EventConnected        = "connected"
	EventPipelineStarted  = "pipeline_started"
	EventPhaseUpdate      = "phase_update"
	EventAwaitingApproval = "awaiting_approval"
	EventPipelineComplete = "pipeline_complete"
	EventPong             = "pong"
)

// Handler receives decoded events in arrival order.
type Handler interface {
	HandleEvent(Event)
}

// Listener maintains the WebSocket subscription to the backend event stream:
// keepalive pings on a fixed interval, reconnect after a fixed backoff, and
// connection de-duplication (an existing connection is closed before a new
// one is dialed, so events are never delivered twice).
type Listener struct {
	url          string
	handler      Handler
	pingInterval time.Duration
	backoff      time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(url string, handler Handler, pingInterval, backoff time.Duration) *Listener {
	return &Listener{
		url:          url,
		handler:      handler,
		pingInterval: pingInterval,
		backoff:      backoff,
	}
}

// Start launches the subscription loop. Calling Start on a running listener
// restarts it, closing the previous connection first.
func (l *Listener) Start(ctx context.Context) {
	l.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go l.run(ctx, done)
}

// Stop closes the current connection and waits for the loop to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[events] stream dropped: %v; reconnecting in %s", err, l.backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

// connect dials the stream and reads until it fails. Any previously tracked
// connection is closed first so there is never more than one live listener.
func (l *Listener) connect(ctx context.Context) error {
	l.closeConn()

	conn, _, err := websocket.Dial(ctx, l.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 22) // paper edits ride on awaiting_approval messages

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer l.closeConn()

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go l.pingLoop(pingCtx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		l.dispatch(data)
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				return
			}
		}
	}
}

// dispatch decodes and forwards one message. Unknown tags are a logged no-op;
// a malformed frame never kills the connection.
func (l *Listener) dispatch(data []byte) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("[events] malformed message: %v", err)
		return
	}
	switch ev.Type {
	case EventPong:
		return
	case EventConnected, EventPipelineStarted, EventPhaseUpdate,
		EventAwaitingApproval, EventPipelineComplete:
		l.handler.HandleEvent(ev)
	default:
		log.Printf("[events] unhandled message type %q", ev.Type)
	}
}

func (l *Listener) closeConn() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
}
