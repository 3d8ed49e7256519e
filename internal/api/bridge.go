package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"comicvox/pkg/events"
	"comicvox/pkg/model"
	"comicvox/pkg/viewport"
)

// imageFetchTimeout bounds how long the engine waits for the client to
// deliver encoded image bytes.
const imageFetchTimeout = 10 * time.Second

// frame is the websocket envelope in both directions. ID correlates a
// request frame with its response; push frames leave it empty.
type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// layoutFrame is the client's periodic snapshot of what the document
// looks like right now. It fully replaces the previous snapshot.
type layoutFrame struct {
	Bounds         model.Rect                          `json:"bounds"`
	ScrollPosition float64                             `json:"scroll_position"`
	Images         []model.PageImage                   `json:"images"`
	Elements       map[string]viewport.ElementGeometry `json:"elements"`
}

type speechEventFrame struct {
	UtteranceID string `json:"utterance_id"`
	Event       string `json:"event"` // started, ended, error
	Error       string `json:"error,omitempty"`
}

type imageDataFrame struct {
	Data  string `json:"data"` // base64
	Error string `json:"error,omitempty"`
}

type scrollCommand struct {
	Offset float64 `json:"offset"`
	Smooth bool    `json:"smooth"`
}

type classCommand struct {
	ElementID string `json:"element_id"`
	Class     string `json:"class"`
}

type speakCommand struct {
	UtteranceID string  `json:"utterance_id"`
	Text        string  `json:"text"`
	Voice       string  `json:"voice,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
}

type imageRequest struct {
	ImageID string `json:"image_id"`
}

// Bridge is the websocket endpoint the reader page connects to. It keeps
// the last layout snapshot the client pushed and answers Viewport and
// ImageCatalog queries from it, so the narration core never blocks on
// the network for geometry. One client at a time; a new connection
// replaces the old one.
type Bridge struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	layout  *layoutFrame
	pending map[string]chan frame

	// OnUserScroll and OnResize are invoked when the client reports
	// reader-initiated viewport changes. Set once at wiring time.
	OnUserScroll func()
	OnResize     func()
	// OnSpeechEvent routes utterance lifecycle frames to the remote
	// speech engine. Set by NewRemoteEngine.
	OnSpeechEvent func(utteranceID, event, errText string)
}

// NewBridge creates a bridge and relays core events to the client.
func NewBridge(bus *events.Bus) *Bridge {
	b := &Bridge{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The engine binds to loopback; the reader page is served
			// from a local origin the OS webview controls.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pending: make(map[string]chan frame),
	}
	if bus != nil {
		bus.Subscribe(b.relayEvent)
	}
	return b
}

// HandleWS upgrades the connection and runs the read loop until the
// client disconnects.
func (b *Bridge) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Bridge: upgrade failed", "error", err)
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		slog.Info("Bridge: replacing existing client connection")
		_ = b.conn.Close()
	}
	b.conn = conn
	b.layout = nil
	b.mu.Unlock()

	slog.Info("Bridge: client connected", "remote", conn.RemoteAddr())
	b.readLoop(conn)

	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
		b.layout = nil
	}
	b.mu.Unlock()
	_ = conn.Close()
	slog.Info("Bridge: client disconnected")
}

// Connected reports whether a client is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Bridge: read error", "error", err)
			}
			return
		}
		b.dispatch(conn, f)
	}
}

func (b *Bridge) dispatch(conn *websocket.Conn, f frame) {
	switch f.Type {
	case "layout":
		var l layoutFrame
		if err := json.Unmarshal(f.Payload, &l); err != nil {
			slog.Warn("Bridge: bad layout frame", "error", err)
			return
		}
		b.mu.Lock()
		if b.conn == conn {
			b.layout = &l
		}
		b.mu.Unlock()

	case "user_scroll":
		if b.OnUserScroll != nil {
			b.OnUserScroll()
		}

	case "resize":
		if b.OnResize != nil {
			b.OnResize()
		}

	case "speech_event":
		var ev speechEventFrame
		if err := json.Unmarshal(f.Payload, &ev); err != nil {
			slog.Warn("Bridge: bad speech event frame", "error", err)
			return
		}
		if b.OnSpeechEvent != nil {
			b.OnSpeechEvent(ev.UtteranceID, ev.Event, ev.Error)
		}

	case "image_data":
		b.resolvePending(f)

	default:
		slog.Debug("Bridge: ignoring unknown frame", "type", f.Type)
	}
}

func (b *Bridge) resolvePending(f frame) {
	b.mu.Lock()
	ch, ok := b.pending[f.ID]
	if ok {
		delete(b.pending, f.ID)
	}
	b.mu.Unlock()
	if ok {
		ch <- f
	}
}

// send marshals one frame to the active client.
func (b *Bridge) send(msgType, id string, payload any) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("api: no client connected")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("api: marshal %s frame: %w", msgType, err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := conn.WriteJSON(frame{Type: msgType, ID: id, Payload: raw}); err != nil {
		return fmt.Errorf("api: write %s frame: %w", msgType, err)
	}
	return nil
}

// request sends a frame and waits for the correlated response.
func (b *Bridge) request(ctx context.Context, msgType string, payload any) (frame, error) {
	id := uuid.NewString()
	ch := make(chan frame, 1)
	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()

	cleanup := func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}

	if err := b.send(msgType, id, payload); err != nil {
		cleanup()
		return frame{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		cleanup()
		return frame{}, ctx.Err()
	case <-time.After(imageFetchTimeout):
		cleanup()
		return frame{}, fmt.Errorf("api: %s request timed out", msgType)
	}
}

func (b *Bridge) snapshot() (*layoutFrame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.layout == nil {
		return nil, fmt.Errorf("api: no layout snapshot from client")
	}
	return b.layout, nil
}

func (b *Bridge) relayEvent(e events.Event) {
	var name string
	switch e.(type) {
	case events.NarrationStarted:
		name = "narration-started"
	case events.NarrationStopped:
		name = "narration-stopped"
	case events.NarrationSelectionChanged:
		name = "narration-selection-changed"
	case events.NarrationTextStarted:
		name = "narration-text-started"
	case events.NarrationTextFallback:
		name = "narration-text-fallback"
	case events.SelectionConfirmed:
		name = "selection-confirmed"
	case events.SelectionsCleared:
		name = "selections-cleared"
	case events.ExtractionProgress:
		name = "extraction-progress"
	case events.ExtractionItemFailed:
		name = "extraction-item-failed"
	case events.ExtractionCompleted:
		name = "extraction-completed"
	default:
		return
	}
	if err := b.send("event", "", map[string]any{"event": name, "data": e}); err != nil {
		slog.Debug("Bridge: event not delivered", "event", name, "error", err)
	}
}

// --- viewport.Viewport ---

func (b *Bridge) ElementGeometry(_ context.Context, elementID string) (viewport.ElementGeometry, error) {
	l, err := b.snapshot()
	if err != nil {
		return viewport.ElementGeometry{}, err
	}
	g, ok := l.Elements[elementID]
	if !ok {
		return viewport.ElementGeometry{Detached: true}, nil
	}
	return g, nil
}

func (b *Bridge) Bounds(context.Context) (model.Rect, error) {
	l, err := b.snapshot()
	if err != nil {
		return model.Rect{}, err
	}
	return l.Bounds, nil
}

func (b *Bridge) ScrollPosition(context.Context) (float64, error) {
	l, err := b.snapshot()
	if err != nil {
		return 0, err
	}
	return l.ScrollPosition, nil
}

func (b *Bridge) ScrollTo(_ context.Context, offset float64, smooth bool) error {
	return b.send("scroll_to", "", scrollCommand{Offset: offset, Smooth: smooth})
}

func (b *Bridge) AddClass(_ context.Context, elementID, class string) error {
	return b.send("add_class", "", classCommand{ElementID: elementID, Class: class})
}

func (b *Bridge) RemoveClass(_ context.Context, elementID, class string) error {
	return b.send("remove_class", "", classCommand{ElementID: elementID, Class: class})
}

// --- selection.ImageCatalog ---

func (b *Bridge) ImageByID(_ context.Context, id string) (*model.PageImage, error) {
	l, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range l.Images {
		if l.Images[i].ID == id {
			img := l.Images[i]
			return &img, nil
		}
	}
	return nil, nil
}

func (b *Bridge) ImageBySrc(_ context.Context, src string) (*model.PageImage, error) {
	l, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range l.Images {
		if l.Images[i].Src == src {
			img := l.Images[i]
			return &img, nil
		}
	}
	return nil, nil
}

func (b *Bridge) SelectableImages(_ context.Context) ([]model.PageImage, error) {
	l, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]model.PageImage, len(l.Images))
	copy(out, l.Images)
	return out, nil
}

func (b *Bridge) ActiveImage(_ context.Context) (*model.PageImage, error) {
	l, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range l.Images {
		if l.Images[i].Active {
			img := l.Images[i]
			return &img, nil
		}
	}
	return nil, nil
}

func (b *Bridge) ImageData(ctx context.Context, id string) ([]byte, error) {
	resp, err := b.request(ctx, "get_image", imageRequest{ImageID: id})
	if err != nil {
		return nil, err
	}
	var d imageDataFrame
	if err := json.Unmarshal(resp.Payload, &d); err != nil {
		return nil, fmt.Errorf("api: bad image data frame: %w", err)
	}
	if d.Error != "" {
		return nil, fmt.Errorf("api: client could not serve image %s: %s", id, d.Error)
	}
	data, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return nil, fmt.Errorf("api: decode image data: %w", err)
	}
	return data, nil
}
