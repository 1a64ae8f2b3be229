// Package preview mirrors transmitted frames to websocket clients so a strip
// can be watched without the hardware.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/digitalled/internal/diagnostics"
	"github.com/coreman2200/digitalled/model"
)

const writeWait = 200 * time.Millisecond

// Frame is the message sent on /ws.
type Frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	Leds    int    `json:"leds"`
	// RGB holds 3 bytes per led, brightness applied. Encoded as base64 by
	// encoding/json.
	RGB []byte `json:"rgb"`
}

// Hub fans frames and diagnostics out to websocket clients.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool

	clock     clockwork.Clock
	throttle  time.Duration
	lastEmit  time.Time
	startTime time.Time

	frameID uint64
	errors  uint64
	last    []byte
	lastErr string
}

func NewHub(throttle time.Duration, clock clockwork.Clock) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Hub{
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		clock:       clock,
		throttle:    throttle,
		startTime:   clock.Now(),
	}
}

// Handler routes /ws, /diag and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return mux
}

// PublishFrame takes a wire frame as handed to the bus. It is meant to be
// plugged into spi.Hooks.Frame and copies what it keeps.
func (h *Hub) PublishFrame(frame []byte) {
	leds, err := model.DecodeFrame(frame)
	if err != nil {
		log.Debug().Err(err).Msg("preview: dropping frame")
		return
	}
	im := model.Image(leds)
	rgb := make([]byte, 0, len(leds)*3)
	for i := 0; i+3 < len(im.Pix); i += 4 {
		rgb = append(rgb, im.Pix[i:i+3]...)
	}

	now := h.clock.Now()
	h.mu.Lock()
	h.frameID++
	h.last = rgb
	id := h.frameID
	if h.throttle > 0 && h.lastEmit.Add(h.throttle).After(now) {
		h.mu.Unlock()
		return
	}
	h.lastEmit = now
	h.mu.Unlock()

	b, _ := json.Marshal(Frame{T: now.UnixNano(), FrameID: id, Leds: len(leds), RGB: rgb})
	h.broadcast(h.clients, b)
}

// PublishError is meant to be plugged into spi.Hooks.Error.
func (h *Hub) PublishError(err error) {
	h.mu.Lock()
	h.errors++
	h.lastErr = err.Error()
	h.mu.Unlock()
	h.PushDiag(diag.FromTxError(err))
}

func (h *Hub) PushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	h.broadcast(h.diagClients, b)
}

// broadcast holds the write lock: a websocket.Conn takes one writer at a time.
func (h *Hub) broadcast(set map[*websocket.Conn]bool, b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range set {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("preview: write")
		}
	}
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	h.serveWS(w, r, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	h.serveWS(w, r, h.diagClients)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	set[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(set, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	resp := map[string]any{
		"frame_id": h.frameID,
		"uptime_s": h.clock.Since(h.startTime).Seconds(),
		"leds":     len(h.last) / 3,
		"errors":   h.errors,
		"clients":  len(h.clients),
	}
	if h.lastErr != "" {
		resp["last_error"] = h.lastErr
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Clients is the number of connected frame clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
