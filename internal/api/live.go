package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"tourguide/pkg/controller"
	"tourguide/pkg/session"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
)

// LiveHandler streams snapshots over a websocket and accepts location frames.
type LiveHandler struct {
	mgr      *session.Manager
	upgrader websocket.Upgrader
}

// locationFrame is what clients send; x and y are both required.
type locationFrame struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// NewLiveHandler creates a LiveHandler. Origins beyond the request host must
// be listed in allowedOrigins; "*" allows any.
func NewLiveHandler(mgr *session.Manager, allowedOrigins []string) *LiveHandler {
	h := &LiveHandler{mgr: mgr}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}
			return slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// ServeHTTP upgrades the connection and runs the feed until either side closes.
// GET /api/live
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Live feed upgrade failed", "error", err)
		return
	}
	logger := slog.With("component", "live", "remote", r.RemoteAddr)
	logger.Debug("Live feed connected")

	updates, unsubscribe := h.mgr.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(conn, logger)
	}()

	h.writeLoop(conn, updates, done, logger)
	unsubscribe()
	conn.Close()
	<-done
	logger.Debug("Live feed closed")
}

func (h *LiveHandler) readLoop(conn *websocket.Conn, logger *slog.Logger) {
	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		var frame locationFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Live feed read failed", "error", err)
			}
			return
		}
		if frame.X == nil || frame.Y == nil {
			logger.Debug("Ignoring live frame without x/y")
			continue
		}
		x, y := *frame.X, *frame.Y
		_, _ = h.mgr.Apply(session.OpSetLocation, func(c *controller.Controller) error {
			return c.SetLocation(x, y)
		})
	}
}

func (h *LiveHandler) writeLoop(conn *websocket.Conn, updates <-chan session.Snapshot, done <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	write := func(snap session.Snapshot) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := conn.WriteJSON(snap); err != nil {
			logger.Debug("Live feed write failed", "error", err)
			return false
		}
		return true
	}

	current := h.mgr.Snapshot()
	if !write(current) {
		return
	}
	last := current.Revision

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			// Subscribed before the first snapshot was taken, so skip stale ones.
			if snap.Revision <= last {
				continue
			}
			if !write(snap) {
				return
			}
			last = snap.Revision
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
