package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	"MarketOverlay/internal/usecase"
	xhttp "MarketOverlay/pkg/http"
	xlogger "MarketOverlay/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// ChartWSHandler mounts one chart instance per WebSocket connection and
// disposes it when the connection closes.
type ChartWSHandler struct {
	hub      *usecase.ChartHub
	logger   *xlogger.Logger
	upgrader websocket.Upgrader
}

func NewChartWSHandler(logger *xlogger.Logger, hub *usecase.ChartHub) *ChartWSHandler {
	return &ChartWSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   8192,
			EnableCompression: true,
			// origin policy is enforced by the CORS middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *ChartWSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chart", h.Serve)
}

func (h *ChartWSHandler) Serve(c echo.Context) error {
	req := &models.MountRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := string(drepo.NormalizeTimeframe(req.TF))

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade error", xlogger.Error(err))
		return nil
	}

	surf := newSurface(req.Symbol, tf)
	inst, err := h.hub.Mount(c.Request().Context(), req.Symbol, tf, req.Width, surf)
	if err != nil {
		h.logger.Warn("chart mount failed", xlogger.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), time.Now().Add(writeWait))
		_ = conn.Close()
		return nil
	}
	surf.bind(inst.ID(), inst.Symbol)

	log := h.logger.With(xlogger.String("instance", inst.ID()))
	log.Info("ws chart connected", xlogger.String("symbol", req.Symbol), xlogger.String("tf", tf))

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, surf)
	}()

	readPump(conn, inst)

	h.hub.Unmount(inst.ID())
	<-done
	log.Info("ws chart disconnected")
	return nil
}

// writePump is the connection's only writer. It returns after the surface
// is released or a write fails, and closes the connection.
func writePump(conn *websocket.Conn, surf *Surface) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-surf.notify:
			frames, released := surf.drain()
			for _, f := range frames {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(f); err != nil {
					return
				}
			}
			if released {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "chart released"))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump applies client messages until the connection fails or closes.
func readPump(conn *websocket.Conn, inst *usecase.ChartInstance) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var m models.ResizeMessage
		if json.Unmarshal(msg, &m) != nil {
			continue
		}
		switch m.Type {
		case "resize":
			if m.Width > 0 {
				inst.Resize(m.Width)
			}
		}
	}
}

var _ drepo.Surface = (*Surface)(nil)
