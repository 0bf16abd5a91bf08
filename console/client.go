package console

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/max36895/umbot/bot"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected console session. Each connection gets its own
// synthetic user id, so two open consoles never share state.
type client struct {
	app    *bot.App
	conn   *websocket.Conn
	send   chan []byte
	userID string
	seq    int64
}

// Handler upgrades HTTP requests to console WebSocket sessions.
func Handler(app *bot.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("console upgrade failed", "err", err)
			return
		}
		c := &client{
			app:    app,
			conn:   conn,
			send:   make(chan []byte, 16),
			userID: "console-" + uuid.NewString(),
		}
		slog.Info("console connected", "user", c.userID)
		go c.writePump()
		// The request context dies when this handler returns; the
		// connection outlives it.
		go c.readPump(context.Background())
	}
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Info("console disconnected", "user", c.userID, "err", err)
			}
			return
		}
		c.handle(ctx, message)
	}
}

// handle runs one console turn through the dispatcher. Raw frames are JSON
// console frames; a bare text line is wrapped into one for convenience.
func (c *client) handle(ctx context.Context, message []byte) {
	c.seq++
	var f frame
	if err := json.Unmarshal(message, &f); err != nil || f.Text == "" {
		f = frame{Text: string(message)}
	}
	f.User = c.userID
	f.Seq = c.seq
	f.First = c.seq == 1
	payload, err := json.Marshal(f)
	if err != nil {
		slog.Error("console frame encode failed", "err", err)
		return
	}

	res, err := c.app.DispatchRaw(ctx, Platform, payload)
	if err != nil {
		slog.Error("console dispatch failed", "user", c.userID, "err", err)
		return
	}
	out, err := Adapter{}.Render(nil, res)
	if err != nil {
		slog.Error("console render failed", "err", err)
		return
	}
	select {
	case c.send <- out:
	default:
		slog.Warn("console send buffer full, dropping reply", "user", c.userID)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
