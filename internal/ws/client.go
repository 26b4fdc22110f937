package ws

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/goroutine"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Клиент только получает события, входящие кадры нужны лишь для pong и close.
	maxInboundSize = 4 * 1024
	sendQueueSize  = 64
)

// Client представляет одну websocket подписку на канал проекта.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	projectID uuid.UUID
	userID    string
	send      chan []byte
}

// NewClient создаёт нового клиента.
func NewClient(conn *websocket.Conn, hub *Hub, projectID uuid.UUID, userID string) *Client {
	return &Client{
		conn:      conn,
		hub:       hub,
		projectID: projectID,
		userID:    userID,
		send:      make(chan []byte, sendQueueSize),
	}
}

// Run подписывает клиента и обслуживает соединение до его закрытия или отмены ctx.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	goroutine.Go("ws-write-pump", c.writePump)

	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Get().WithFields(logrus.Fields{
					"project_id": c.projectID,
					"user_id":    c.userID,
					"error":      err.Error(),
				}).Debug("ws: соединение закрыто")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
