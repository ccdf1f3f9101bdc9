package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/relay"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/api"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/utils"

	"github.com/gorilla/websocket"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024 // сценарии ходят целиком
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и Relay-сервисом
type Client struct {
	Relay  *relay.Service
	Conn   *websocket.Conn
	ConnID string

	// outbox - личный канал из Hub. Закрывается на Unregister,
	// что завершает writePump.
	outbox chan api.Envelope
}

func NewClient(svc *relay.Service, conn *websocket.Conn) *Client {
	return &Client{
		Relay:  svc,
		Conn:   conn,
		ConnID: utils.GenerateID(),
	}
}

// readPump читает сообщения от клиента и передает их в цикл Relay.
// Кривой JSON логируется и пропускается - одно плохое сообщение
// никогда не завершает сессию.
func (c *Client) readPump() {
	defer func() {
		c.Relay.Disconnect(c.ConnID)
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Errorf("WS Error: %v", err)
			}
			break
		}

		var env api.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Log.WithError(err).WithField("conn_id", c.ConnID).Warn("Malformed message, ignoring")
			continue
		}

		c.Relay.Process(c.ConnID, env)
	}
}

// writePump отправляет данные клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.outbox:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				logger.Log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
