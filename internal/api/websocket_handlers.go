// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Corphon/StoryboardStudio/internal/services"
)

// ProjectWebSocket subscribes the caller to a project's events.
// The current snapshot is sent first so the client can render without a GET.
func (h *Handler) ProjectWebSocket(c *gin.Context) {
	projectID := c.Param("id")
	snapshot, err := h.Studio.GetProject(projectID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("❌ WebSocket upgrade failed", map[string]interface{}{
			"project_id": projectID,
			"error":      err,
		})
		return
	}

	client := newWebSocketClient(uuid.NewString(), projectID, conn)
	h.Hub.register <- client
	defer func() {
		select {
		case h.Hub.unregister <- client:
		case <-time.After(5 * time.Second):
			client.Close()
			h.logger.Warn("⚠️ WebSocket unregister timed out", map[string]interface{}{"client_id": client.id})
		}
	}()

	go h.writePump(client)
	client.SendEvent(services.EventProjectUpdated, snapshot)
	h.readPump(client)
}

// readPump handles client messages until the connection drops.
func (h *Handler) readPump(client *WebSocketClient) {
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read ended", map[string]interface{}{
					"client_id": client.id,
					"error":     err,
				})
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		var message map[string]interface{}
		if err := json.Unmarshal(data, &message); err != nil {
			client.SendEvent(services.EventError, map[string]string{"message": "invalid message format"})
			continue
		}
		h.handleMessage(client, message)
	}
}

func (h *Handler) handleMessage(client *WebSocketClient, message map[string]interface{}) {
	msgType, _ := message["type"].(string)
	switch msgType {
	case "ping":
		client.SendEvent("pong", nil)
	default:
		client.SendEvent(services.EventError, map[string]string{"message": "unknown message type: " + msgType})
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (h *Handler) writePump(client *WebSocketClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case msg := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// GetWebSocketStatus reports the hub's connections.
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	status := h.Hub.Status()
	status["timestamp"] = time.Now().Format(time.RFC3339)
	h.Response.Success(c, status)
}
