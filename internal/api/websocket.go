// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Corphon/StoryboardStudio/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// newUpgrader accepts the configured origins; "*" accepts any.
func newUpgrader(origins []string) websocket.Upgrader {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowAll || origin == "" || allowed[origin]
		},
	}
}

// WebSocketConnection is the part of *websocket.Conn the hub uses.
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
}

// Event is the envelope of every message pushed to subscribers.
type Event struct {
	Type      string      `json:"type"`
	ProjectID string      `json:"project_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketClient is one subscriber of a project.
type WebSocketClient struct {
	id        string
	conn      WebSocketConnection
	projectID string
	send      chan []byte
	done      chan struct{}
	closed    int32
	closeOnce sync.Once
	lastPing  atomic.Int64
	createdAt time.Time
}

func newWebSocketClient(id, projectID string, conn WebSocketConnection) *WebSocketClient {
	client := &WebSocketClient{
		id:        id,
		conn:      conn,
		projectID: projectID,
		send:      make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	client.UpdatePing()
	return client
}

// Close closes the connection once.
func (client *WebSocketClient) Close() {
	client.closeOnce.Do(func() {
		atomic.StoreInt32(&client.closed, 1)
		close(client.done)
		if client.conn != nil {
			client.conn.Close()
		}
	})
}

// IsClosed reports whether Close was called.
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing records liveness.
func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired reports whether the client has been silent for longer than timeout.
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// enqueue queues a message without blocking. It reports false when the queue is full.
func (client *WebSocketClient) enqueue(msg []byte) bool {
	if client.IsClosed() {
		return true
	}
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// SendEvent encodes and queues an event for this client only.
func (client *WebSocketClient) SendEvent(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, ProjectID: client.projectID, Data: data, Timestamp: time.Now()})
	if err != nil {
		return
	}
	client.enqueue(msg)
}

// Hub fans project events out to WebSocket subscribers. It implements services.Notifier.
type Hub struct {
	connections map[string]map[*WebSocketClient]struct{} // projectID -> clients
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	stop        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	pingTimeout time.Duration
	logger      *utils.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *utils.Logger) *Hub {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Hub{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		register:    make(chan *WebSocketClient, 256),
		unregister:  make(chan *WebSocketClient, 256),
		stop:        make(chan struct{}),
		pingTimeout: 2 * pongWait,
		logger:      logger,
	}
}

// Run processes registrations until Stop is called.
func (h *Hub) Run() {
	cleanupTicker := time.NewTicker(30 * time.Second)
	defer cleanupTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-cleanupTicker.C:
			h.cleanupExpiredConnections()
		case <-h.stop:
			h.shutdown()
			return
		}
	}
}

// Stop closes every connection and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) registerClient(client *WebSocketClient) {
	if client == nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.connections[client.projectID] == nil {
		h.connections[client.projectID] = make(map[*WebSocketClient]struct{})
	}
	h.connections[client.projectID][client] = struct{}{}

	h.logger.Info("✅ WebSocket client connected", map[string]interface{}{
		"project_id": client.projectID,
		"client_id":  client.id,
	})
}

func (h *Hub) unregisterClient(client *WebSocketClient) {
	if client == nil {
		return
	}
	h.mutex.Lock()
	if clients, ok := h.connections[client.projectID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.connections, client.projectID)
		}
	}
	h.mutex.Unlock()

	client.Close()
	h.logger.Info("🔌 WebSocket client disconnected", map[string]interface{}{
		"project_id": client.projectID,
		"client_id":  client.id,
	})
}

func (h *Hub) cleanupExpiredConnections() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	removed := 0
	for projectID, clients := range h.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(h.pingTimeout) {
				delete(clients, client)
				client.Close()
				removed++
			}
		}
		if len(clients) == 0 {
			delete(h.connections, projectID)
		}
	}
	if removed > 0 {
		h.logger.Debug("Removed expired WebSocket clients", map[string]interface{}{"count": removed})
	}
}

func (h *Hub) shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.connections {
		for client := range clients {
			client.Close()
		}
	}
	h.connections = make(map[string]map[*WebSocketClient]struct{})
	h.logger.Info("🛑 WebSocket hub stopped", nil)
}

// BroadcastToProject pushes an event to every subscriber of projectID.
// Slow clients whose queue is full are disconnected.
func (h *Hub) BroadcastToProject(projectID, eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, ProjectID: projectID, Data: data, Timestamp: time.Now()})
	if err != nil {
		h.logger.Error("❌ Failed to encode WebSocket event", map[string]interface{}{
			"project_id": projectID,
			"type":       eventType,
			"error":      err,
		})
		return
	}

	h.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(h.connections[projectID]))
	for client := range h.connections[projectID] {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		if client.enqueue(msg) {
			continue
		}
		h.logger.Warn("⚠️ WebSocket send queue full, dropping client", map[string]interface{}{
			"project_id": projectID,
			"client_id":  client.id,
		})
		client.Close()
		select {
		case h.unregister <- client:
		default:
		}
	}
}

// ClientCount returns the number of subscribers of a project.
func (h *Hub) ClientCount(projectID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections[projectID])
}

// Status summarizes the connections per project.
func (h *Hub) Status() map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	projects := make(map[string]interface{}, len(h.connections))
	total := 0
	for projectID, clients := range h.connections {
		list := make([]map[string]interface{}, 0, len(clients))
		for client := range clients {
			if client.IsClosed() {
				continue
			}
			list = append(list, map[string]interface{}{
				"client_id":    client.id,
				"connected_at": client.createdAt.Format(time.RFC3339),
				"last_ping":    time.Unix(0, client.lastPing.Load()).Format(time.RFC3339),
			})
		}
		projects[projectID] = map[string]interface{}{
			"client_count": len(list),
			"clients":      list,
		}
		total += len(list)
	}

	return map[string]interface{}{
		"total_projects":       len(h.connections),
		"total_connections":    total,
		"projects":             projects,
		"ping_timeout_seconds": int(h.pingTimeout.Seconds()),
	}
}
