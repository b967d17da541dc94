package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub           *Hub
	Conn          *websocket.Conn
	Send          chan []byte
	DistributorID string
}

type event struct {
	distributorID string // empty means every tenant
	payload       []byte
}

// Hub maintains the set of active clients and pushes invoice events to
// them. Events are scoped to a tenant: a client only sees events for
// its own distributor.
type Hub struct {
	clients    map[*Client]bool
	events     chan event
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		events:     make(chan event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			zap.L().Debug("websocket client connected", zap.String("distributor_id", client.DistributorID))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				zap.L().Debug("websocket client disconnected")
			}
			h.mu.Unlock()
		case ev := <-h.events:
			h.mu.Lock()
			for client := range h.clients {
				if ev.distributorID != "" && client.DistributorID != ev.distributorID {
					continue
				}
				select {
				case client.Send <- ev.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishInvoiceEvent satisfies the invoice service's publisher seam.
// The payload is wrapped in an {event, data, ts} envelope.
func (h *Hub) PublishInvoiceEvent(name string, payload any) {
	body, err := json.Marshal(map[string]any{
		"event": name,
		"data":  payload,
		"ts":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		zap.L().Warn("failed to marshal websocket event", zap.String("event", name), zap.Error(err))
		return
	}

	distributorID := ""
	if m, ok := payload.(map[string]string); ok {
		distributorID = m["distributor_id"]
	}

	select {
	case h.events <- event{distributorID: distributorID, payload: body}:
	default:
		zap.L().Warn("websocket event dropped, hub backlog full", zap.String("event", name))
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Just reading to keep connection alive or handle client messages if necessary
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Warn("websocket read error", zap.Error(err))
			}
			break
		}
	}
}

// ServeWs handles websocket requests from the peer. The credential
// arrives as a query param because browsers cannot set headers on
// websocket upgrades; invoice.view is required to subscribe.
func ServeWs(hub *Hub, c *gin.Context, tokens service.TokenService) {
	tokenString := c.Query("token")
	if tokenString == "" {
		zap.L().Debug("websocket rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := tokens.Parse(tokenString)
	if err != nil {
		zap.L().Debug("websocket rejected: invalid token", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	actor, err := service.ActorFromClaims(claims)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !service.Authorize(actor, service.RequireCode("invoice.view")) {
		zap.L().Debug("websocket rejected: missing invoice.view")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	distributorID := ""
	if claims.DistributorID != nil {
		distributorID = *claims.DistributorID
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), DistributorID: distributorID}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
