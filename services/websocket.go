package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CrowderSoup/kanban-board/database"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are pings only
	maxMessageSize = 64 * 1024

	broadcastBuffer = 256
)

// Client is one websocket connection watching a board.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  string
	BoardID string
}

// WebSocketMessage is the envelope for every frame in either direction.
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type boardMessage struct {
	boardID string
	payload []byte
}

type clientMessage struct {
	client  *Client
	payload []byte
}

// ReadPump reads client frames until the connection drops. The only frame
// clients send is "ping"; board changes go through the HTTP API.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			log.Printf("Error unmarshalling WebSocket message: %v", err)
			continue
		}

		if wsMessage.Type != "ping" {
			log.Printf("Ignoring WebSocket message of type '%s' from %s", wsMessage.Type, c.UserID)
			continue
		}

		pong, err := json.Marshal(WebSocketMessage{
			Type: "pong",
			Data: map[string]string{"timestamp": time.Now().Format(time.RFC3339)},
		})
		if err == nil {
			c.Hub.reply(c, pong)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub tracks connected clients and pushes committed board snapshots to the
// clients watching that board. It implements Notifier.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan boardMessage
	register   chan *Client
	unregister chan *Client
	direct     chan clientMessage
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan boardMessage, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan clientMessage),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// reply sends payload to one client through the hub loop, which owns the
// client's Send channel.
func (h *Hub) reply(client *Client, payload []byte) {
	select {
	case h.direct <- clientMessage{client: client, payload: payload}:
	case <-h.done:
	}
}

// SendBoard sends a board snapshot to one registered client only.
func (h *Hub) SendBoard(client *Client, board *database.Board) {
	payload, err := json.Marshal(WebSocketMessage{Type: "board", Data: board})
	if err != nil {
		log.Printf("Error marshalling WebSocket message: %v", err)
		return
	}
	h.reply(client, payload)
}

// Publish queues a board snapshot for every client watching boardID. It
// never blocks; when the queue is full the snapshot is dropped.
func (h *Hub) Publish(boardID string, board *database.Board) {
	payload, err := json.Marshal(WebSocketMessage{Type: "board", Data: board})
	if err != nil {
		log.Printf("Error marshalling WebSocket message: %v", err)
		return
	}

	select {
	case h.broadcast <- boardMessage{boardID: boardID, payload: payload}:
	default:
		log.Printf("Broadcast queue full, dropping update for board %s", boardID)
	}
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Client connected: %s (board %s)", client.UserID, client.BoardID)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("Client disconnected: %s", client.UserID)
			}
		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				select {
				case msg.client.Send <- msg.payload:
				default:
				}
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.BoardID != msg.boardID {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					// Client's send buffer is full, assume disconnected
					log.Printf("Client send buffer full, removing client: %s", client.UserID)
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}
