package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for feed frames sent to clients.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Hub maintains the set of connected feed clients and broadcasts new kweks
// to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound frames for global broadcast.
	broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Str("client_id", client.ID).Int("total_clients", len(h.clients)).Msg("Feed client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Info().Str("client_id", client.ID).Int("total_clients", len(h.clients)).Msg("Feed client disconnected")
			}
		case frame := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- frame:
				default:
					// Slow client, drop it.
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastKwekCreated pushes a newly created kwek to every connected client.
func (h *Hub) BroadcastKwekCreated(payload interface{}) {
	frame, err := json.Marshal(Message{Action: "kwek.created", Payload: payload})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode feed frame")
		return
	}
	h.broadcast <- frame
}
