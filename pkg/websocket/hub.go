package websocket

import (
	"log"
	"sync"
)

// MessageHandler is a function that handles incoming messages
type MessageHandler func(*Client, *Message)

// Hub maintains the set of active dashboard clients and broadcasts alerts
type Hub struct {
	// Registered clients by user ID
	clients map[string]*Client

	// Clients grouped by alert channel (e.g. "fraud", "risk")
	channels map[string]map[string]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Broadcast messages to specific targets
	Broadcast chan *BroadcastMessage

	// Message handlers by message type
	handlers map[string]MessageHandler

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// BroadcastMessage represents a message to be broadcast
type BroadcastMessage struct {
	Target   string   // "user", "channel", "all"
	TargetID string   // User ID or channel name
	Message  *Message // Message to send
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		channels:   make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *BroadcastMessage, 256),
		handlers:   make(map[string]MessageHandler),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	log.Println("WebSocket Hub started")
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case broadcast := <-h.Broadcast:
			h.broadcastMessage(broadcast)
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Remove existing client with same ID
	if existingClient, ok := h.clients[client.ID]; ok {
		close(existingClient.Send)
	}

	h.clients[client.ID] = client

	// Honor channels attached before registration
	for name := range client.Channels() {
		if _, ok := h.channels[name]; !ok {
			h.channels[name] = make(map[string]*Client)
		}
		h.channels[name][client.ID] = client
	}

	log.Printf("Client registered: %s (role: %s)", client.ID, client.Role)
}

// unregisterClient removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		// Remove from clients map
		delete(h.clients, client.ID)

		// Remove from every channel the client subscribed to
		for name := range client.Channels() {
			if subs, ok := h.channels[name]; ok {
				delete(subs, client.ID)
				if len(subs) == 0 {
					delete(h.channels, name)
				}
			}
		}

		close(client.Send)
		log.Printf("Client unregistered: %s", client.ID)
	}
}

// broadcastMessage sends a message to target clients
func (h *Hub) broadcastMessage(broadcast *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch broadcast.Target {
	case "user":
		// Send to specific user
		if client, ok := h.clients[broadcast.TargetID]; ok {
			client.SendMessage(broadcast.Message)
		}

	case "channel":
		// Send to all subscribers of a channel
		if subs, ok := h.channels[broadcast.TargetID]; ok {
			for _, client := range subs {
				client.SendMessage(broadcast.Message)
			}
		}

	case "all":
		// Send to all connected clients
		for _, client := range h.clients {
			client.SendMessage(broadcast.Message)
		}
	}
}

// HandleMessage routes incoming messages to appropriate handlers
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, exists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if exists {
		handler(client, msg)
	} else {
		log.Printf("No handler for message type: %s", msg.Type)
	}
}

// RegisterHandler registers a message handler for a specific type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
	log.Printf("Registered handler for message type: %s", msgType)
}

// Subscribe adds a client to an alert channel
func (h *Hub) Subscribe(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}

	// Create channel if doesn't exist
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[string]*Client)
	}

	h.channels[channel][clientID] = client
	client.AddChannel(channel)

	log.Printf("Client %s subscribed to channel %s", clientID, channel)
}

// Unsubscribe removes a client from an alert channel
func (h *Hub) Unsubscribe(clientID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.channels[channel]; ok {
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}

	if client, ok := h.clients[clientID]; ok {
		client.RemoveChannel(channel)
	}

	log.Printf("Client %s unsubscribed from channel %s", clientID, channel)
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID string, msg *Message) {
	h.Broadcast <- &BroadcastMessage{
		Target:   "user",
		TargetID: userID,
		Message:  msg,
	}
}

// SendToChannel sends a message to all subscribers of a channel
func (h *Hub) SendToChannel(channel string, msg *Message) {
	h.Broadcast <- &BroadcastMessage{
		Target:   "channel",
		TargetID: channel,
		Message:  msg,
	}
}

// SendToAll broadcasts a message to all connected clients
func (h *Hub) SendToAll(msg *Message) {
	h.Broadcast <- &BroadcastMessage{
		Target:  "all",
		Message: msg,
	}
}

// GetClient returns a client by ID
func (h *Hub) GetClient(clientID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	return client, ok
}

// GetChannelClients returns all clients subscribed to a channel
func (h *Hub) GetChannelClients(channel string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0)
	if subs, ok := h.channels[channel]; ok {
		for _, client := range subs {
			clients = append(clients, client)
		}
	}
	return clients
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelCount returns the number of active channels
func (h *Hub) GetChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
