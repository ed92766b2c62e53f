// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/correlatus/internal/logging"
	"github.com/tomtom215/correlatus/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeTeamStatus     = "team_status"
	MessageTypeFullUpdate     = "full_update"
	MessageTypeStreamingPref  = "streaming_preference"
	MessageTypeModeChanged    = "mode_changed"
	MessageTypeRoundCreated   = "round_created"
	MessageTypeAnswerRecorded = "answer_recorded"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StreamingPrefData is the payload of an inbound streaming_preference
// message from a dashboard client.
type StreamingPrefData struct {
	Enabled bool `json:"enabled"`
}

// PreferenceFunc is invoked when a client toggles its streaming preference.
type PreferenceFunc func(clientID string, enabled bool)

// ConnectFunc is invoked after a client has been registered and is
// addressable via SendTo, so the dashboard can push an initial state.
type ConnectFunc func(clientID string)

// DisconnectFunc is invoked after a client has been unregistered, so the
// dashboard can drop per-subscriber state and refresh counters.
type DisconnectFunc func(clientID string)

// Hub maintains the set of active clients and routes messages to them.
// Clients are addressed by their UUID so the dashboard publish paths can
// target a single subscriber or broadcast with an exclusion.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	onPreference PreferenceFunc
	onConnect    ConnectFunc
	onDisconnect DisconnectFunc
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

// OnPreference registers the callback for inbound streaming-preference
// messages. Must be called before RunWithContext.
func (h *Hub) OnPreference(fn PreferenceFunc) {
	h.onPreference = fn
}

// OnConnect registers the callback invoked after a client registers.
// Must be called before RunWithContext.
func (h *Hub) OnConnect(fn ConnectFunc) {
	h.onConnect = fn
}

// OnDisconnect registers the callback invoked after a client unregisters.
// Must be called before RunWithContext.
func (h *Hub) OnDisconnect(fn DisconnectFunc) {
	h.onDisconnect = fn
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
// - Priority 3: Broadcast messages
// This ensures client state is always consistent before processing messages.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
			// No lifecycle events pending
		}

		// Priority 3: Handle broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.Broadcast(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSClients.Set(float64(total))
	logging.Info().Str("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")
	if h.onConnect != nil {
		h.onConnect(client.id)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.id]
	if ok {
		delete(h.clients, client.id)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	metrics.WSClients.Set(float64(total))
	logging.Info().Str("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
	if h.onDisconnect != nil {
		h.onDisconnect(client.id)
	}
}

// handlePreference dispatches an inbound streaming-preference toggle.
func (h *Hub) handlePreference(clientID string, raw interface{}) {
	enabled := false
	switch v := raw.(type) {
	case bool:
		enabled = v
	case map[string]interface{}:
		if b, ok := v["enabled"].(bool); ok {
			enabled = b
		}
	default:
		logging.Warn().Str("client_id", clientID).Msg("malformed streaming_preference payload")
		return
	}
	if h.onPreference != nil {
		h.onPreference(clientID, enabled)
	}
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error because cancellation is
// expected during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients gracefully closes all connected WebSocket clients.
// DETERMINISM: Closes clients in ID order for consistent shutdown behavior.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range sortedIDs(h.clients) {
		close(h.clients[id].send)
		delete(h.clients, id)
	}
	metrics.WSClients.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// Broadcast sends a message to every connected client in deterministic
// (ID-sorted) order. Clients whose send buffer is full are dropped: a
// slow dashboard must not block delivery to the others.
func (h *Hub) Broadcast(message Message) {
	h.BroadcastExcept(message, "")
}

// BroadcastExcept sends a message to every connected client except the
// one with the given ID. An empty exclude ID broadcasts to all.
func (h *Hub) BroadcastExcept(message Message, exclude string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []string
	for _, id := range sortedIDs(h.clients) {
		if id == exclude {
			continue
		}
		select {
		case h.clients[id].send <- message:
		default:
			// Channel full or closed, mark for removal
			toRemove = append(toRemove, id)
		}
	}

	for _, id := range toRemove {
		close(h.clients[id].send)
		delete(h.clients, id)
		metrics.PublishDroppedSends.Inc()
		logging.Warn().Str("client_id", id).Msg("dropping unresponsive websocket client")
	}
	metrics.WSClients.Set(float64(len(h.clients)))
}

// SendTo delivers a message to one client. Returns false if the client is
// unknown or its send buffer is full; the caller treats both as a failed
// push to that subscriber without aborting delivery to others.
func (h *Hub) SendTo(clientID string, message Message) bool {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		metrics.PublishDroppedSends.Inc()
		logging.Warn().Str("client_id", clientID).Msg("send buffer full, message dropped")
		return false
	}
}

// SubscriberIDs returns the connected client IDs in sorted order.
func (h *Hub) SubscriberIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedIDs(h.clients)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// QueueBroadcast enqueues a message for the hub loop to deliver, dropping
// it if the broadcast buffer is full.
func (h *Hub) QueueBroadcast(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// sortedIDs returns map keys in ascending order. Callers hold h.mu.
func sortedIDs(clients map[string]*Client) []string {
	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
