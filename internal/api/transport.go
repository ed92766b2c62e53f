// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package api

import (
	"github.com/tomtom215/correlatus/internal/dashboard"
	ws "github.com/tomtom215/correlatus/internal/websocket"
)

// HubTransport adapts the WebSocket hub to the dashboard's transport
// interface, translating between the two message envelopes.
type HubTransport struct {
	Hub *ws.Hub
}

func (t HubTransport) SubscriberIDs() []string {
	return t.Hub.SubscriberIDs()
}

func (t HubTransport) SendTo(subscriberID string, message dashboard.Message) bool {
	return t.Hub.SendTo(subscriberID, ws.Message{Type: message.Type, Data: message.Data})
}

func (t HubTransport) ClientCount() int {
	return t.Hub.ClientCount()
}
