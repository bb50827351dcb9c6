package stream

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message types exchanged with viewers
const (
	TypeWelcome      = "welcome"
	TypeNotification = "notification"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeStatus       = "status"
	TypeError        = "error"
)

// Message is the envelope of every frame. Outgoing messages set Payload,
// which is encoded into Data; incoming messages carry Data only.
type Message struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Payload interface{}     `json:"-"`
}

// MessageHandler handles a message received from a viewer
type MessageHandler func(ctx context.Context, client *Client, message *Message) error

// encode renders the message as one JSON frame without modifying it
func (m *Message) encode() ([]byte, error) {
	out := Message{Type: m.Type, Data: m.Data}
	if m.Payload != nil {
		data, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", m.Type, err)
		}
		out.Data = data
	}
	return json.Marshal(out)
}

// PingHandler answers a ping with a pong echoing its data
func PingHandler(ctx context.Context, client *Client, message *Message) error {
	return client.SendJSON(TypePong, map[string]interface{}{
		"timestamp": message.Data,
	})
}

// StatusHandler reports the viewer's connection details
func StatusHandler(ctx context.Context, client *Client, message *Message) error {
	return client.SendJSON(TypeStatus, map[string]interface{}{
		"client_id":      client.ID,
		"viewer":         client.Viewer,
		"connected_for":  client.ConnectedFor().String(),
		"last_seen":      client.LastSeen(),
		"viewers_online": client.hub.ClientCount(),
		"frames_dropped": client.hub.Dropped(),
	})
}

// RegisterDefaultHandlers registers the ping and status handlers
func RegisterDefaultHandlers(hub *Hub) {
	hub.RegisterHandler(TypePing, PingHandler)
	hub.RegisterHandler(TypeStatus, StatusHandler)
}
