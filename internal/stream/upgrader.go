package stream

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config holds WebSocket configuration
type Config struct {
	// Buffer sizes
	ReadBufferSize  int
	WriteBufferSize int

	// Origin check function
	CheckOrigin func(r *http.Request) bool

	// Authentication token extraction
	TokenExtractor func(r *http.Request) string
}

// DefaultConfig returns default WebSocket configuration
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Viewers are read-only; any origin may watch.
			return true
		},
		TokenExtractor: func(r *http.Request) string {
			// Try to get token from query parameter
			if token := r.URL.Query().Get("token"); token != "" {
				return token
			}
			return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		},
	}
}

// Upgrader upgrades HTTP connections to viewer WebSockets
type Upgrader struct {
	config   *Config
	upgrader *websocket.Upgrader
	hub      *Hub
	auth     *TokenAuth
}

// NewUpgrader creates a new Upgrader. A nil auth leaves the stream open.
func NewUpgrader(config *Config, hub *Hub, auth *TokenAuth) *Upgrader {
	if config == nil {
		config = DefaultConfig()
	}

	upgrader := &websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}

	return &Upgrader{
		config:   config,
		upgrader: upgrader,
		hub:      hub,
		auth:     auth,
	}
}

// ServeHTTP authenticates the viewer, upgrades the connection and hands the
// new client to the hub
func (u *Upgrader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var viewer string
	if u.auth != nil {
		var err error
		viewer, err = u.auth.Verify(u.config.TokenExtractor(r))
		if err != nil {
			u.hub.logger.Info("viewer rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(uuid.New().String(), conn, u.hub)
	client.Viewer = viewer

	// Queued before registration so it precedes every broadcast.
	_ = client.SendJSON(TypeWelcome, map[string]string{
		"client_id": client.ID,
		"viewer":    viewer,
	})
	client.Serve()
}

// Handler returns an http.HandlerFunc for WebSocket upgrade
func (u *Upgrader) Handler() http.HandlerFunc {
	return u.ServeHTTP
}
