package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnInfo identifies a websocket connection for observability events.
type ConnInfo struct {
	ConnID      string
	UserID      int64
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Client wraps a websocket connection with serialized writes. The live
// components push frames from independent goroutines.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// WriteJSON writes one JSON frame.
func (c *Client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// ReadJSON reads the next JSON frame.
func (c *Client) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
