package websocket

import (
	"context"
	"sync"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client represents a single WebSocket connection subscribed to one group.
type Client struct {
	id       string
	group    string
	registry Registry
	conn     *ws.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a Client for group backed by the given registry.
func NewClient(registry Registry, conn *ws.Conn, group string) *Client {
	return &Client{
		id:       uuid.NewString(),
		group:    group,
		registry: registry,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

// ID returns the connection id used in logs.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame without blocking. It returns false when the buffer
// is full or the client has already gone away.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// Run joins the client's group, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then leaves the group.
func (c *Client) Run(ctx context.Context) {
	c.registry.Join(c.group, c)
	defer func() {
		c.registry.Leave(c.group, c)
		c.close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c.writePump(ctx)
		// A failed write ends the session; cancelling unblocks the reader.
		cancel()
	}()
	c.readPump(ctx)
}

// readPump reads and discards all incoming messages. It returns on error
// (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
