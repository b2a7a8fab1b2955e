package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"bazaar/infrastructure"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	sendQueueSize = 256

	// Upper bound on live subscriptions per connection, so one client cannot
	// grow the subscription index without limit.
	maxJoinedConversations = 256
)

// transport is the subset of *websocket.Conn the session layer uses. Tests
// substitute an in-memory implementation.
type transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is the per-connection session handler. It is created only after the
// handshake credential has been verified, so every frame it processes runs on
// behalf of a known principal.
type Client struct {
	UserID string

	hub  *Hub
	conn transport

	send chan any
	ping chan struct{}
	done chan struct{}

	alive atomic.Bool

	mu            sync.Mutex
	subscriptions map[string]struct{}

	closeOnce sync.Once
}

func NewClient(userID string, hub *Hub, conn transport) *Client {
	client := &Client{
		UserID:        userID,
		hub:           hub,
		conn:          conn,
		send:          make(chan any, sendQueueSize),
		ping:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		subscriptions: make(map[string]struct{}),
	}
	client.alive.Store(true)
	return client
}

// ReadPump consumes inbound frames strictly in arrival order until the
// transport closes, then runs teardown exactly once.
func (c *Client) ReadPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}

		c.handleFrame(&frame)
	}
}

// WritePump owns every write on the transport: queued frames, sweep-issued
// pings and the final close message.
func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(payload)
			if err != nil {
				slog.Error("failed to marshal frame", "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ping:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) handleFrame(frame *InboundFrame) {
	switch frame.Type {
	case FrameAuthenticate:
		// The handshake already authenticated this connection.

	case FrameJoinConversation:
		c.joinConversation(frame.ConversationID)

	case FrameLeaveConversation:
		c.leaveConversation(frame.ConversationID)

	case FrameChatMessage:
		c.sendChatMessage(frame.ConversationID, frame.Content, frame.Attachments)

	default:
		slog.Warn("ignoring unknown frame type", "type", string(frame.Type), "user_id", c.UserID)
	}
}

func (c *Client) joinConversation(conversationID string) {
	if conversationID == "" {
		c.sendError("conversationId is required")
		return
	}
	if !c.canSubscribe(conversationID) {
		c.sendError("too many joined conversations")
		return
	}

	if err := c.hub.service.JoinConversation(context.Background(), conversationID, c.UserID); err != nil {
		c.sendError(errorText(err))
		return
	}

	c.trackSubscription(conversationID)
	c.hub.subscriptions.Join(conversationID, c.UserID)

	c.enqueue(&JoinedConversationFrame{Type: FrameJoinedConversation, ConversationID: conversationID})
}

func (c *Client) leaveConversation(conversationID string) {
	if conversationID == "" {
		c.sendError("conversationId is required")
		return
	}

	// Acknowledged even when the caller was never joined.
	c.untrackSubscription(conversationID)
	c.hub.subscriptions.Leave(conversationID, c.UserID)

	c.enqueue(&LeftConversationFrame{Type: FrameLeftConversation, ConversationID: conversationID})
}

func (c *Client) sendChatMessage(conversationID, content string, attachments []string) {
	if conversationID == "" || strings.TrimSpace(content) == "" {
		c.sendError("conversationId and content are required")
		return
	}

	message, err := c.hub.service.SaveMessage(context.Background(), conversationID, c.UserID, content, attachments)
	if err != nil {
		c.sendError(errorText(err))
		return
	}

	c.hub.Broadcast(message)
}

// enqueue hands a frame to the write pump without blocking; a full queue
// drops the frame, the durable store remains the recipient's fallback.
func (c *Client) enqueue(payload any) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		slog.Warn("send queue full, dropping frame", "user_id", c.UserID)
		return false
	}
}

func (c *Client) sendError(message string) {
	c.enqueue(&ErrorFrame{Type: FrameError, Message: message})
}

// Ping asks the write pump to emit a liveness probe.
func (c *Client) Ping() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

func (c *Client) Alive() bool { return c.alive.Load() }

func (c *Client) ClearAlive() { c.alive.Store(false) }

// ForceClose terminates the transport; teardown then runs through the read
// pump's normal exit path.
func (c *Client) ForceClose() {
	_ = c.conn.Close()
}

func (c *Client) canSubscribe(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscriptions[conversationID]; ok {
		return true
	}
	return len(c.subscriptions) < maxJoinedConversations
}

func (c *Client) trackSubscription(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[conversationID] = struct{}{}
}

func (c *Client) untrackSubscription(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, conversationID)
}

func (c *Client) subscriptionSnapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]string, 0, len(c.subscriptions))
	for conversationID := range c.subscriptions {
		snapshot = append(snapshot, conversationID)
	}
	return snapshot
}

// teardown leaves every subscribed conversation, drops the registry entry and
// releases the transport. Runs at most once no matter how the connection dies.
func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		c.hub.Detach(c)
		close(c.done)
		_ = c.conn.Close()
	})
}

func errorText(err error) string {
	switch {
	case errors.Is(err, infrastructure.ErrConversationNotFound):
		return "conversation not found"
	case errors.Is(err, infrastructure.ErrNotParticipant):
		return "not a conversation participant"
	case errors.Is(err, infrastructure.ErrInvalidInput):
		return "conversationId and content are required"
	default:
		return "internal server error"
	}
}
