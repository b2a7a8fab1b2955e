package chat

import (
	"log/slog"
	"time"

	"bazaar/internal/metrics"
)

// Hub owns the connection registry, the subscription index and the liveness
// sweep, and fans persisted messages out to live subscribers.
type Hub struct {
	registry      *Registry
	subscriptions *SubscriptionIndex
	service       *ChatService
	sweepInterval time.Duration

	quit chan struct{}
}

func NewHub(registry *Registry, subscriptions *SubscriptionIndex, service *ChatService, sweepInterval time.Duration) *Hub {
	return &Hub{
		registry:      registry,
		subscriptions: subscriptions,
		service:       service,
		sweepInterval: sweepInterval,
		quit:          make(chan struct{}),
	}
}

// Run drives the liveness sweep until Stop is called.
func (h *Hub) Run() {
	slog.Info("chat hub started", "sweep_interval", h.sweepInterval)
	defer slog.Info("chat hub stopped")

	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// Attach registers an authenticated connection. A principal holds one handle
// at a time; any prior connection is torn down here, before the replacement
// starts pumping frames, so its index cleanup cannot touch subscriptions the
// new connection makes.
func (h *Hub) Attach(client *Client) {
	displaced := h.registry.Register(client.UserID, client)
	if displaced != nil {
		slog.Info("replacing live connection", "user_id", client.UserID)
		displaced.teardown()
	}
	metrics.ActiveConnections.Inc()
}

// Detach removes the connection from the registry and every subscription
// entry it belonged to, keeping both sides of the bookkeeping in parity.
func (h *Hub) Detach(client *Client) {
	for _, conversationID := range client.subscriptionSnapshot() {
		client.untrackSubscription(conversationID)
		h.subscriptions.Leave(conversationID, client.UserID)
	}
	h.registry.Unregister(client.UserID, client)
	metrics.ActiveConnections.Dec()
}

// Broadcast delivers a persisted message to every subscribed principal with a
// live connection. The copy echoed to the sender is flagged read; everyone
// else gets it unread. Subscribers without a connection are skipped, their
// record is the store.
func (h *Hub) Broadcast(message *Message) {
	for _, userID := range h.subscriptions.MembersOf(message.ConversationID) {
		client, ok := h.registry.Lookup(userID)
		if !ok {
			metrics.MessagesDropped.Inc()
			continue
		}

		if client.enqueue(newMessageFrame(message, userID == message.SenderID)) {
			metrics.MessagesDelivered.Inc()
		} else {
			metrics.MessagesDropped.Inc()
		}
	}
}

// sweep terminates every connection that failed to answer the previous probe
// and sends the next one to the rest. A half-open transport is gone within
// two intervals.
func (h *Hub) sweep() {
	h.registry.ForEach(func(userID string, client *Client) {
		if !client.Alive() {
			slog.Info("liveness sweep evicting connection", "user_id", userID)
			metrics.LivenessEvictions.Inc()
			client.ForceClose()
			return
		}
		client.ClearAlive()
		client.Ping()
	})
}
