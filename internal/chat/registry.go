package chat

import "sync"

// Registry tracks the single live connection per principal. A reconnect
// replaces the previous handle; the displaced client is returned so the
// caller can close it.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

func (r *Registry) Register(userID string, client *Client) (displaced *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	displaced = r.clients[userID]
	if displaced == client {
		displaced = nil
	}
	r.clients[userID] = client
	return displaced
}

func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[userID]
	return client, ok
}

// Unregister removes the mapping only if it still points at the given
// client, so a stale connection tearing down cannot evict its replacement.
// Idempotent.
func (r *Registry) Unregister(userID string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[userID] == client {
		delete(r.clients, userID)
	}
}

// ForEach calls fn for every tracked connection. The snapshot is taken under
// the lock; fn runs without it.
func (r *Registry) ForEach(fn func(userID string, client *Client)) {
	r.mu.RLock()
	snapshot := make(map[string]*Client, len(r.clients))
	for userID, client := range r.clients {
		snapshot[userID] = client
	}
	r.mu.RUnlock()

	for userID, client := range snapshot {
		fn(userID, client)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
