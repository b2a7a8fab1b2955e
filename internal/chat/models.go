package chat

import "time"

type ThreadKind string

const (
	ThreadKindGeneral ThreadKind = "general"
	ThreadKindOrder   ThreadKind = "order"
	ThreadKindGig     ThreadKind = "gig"
)

// Conversation is the durable container of messaging history between two or
// more participants, optionally tied to a marketplace order.
type Conversation struct {
	ID             string
	Participants   []string
	OrderID        *string
	LastMessageID  *string
	LastActivityAt time.Time
	CreatedAt      time.Time
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Thread is a typed sub-channel of a conversation. At most one thread exists
// per (conversation, kind, order); general threads are singletons.
type Thread struct {
	ID             string
	ConversationID string
	Kind           ThreadKind
	OrderID        *string
	LastMessageID  *string
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// Message is immutable once created except for its IsRead flag. CreatedAt is
// the display and delivery order within a thread.
type Message struct {
	ID             string
	ConversationID string
	ThreadID       string
	SenderID       string
	Content        string
	Attachments    []string
	IsRead         bool
	CreatedAt      time.Time
}
