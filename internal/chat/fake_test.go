package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bazaar/infrastructure"
)

// fakeRepository is an in-memory Repository used by the session and hub
// tests.
type fakeRepository struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	threads       map[string]*Thread
	messages      []*Message
	createErr     error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		conversations: make(map[string]*Conversation),
		threads:       make(map[string]*Thread),
	}
}

func (f *fakeRepository) addConversation(id string, participants ...string) *Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	conversation := &Conversation{
		ID:             id,
		Participants:   participants,
		LastActivityAt: time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	f.conversations[id] = conversation
	return conversation
}

func (f *fakeRepository) addMessage(conversationID, senderID, content string, isRead bool) *Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		ThreadID:       "thread-" + conversationID,
		SenderID:       senderID,
		Content:        content,
		IsRead:         isRead,
		CreatedAt:      time.Now().UTC(),
	}
	f.messages = append(f.messages, msg)
	return msg
}

func (f *fakeRepository) messageSnapshot() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, 0, len(f.messages))
	for _, msg := range f.messages {
		out = append(out, *msg)
	}
	return out
}

func (f *fakeRepository) threadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.threads)
}

func (f *fakeRepository) GetConversation(_ context.Context, conversationID string) (*Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conversation, ok := f.conversations[conversationID]
	if !ok {
		return nil, infrastructure.ErrConversationNotFound
	}
	return conversation, nil
}

func (f *fakeRepository) GetOrCreateDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	f.mu.Lock()
	for _, conversation := range f.conversations {
		if conversation.OrderID == nil && len(conversation.Participants) == 2 &&
			conversation.HasParticipant(userA) && conversation.HasParticipant(userB) {
			f.mu.Unlock()
			return conversation, nil
		}
	}
	f.mu.Unlock()
	return f.CreateConversation(ctx, []string{userA, userB}, nil)
}

func (f *fakeRepository) CreateConversation(_ context.Context, participants []string, orderID *string) (*Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conversation := &Conversation{
		ID:             uuid.New().String(),
		Participants:   participants,
		OrderID:        orderID,
		LastActivityAt: time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	f.conversations[conversation.ID] = conversation
	return conversation, nil
}

func (f *fakeRepository) GetUserConversations(_ context.Context, userID string) ([]*Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Conversation
	for _, conversation := range f.conversations {
		if conversation.HasParticipant(userID) {
			out = append(out, conversation)
		}
	}
	return out, nil
}

func (f *fakeRepository) GetOrCreateThread(_ context.Context, conversationID string, kind ThreadKind, orderID *string) (*Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := conversationID + "/" + string(kind)
	if orderID != nil {
		key += "/" + *orderID
	}
	if thread, ok := f.threads[key]; ok {
		return thread, nil
	}
	thread := &Thread{
		ID:             "thread-" + conversationID,
		ConversationID: conversationID,
		Kind:           kind,
		OrderID:        orderID,
		LastActivityAt: time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	f.threads[key] = thread
	return thread, nil
}

func (f *fakeRepository) CreateMessage(_ context.Context, message *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.messages = append(f.messages, message)
	if conversation, ok := f.conversations[message.ConversationID]; ok {
		id := message.ID
		conversation.LastMessageID = &id
		conversation.LastActivityAt = message.CreatedAt
	}
	return nil
}

func (f *fakeRepository) GetConversationMessages(_ context.Context, conversationID string, limit, offset int) ([]*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Message
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].ConversationID == conversationID {
			out = append(out, f.messages[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepository) MarkMessagesRead(_ context.Context, conversationID, readerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var marked int64
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID && !msg.IsRead {
			msg.IsRead = true
			marked++
		}
	}
	return marked, nil
}

var errFakeConnClosed = errors.New("fake connection closed")

// fakeConn is an in-memory transport. Reads block on the inbound channel
// until the connection is closed.
type fakeConn struct {
	mu        sync.Mutex
	inbound   chan []byte
	written   [][]byte
	pings     int
	closed    bool
	closeOnce sync.Once
	closedCh  chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 16),
		closedCh: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.inbound:
		return websocket.TextMessage, data, nil
	case <-f.closedCh:
		return 0, nil, errFakeConnClosed
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errFakeConnClosed
	}
	if messageType == websocket.PingMessage {
		f.pings++
		return nil
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.closedCh)
	})
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestHub(repo Repository) *Hub {
	return NewHub(NewRegistry(), NewSubscriptionIndex(), NewChatService(repo), time.Minute)
}
