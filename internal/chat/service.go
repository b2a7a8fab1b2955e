package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bazaar/infrastructure"
)

// ChatService owns every store interaction of the messaging subsystem.
// Validation order on conversation-scoped calls is fixed: existence first,
// then membership, then the operation itself.
type ChatService struct {
	repo Repository
}

func NewChatService(repo Repository) *ChatService {
	return &ChatService{repo: repo}
}

func (s *ChatService) authorizedConversation(ctx context.Context, conversationID, userID string) (*Conversation, error) {
	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, infrastructure.ErrNotParticipant
	}
	return conversation, nil
}

// JoinConversation validates that the caller may be present in the
// conversation and marks every unread message authored by someone else as
// read. The live-subscription bookkeeping stays with the caller.
func (s *ChatService) JoinConversation(ctx context.Context, conversationID, userID string) error {
	if _, err := s.authorizedConversation(ctx, conversationID, userID); err != nil {
		return err
	}

	if _, err := s.repo.MarkMessagesRead(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// SaveMessage persists a chat message against the conversation's general
// thread, creating the thread lazily on first use.
func (s *ChatService) SaveMessage(ctx context.Context, conversationID, senderID, content string, attachments []string) (*Message, error) {
	if conversationID == "" || strings.TrimSpace(content) == "" {
		return nil, infrastructure.ErrInvalidInput
	}

	if _, err := s.authorizedConversation(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	thread, err := s.repo.GetOrCreateThread(ctx, conversationID, ThreadKindGeneral, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve general thread: %w", err)
	}

	message := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		ThreadID:       thread.ID,
		SenderID:       senderID,
		Content:        content,
		Attachments:    attachments,
		IsRead:         false,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return message, nil
}

// StartConversation creates a conversation explicitly, either a direct one
// between the creator and one other principal or an order-scoped one with
// any participant set that includes the creator.
func (s *ChatService) StartConversation(ctx context.Context, creatorID string, participants []string, orderID *string) (*Conversation, error) {
	seen := map[string]struct{}{}
	cleaned := make([]string, 0, len(participants)+1)
	for _, p := range append([]string{creatorID}, participants...) {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) < 2 {
		return nil, infrastructure.ErrInvalidInput
	}

	if orderID == nil && len(cleaned) == 2 {
		conversation, err := s.repo.GetOrCreateDirectConversation(ctx, cleaned[0], cleaned[1])
		if err != nil {
			return nil, fmt.Errorf("failed to resolve direct conversation: %w", err)
		}
		return conversation, nil
	}

	conversation, err := s.repo.CreateConversation(ctx, cleaned, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

func (s *ChatService) UserConversations(ctx context.Context, userID string) ([]*Conversation, error) {
	conversations, err := s.repo.GetUserConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// History returns a page of a conversation's messages, newest first,
// participant-only.
func (s *ChatService) History(ctx context.Context, conversationID, userID string, limit, offset int) ([]*Message, error) {
	if _, err := s.authorizedConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.repo.GetConversationMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}
