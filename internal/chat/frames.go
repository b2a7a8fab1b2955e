package chat

import "time"

// FrameType tags every payload exchanged over a chat connection. The inbound
// set is closed; anything outside it is logged and ignored so newer clients
// do not break older servers.
type FrameType string

const (
	// Client to server
	FrameAuthenticate      FrameType = "authenticate"
	FrameJoinConversation  FrameType = "join_conversation"
	FrameLeaveConversation FrameType = "leave_conversation"
	FrameChatMessage       FrameType = "chat_message"

	// Server to client
	FrameConnectionEstablished FrameType = "connection_established"
	FrameJoinedConversation    FrameType = "joined_conversation"
	FrameLeftConversation      FrameType = "left_conversation"
	FrameNewMessage            FrameType = "new_message"
	FrameError                 FrameType = "error"
)

// InboundFrame is the decoded form of every client payload. Which fields are
// meaningful depends on Type.
type InboundFrame struct {
	Type           FrameType `json:"type"`
	ConversationID string    `json:"conversationId,omitempty"`
	Content        string    `json:"content,omitempty"`
	Attachments    []string  `json:"attachments,omitempty"`
}

type ConnectionEstablishedFrame struct {
	Type   FrameType `json:"type"`
	UserID string    `json:"userId"`
}

type JoinedConversationFrame struct {
	Type           FrameType `json:"type"`
	ConversationID string    `json:"conversationId"`
}

type LeftConversationFrame struct {
	Type           FrameType `json:"type"`
	ConversationID string    `json:"conversationId"`
}

type NewMessageFrame struct {
	Type           FrameType      `json:"type"`
	ConversationID string         `json:"conversationId"`
	Message        MessagePayload `json:"message"`
}

type MessagePayload struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ErrorFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

func newMessageFrame(msg *Message, isRead bool) *NewMessageFrame {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return &NewMessageFrame{
		Type:           FrameNewMessage,
		ConversationID: msg.ConversationID,
		Message: MessagePayload{
			ID:          msg.ID,
			Sender:      msg.SenderID,
			Content:     msg.Content,
			Attachments: attachments,
			IsRead:      isRead,
			CreatedAt:   msg.CreatedAt,
		},
	}
}
