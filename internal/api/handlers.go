package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"bazaar/infrastructure"
	"bazaar/internal/auth"
	"bazaar/internal/chat"
)

type createConversationRequest struct {
	Participants []string `json:"participants"`
	OrderID      *string  `json:"orderId,omitempty"`
}

type conversationResponse struct {
	ID             string    `json:"id"`
	Participants   []string  `json:"participants"`
	OrderID        *string   `json:"orderId,omitempty"`
	LastMessageID  *string   `json:"lastMessageId,omitempty"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	ThreadID       string    `json:"threadId"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Attachments    []string  `json:"attachments"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conversation, err := s.chat.StartConversation(r.Context(), userID, req.Participants, req.OrderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toConversationResponse(conversation))
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversations, err := s.chat.UserConversations(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]conversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		out = append(out, toConversationResponse(conversation))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getConversationMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["id"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := s.chat.History(r.Context(), conversationID, userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		attachments := msg.Attachments
		if attachments == nil {
			attachments = []string{}
		}
		out = append(out, messageResponse{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			ThreadID:       msg.ThreadID,
			Sender:         msg.SenderID,
			Content:        msg.Content,
			Attachments:    attachments,
			IsRead:         msg.IsRead,
			CreatedAt:      msg.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func toConversationResponse(conversation *chat.Conversation) conversationResponse {
	return conversationResponse{
		ID:             conversation.ID,
		Participants:   conversation.Participants,
		OrderID:        conversation.OrderID,
		LastMessageID:  conversation.LastMessageID,
		LastActivityAt: conversation.LastActivityAt,
		CreatedAt:      conversation.CreatedAt,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, infrastructure.ErrConversationNotFound):
		http.Error(w, "Conversation not found", http.StatusNotFound)
	case errors.Is(err, infrastructure.ErrNotParticipant):
		http.Error(w, "Not a conversation participant", http.StatusForbidden)
	case errors.Is(err, infrastructure.ErrInvalidInput):
		http.Error(w, "Invalid input", http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
