package api

import (
	"github.com/google/wire"

	"bazaar/config"
	"bazaar/internal/auth"
	"bazaar/internal/chat"
)

// ProvideServer is a Wire provider function that creates the HTTP Server
func ProvideServer(cfg *config.Config, chatService *chat.ChatService, wsHandler *chat.Handler, verifier auth.Verifier) *Server {
	return NewServer(cfg, chatService, wsHandler, verifier)
}

var Set = wire.NewSet(ProvideServer)
