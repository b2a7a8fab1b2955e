package chat

import (
	"database/sql"

	"github.com/google/wire"

	"bazaar/config"
	"bazaar/internal/auth"
)

// ProvideRepository is a Wire provider function that creates the Postgres-backed Repository
func ProvideRepository(db *sql.DB) Repository {
	return NewPostgresRepository(db)
}

// ProvideService is a Wire provider function that creates the ChatService
func ProvideService(repo Repository) *ChatService {
	return NewChatService(repo)
}

func ProvideRegistry() *Registry {
	return NewRegistry()
}

func ProvideSubscriptionIndex() *SubscriptionIndex {
	return NewSubscriptionIndex()
}

func ProvideHub(registry *Registry, subscriptions *SubscriptionIndex, service *ChatService, cfg *config.Config) *Hub {
	return NewHub(registry, subscriptions, service, cfg.SweepInterval)
}

func ProvideHandler(hub *Hub, verifier auth.Verifier) *Handler {
	return NewHandler(hub, verifier)
}

var Set = wire.NewSet(ProvideRepository, ProvideService, ProvideRegistry, ProvideSubscriptionIndex, ProvideHub, ProvideHandler)
