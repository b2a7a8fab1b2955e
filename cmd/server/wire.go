//go:build wireinject
// +build wireinject

package main

import (
	"database/sql"

	"github.com/google/wire"

	"bazaar/config"
	"bazaar/internal/api"
	"bazaar/internal/auth"
	"bazaar/internal/chat"
)

var AppSet = wire.NewSet(auth.Set, chat.Set, api.Set, ProvideApp)

func InitializeApp(cfg *config.Config, db *sql.DB) *App {
	wire.Build(AppSet)

	return &App{}
}
