package main

import (
	"bazaar/internal/api"
	"bazaar/internal/chat"
)

// App bundles the long-lived pieces main has to drive: the HTTP server and
// the hub running the liveness sweep.
type App struct {
	Server *api.Server
	Hub    *chat.Hub
}

func ProvideApp(server *api.Server, hub *chat.Hub) *App {
	return &App{Server: server, Hub: hub}
}
