package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bazaar/config"
	"bazaar/internal/auth"
	"bazaar/internal/chat"
)

type Server struct {
	router   *mux.Router
	chat     *chat.ChatService
	ws       *chat.Handler
	verifier auth.Verifier
}

func NewServer(cfg *config.Config, chatService *chat.ChatService, wsHandler *chat.Handler, verifier auth.Verifier) *Server {
	server := &Server{
		router:   mux.NewRouter(),
		chat:     chatService,
		ws:       wsHandler,
		verifier: verifier,
	}
	server.setupRoutes(cfg)
	return server
}

func (s *Server) setupRoutes(cfg *config.Config) {
	// The websocket route stays outside the REST middleware chain: the
	// upgrade needs the raw ResponseWriter and authenticates on its own
	// handshake.
	s.router.HandleFunc("/ws", s.ws.ServeWS).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	rest := s.router.PathPrefix("/conversations").Subrouter()
	rest.Use(Logger)
	rest.Use(RateLimitMiddleware(cfg.RateLimitRPS))
	rest.Use(auth.Middleware(s.verifier))
	rest.HandleFunc("", s.createConversation).Methods(http.MethodPost)
	rest.HandleFunc("", s.listConversations).Methods(http.MethodGet)
	rest.HandleFunc("/{id}/messages", s.getConversationMessages).Methods(http.MethodGet)
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
