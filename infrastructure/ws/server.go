// Package ws is the live-connection transport. It upgrades HTTP
// requests to websocket sessions, resolves the externally issued user
// identifier, and bridges each session into the chat core through the
// contract.Connection interface.
package ws

import (
	"log/slog"
	"net/http"

	"chat-core/auth"
	"chat-core/contract"
	"chat-core/domain"

	"github.com/gorilla/websocket"
)

// IdentityResolver extracts the externally resolved user identifier
// from the upgrade request. An empty identifier means the connection
// is accepted anonymously: never registered, excluded from presence.
type IdentityResolver func(r *http.Request) domain.UserID

// NewIdentityResolver reads a JWT from the "token" query parameter,
// falling back to the plain "user_id" parameter. Resolution failures
// degrade to anonymous rather than rejecting the connection.
func NewIdentityResolver(tokens *auth.TokenResolver, log *slog.Logger) IdentityResolver {
	return func(r *http.Request) domain.UserID {
		if token := r.URL.Query().Get("token"); token != "" {
			userID, err := tokens.ResolveUserID(token)
			if err != nil {
				log.Warn("Token resolution failed, treating connection as anonymous", "error", err)
				return ""
			}
			return userID
		}
		return domain.UserID(r.URL.Query().Get("user_id"))
	}
}

type Server struct {
	log            *slog.Logger
	service        contract.IChatService
	resolve        IdentityResolver
	upgrader       websocket.Upgrader
	sendBufferSize int
}

func NewServer(log *slog.Logger, service contract.IChatService,
	resolve IdentityResolver, sendBufferSize int) *Server {
	return &Server{
		log:     log,
		service: service,
		resolve: resolve,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sendBufferSize: sendBufferSize,
	}
}

// ServeHTTP upgrades the request and serves the connection until it
// disconnects. Registration, presence announcement, and teardown are
// the hub's concern; the transport only establishes and pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	userID := s.resolve(r)
	client := NewClient(conn, userID, s.service, s.log, s.sendBufferSize)
	s.service.Connect(r.Context(), client)
	client.Run(r.Context())
}
