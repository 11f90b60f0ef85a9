// Package api exposes a thin JSON surface over the Reconciler. It is
// glue only: the Reconciler remains the single mutation authority.
package api

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/pvu/tasksync/internal/reconcile"
)

// Server routes HTTP requests to the Reconciler.
type Server struct {
	rec    *reconcile.Reconciler
	secret []byte
}

// New creates a Server using secret to verify session tokens.
func New(rec *reconcile.Reconciler, secret []byte) *Server {
	return &Server{rec: rec, secret: secret}
}

// Handler returns the full route table wrapped with CORS.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tasks", s.withSession(s.handleListTasks))
	mux.HandleFunc("POST /tasks", s.withSession(s.handleAddTask))
	mux.HandleFunc("PATCH /tasks/{id}", s.withSession(s.handleUpdateTask))
	mux.HandleFunc("DELETE /tasks/{id}", s.withSession(s.handleDeleteTask))
	mux.HandleFunc("POST /tasks/{id}/toggle", s.withSession(s.handleToggleTask))
	mux.HandleFunc("POST /tasks/refresh", s.withSession(s.handleRefresh))
	mux.HandleFunc("GET /views", s.withSession(s.handleViews))

	mux.HandleFunc("GET /chat", s.withSession(s.handleChatHistory))
	mux.HandleFunc("POST /chat", s.withSession(s.handleChat))
	mux.HandleFunc("POST /chat/confirm", s.withSession(s.handleChatConfirm))
	mux.HandleFunc("POST /chat/discard", s.withSession(s.handleChatDiscard))

	mux.HandleFunc("GET /notifications", s.withSession(s.handleNotifications))
	mux.HandleFunc("POST /notifications/{id}/read", s.withSession(s.handleNotificationRead))

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(mux)
}
