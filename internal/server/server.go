// Package server exposes one editor session over HTTP.
//
// The API is a thin veneer over [editor.Session]: every endpoint maps to
// one session operation, and a WebSocket channel pushes stack-state and
// position updates to connected clients after each mutation.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowscope/flowscope/pkg/editor"
	"github.com/flowscope/flowscope/pkg/store"
)

// Server serves the editor API for one session.
type Server struct {
	session *editor.Session
	store   store.Store
	logger  *log.Logger
	hub     *hub

	// docID is the persisted document identity, set once a document has
	// been loaded or saved.
	docID    string
	docTitle string
}

// New creates a server around a session. The store may be nil, in which
// case the save and load endpoints report failure.
func New(session *editor.Session, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		session: session,
		store:   st,
		logger:  logger,
		hub:     newHub(logger),
	}
	session.OnStackChange(s.hub.broadcastStackState)
	return s
}

// Handler returns the HTTP handler for the editor API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/diagram", s.handleGetDiagram)
		r.Get("/positions", s.handleGetPositions)
		r.Get("/history", s.handleGetHistory)
		r.Post("/verify", s.handleVerify)

		r.Post("/nodes", s.handleAddNode)
		r.Post("/nodes/delete", s.handleDeleteNode)
		r.Post("/flows", s.handleAddFlow)
		r.Post("/flows/delete", s.handleDeleteFlow)
		r.Post("/properties", s.handleSetProperty)

		r.Post("/drag/start", s.handleDragStart)
		r.Post("/drag/update", s.handleDragUpdate)
		r.Post("/drag/end", s.handleDragEnd)
		r.Post("/drag/cancel", s.handleDragCancel)

		r.Post("/undo", s.handleUndo)
		r.Post("/redo", s.handleRedo)
		r.Post("/reset/nodes", s.handleResetNodes)
		r.Post("/reset/labels", s.handleResetLabels)

		r.Get("/render.svg", s.handleRenderSVG)

		r.Post("/save", s.handleSave)
		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents/load", s.handleLoadDocument)
	})

	r.Get("/ws", s.hub.handleWS)
	return r
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("editor server listening", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
