// Package server is the HTTP adapter over the orchestrator: the professor
// setup surface, the student turn loop, and operational endpoints.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/scrimlabs/scrim/internal/orchestrator"
)

// Server wraps the HTTP listener over a session manager.
type Server struct {
	manager *orchestrator.Manager
	server  *http.Server
}

// New creates the server with all routes registered.
func New(manager *orchestrator.Manager, addr string) *Server {
	s := &Server{manager: manager}

	mux := http.NewServeMux()
	mux.HandleFunc("/setup/parse", s.handleSetupParse)
	mux.HandleFunc("/professor/setup", s.handleProfessorSetup)
	mux.HandleFunc("/professor/edit", s.handleProfessorEdit)
	mux.HandleFunc("/student/respond", s.handleStudentRespond)
	mux.HandleFunc("/simulation/state", s.handleSimulationState)
	mux.HandleFunc("/simulation/export", s.handleSimulationExport)
	mux.HandleFunc("/simulation/clear", s.handleSimulationClear)
	mux.HandleFunc("/simulations", s.handleSimulations)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving in the background.
func (s *Server) Start() error {
	log.Printf("[Server] Listening on %s", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Server] Serve error: %v", err)
		}
	}()
	return nil
}

// Shutdown drains the listener, then waits for background director ticks.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.manager.Shutdown()
	return err
}
