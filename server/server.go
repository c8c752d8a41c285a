// Package server exposes the host over HTTP: a websocket endpoint for
// sandboxed game surfaces, spin history for the operator, and health and
// metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"slotbridge/application"
	"slotbridge/domain/interfaces"
	"slotbridge/infrastructure"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const historyDefaultLimit = 20

// Server hosts the channel endpoint and operator surface
type Server struct {
	bridge   *application.Bridge
	bus      *infrastructure.EventBus
	history  interfaces.SpinHistoryRepository
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer creates a server on the given port. history may be nil.
func NewServer(port int, bridge *application.Bridge, bus *infrastructure.EventBus, history interfaces.SpinHistoryRepository) *Server {
	s := &Server{
		bridge:  bridge,
		bus:     bus,
		history: history,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The surface is served from arbitrary origins in development
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/channel", s.handleChannel)
	r.Get("/api/history", s.handleHistory)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket sessions are long-lived
	}
	return s
}

// Start serves until the context is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": s.http.Addr}).Info("Server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleChannel upgrades the connection and serves one game session over it
func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Websocket upgrade failed")
		return
	}

	channel := infrastructure.NewWebsocketChannel(conn)
	defer channel.Close()

	session := application.NewHostSession(s.bridge, s.bus, channel)
	if err := session.Run(r.Context()); err != nil && err != context.Canceled {
		log.WithFields(log.Fields{"error": err}).Warn("Session ended with error")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "spin history is not configured", http.StatusNotFound)
		return
	}

	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := s.history.GetRecent(r.Context(), limit)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Failed to load spin history")
		http.Error(w, "failed to load spin history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Failed to encode spin history")
	}
}
