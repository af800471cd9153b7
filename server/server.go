package server

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/lguibr/cacophony/actor"
	"github.com/lguibr/cacophony/game"
	"github.com/lguibr/cacophony/log"
	"github.com/lguibr/cacophony/utils"
)

// askTimeout bounds HTTP queries into the actor system.
const askTimeout = 2 * time.Second

// Server exposes the game over one listener: the websocket endpoint plus a
// small HTTP surface for health, room listing and metrics.
type Server struct {
	engine     *actor.Engine
	managerPID *actor.PID
	cfg        utils.Config
	logger     zerolog.Logger

	httpServer *http.Server
}

// New builds the server around a running engine and room manager.
func New(engine *actor.Engine, managerPID *actor.PID, cfg utils.Config) *Server {
	s := &Server{
		engine:     engine,
		managerPID: managerPID,
		cfg:        cfg,
		logger:     log.WithComponent("server"),
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.Router(),
		// net/http's own complaints go through the structured logger too.
		ErrorLog: stdlog.New(log.Base(), "", 0),
	}
	return s
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/rooms", s.handleRooms)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/subscribe", websocket.Handler(s.handleSubscribe))

	return r
}

// ListenAndServe runs the HTTP server until it fails or is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleRooms asks the manager for the live room list.
func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	response, err := s.engine.Ask(s.managerPID, game.GetRoomListRequest{}, askTimeout)
	if err != nil {
		s.logger.Error().Err(err).Msg("room list query failed")
		http.Error(w, "room list unavailable", http.StatusServiceUnavailable)
		return
	}
	list, ok := response.(game.RoomListResponse)
	if !ok {
		http.Error(w, "room list unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// handleSubscribe accepts one websocket, hands it to a fresh ConnectionActor
// and holds the handler open until the connection dies.
func (s *Server) handleSubscribe(ws *websocket.Conn) {
	conn := newWSConn(ws)
	connID := uuid.NewString()

	producer := NewConnectionActorProducer(s.engine, s.managerPID, conn, connID)
	pid := s.engine.SpawnNamed(actor.NewProps(producer), "conn")
	if pid == nil {
		_ = conn.Close()
		return
	}

	s.logger.Debug().Str("conn", connID).Msg("websocket accepted")
	<-conn.Done()
}
