// Package server implements the terminal tool server: a long-lived SSE
// event stream paired with a message-post endpoint forms a duplex channel
// per client, over which tools are discovered and invoked.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AgniRoy1234/sse-server/server/protocol"
	"github.com/AgniRoy1234/sse-server/tools"
)

const (
	// Name and Version identify the server in initialization acks.
	Name    = "terminal"
	Version = "0.1.0"
)

// Server is the HTTP server hosting the duplex tool-invocation endpoints.
type Server struct {
	logger     *zap.SugaredLogger
	listenAddr string
	registry   *tools.Registry
	info       protocol.ServerInfo
	sessions   *sessionSet

	httpServer *http.Server
	started    time.Time
}

type Option func(s *Server)

func WithListenAddr(addr string) Option {
	return func(s *Server) {
		s.listenAddr = addr
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l.Named("server").Sugar()
	}
}

func WithLogLevel(l zapcore.Level) Option {
	return func(s *Server) {
		s.logger = s.logger.WithOptions(zap.IncreaseLevel(l))
	}
}

// New constructs a server exposing the given tool registry.
func New(registry *tools.Registry, opts ...Option) (*Server, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	s := &Server{
		logger:     logger.Named("server").Sugar(),
		listenAddr: "0.0.0.0:8081",
		registry:   registry,
		info:       protocol.ServerInfo{Name: Name, Version: Version},
		sessions:   newSessionSet(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Run starts the listener and blocks until the server stops.
func (s *Server) Run() error {
	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listening TCP: %w", err)
	}

	router := httprouter.New()
	router.GET("/sse", s.handleSSE)
	router.POST("/messages/", s.handleMessages)
	router.GET("/ws", s.handleWS)
	router.GET("/healthz", s.handleHealthz)

	server := http.Server{Handler: router}
	s.httpServer = &server
	s.started = time.Now()

	s.logger.Infof("listening on %s", listener.Addr())

	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	ActiveSessions int
	UptimeSeconds  int64
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	resp := HealthResponse{
		ActiveSessions: s.sessions.len(),
		UptimeSeconds:  int64(time.Since(s.started).Seconds()),
	}
	b, err := json.Marshal(resp)
	if err != nil {
		s.logger.Debugf("error marshaling health response: %s", err)
	}
	w.Header().Add("Content-Type", "application/json")
	w.Write(b)
}

// Stop closes the listener and all active connections.
func (s *Server) Stop() error {
	return s.httpServer.Close()
}
