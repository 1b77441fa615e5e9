package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/observe"
	"github.com/Raikerian/go-interview-voice/internal/room"
)

// Room is the part of the interview room driven over HTTP.
type Room interface {
	Say(text string, opts lipsync.VoiceOptions) (*lipsync.Playback, error)
	StopSpeaking()
	StartListening(ctx context.Context) error
	StopListening() error
	Transcript() string
	Answers() []room.Answer
	Status() room.Status
}

// Server is the local control surface of the interview room.
type Server struct {
	logger         *zap.Logger
	room           Room
	hub            *Hub
	metrics        *observe.Metrics
	metricsHandler http.Handler
	address        string
	originPatterns []string

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a Server. It does not listen until Start.
func NewServer(
	logger *zap.Logger,
	r Room,
	hub *Hub,
	metrics *observe.Metrics,
	provider *observe.Provider,
	cfg *config.Config,
) *Server {
	return &Server{
		logger:         logger,
		room:           r,
		hub:            hub,
		metrics:        metrics,
		metricsHandler: provider.Handler(),
		address:        cfg.Server.Address,
		originPatterns: cfg.Server.AllowedOrigins,
	}
}

// Handler returns the routes. The WebSocket route bypasses the request
// middleware since it holds the connection open.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /speak", s.handleSpeak)
	api.HandleFunc("POST /stop", s.handleStop)
	api.HandleFunc("POST /listen/start", s.handleListenStart)
	api.HandleFunc("POST /listen/stop", s.handleListenStop)
	api.HandleFunc("GET /transcript", s.handleTranscript)
	api.HandleFunc("GET /answers", s.handleAnswers)
	api.HandleFunc("GET /status", s.handleStatus)
	api.HandleFunc("GET /healthz", s.handleHealth)
	api.Handle("GET /metrics", s.metricsHandler)

	root := http.NewServeMux()
	root.HandleFunc("GET /ws/visemes", s.handleVisemes)
	root.Handle("/", observe.Middleware(s.metrics, s.logger)(api))

	return root
}

// Start binds the configured address and serves in the background.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server listening", zap.String("address", ln.Addr().String()))

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}

// Stop disconnects viseme subscribers and drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Close()
		return nil
	})
	g.Go(func() error {
		if err := s.httpServer.Shutdown(gctx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
