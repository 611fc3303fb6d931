// ABOUTME: Server orchestrator wiring config, registry, agent backend, and transport
// ABOUTME: Manages HTTP/tsnet listeners and graceful shutdown lifecycle

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/versecraft/verse-gateway/internal/agent"
	"github.com/versecraft/verse-gateway/internal/config"
	"github.com/versecraft/verse-gateway/internal/conversation"
	"github.com/versecraft/verse-gateway/internal/persona"
	"github.com/versecraft/verse-gateway/internal/session"
	"github.com/versecraft/verse-gateway/internal/ws"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// Server orchestrates the verse-gateway components: the session registry,
// the websocket hub, and the HTTP server they hang off.
type Server struct {
	config     *config.Config
	registry   *session.Registry
	hub        *ws.Hub
	httpServer *http.Server
	logger     *slog.Logger
}

// New assembles a server from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	roster, err := loadRoster(cfg, logger)
	if err != nil {
		return nil, err
	}

	gen, err := buildGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := session.NewRegistry(gen, roster, session.Options{
		MaxRounds:    cfg.Chat.MaxRounds,
		InputTimeout: cfg.Chat.InputTimeout,
		DefaultTopic: cfg.Chat.DefaultTopic,
	}, logger)

	hub := ws.NewHub(registry, logger)
	registry.SetChannel(hub)

	s := &Server{
		config:   cfg,
		registry: registry,
		hub:      hub,
		logger:   logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.handleReady)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// loadRoster reads the participant roster, falling back to the built-in
// UserProxy + Poet pair when no file is configured.
func loadRoster(cfg *config.Config, logger *slog.Logger) (*persona.Roster, error) {
	if cfg.Chat.RosterPath == "" {
		return persona.Default(), nil
	}
	roster, err := persona.Load(cfg.Chat.RosterPath)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	logger.Info("loaded participant roster", "path", cfg.Chat.RosterPath, "participants", len(roster.Participants))
	return roster, nil
}

// buildGenerator picks the agent backend. Without an API key the server
// falls back to the scripted offline poet so it stays usable end to end.
func buildGenerator(cfg *config.Config, logger *slog.Logger) (conversation.Generator, error) {
	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		logger.Warn("no llm.api_key configured - using scripted offline poet")
		return agent.OfflinePoet(), nil
	}
	gen, err := agent.NewOpenAI(agent.Options{
		APIKey:  apiKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating llm backend: %w", err)
	}
	return gen, nil
}

// Run starts the server and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, cleanup, err := s.setupListener(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP shutdown", "error", err)
		}

		s.registry.CloseAll()
		s.hub.Close()
		return nil
	})

	return g.Wait()
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports readiness plus connected client and session counts.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d clients, %d sessions)", s.hub.ClientCount(), s.registry.Len())
}

// setupListener creates a listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, func(), error) {
	if s.config.Tailscale.Enabled {
		return s.setupTailscaleListener(ctx)
	}
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", s.config.Server.HTTPAddr, err)
	}
	return ln, func() {}, nil
}
