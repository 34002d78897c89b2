// Package server serves a deck live: the page, a small JSON API and the
// websocket that renders slides on demand.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/deckviz/internal/chart"
	"github.com/ziadkadry99/deckviz/internal/deck"
	"github.com/ziadkadry99/deckviz/internal/diagram"
	"github.com/ziadkadry99/deckviz/internal/dispatch"
	"github.com/ziadkadry99/deckviz/internal/dom"
	"github.com/ziadkadry99/deckviz/internal/gate"
	"github.com/ziadkadry99/deckviz/internal/site"
)

// Config holds server configuration.
type Config struct {
	Host     string
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	// AssetRoot is served for any path the router does not claim.
	AssetRoot string
	// EventsPerSecond limits inbound websocket events per session.
	EventsPerSecond float64
	GateInterval    time.Duration
	GateAttempts    int
	Stagger         diagram.Stagger
	Timeout         time.Duration
}

// Server is the live presentation server.
type Server struct {
	cfg    Config
	logger *zap.Logger
	router chi.Router

	mu       sync.RWMutex
	deck     *deck.Deck
	page     *dom.Document
	pageHTML []byte
	sessions map[string]*session

	httpServer *http.Server
	closed     bool
}

// New creates a server for d.
func New(cfg Config, d *deck.Deck, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.EventsPerSecond <= 0 {
		cfg.EventsPerSecond = 20
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger.Named("server"),
		sessions: make(map[string]*session),
	}
	if err := s.setDeck(d); err != nil {
		return nil, err
	}
	s.router = s.buildRouter()
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))
	r.Use(noCache)

	// The socket outlives any request timeout.
	r.Get(site.DefaultSocketPath, s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Timeout))

		r.Get("/", s.handleIndex)
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/api/slides", s.handleListSlides)
		r.Get("/api/slides/{id}/render", s.handleRenderSlide)

		if s.cfg.AssetRoot != "" {
			r.Handle("/*", http.FileServer(http.Dir(s.cfg.AssetRoot)))
		}
	})

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Deck returns the deck currently served.
func (s *Server) Deck() *deck.Deck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deck
}

// SessionCount returns the number of open websocket sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// setDeck builds the live page for d and makes it current.
func (s *Server) setDeck(d *deck.Deck) error {
	page, err := site.BuildPage(d, site.PageOptions{
		Live:   true,
		GateMs: int(s.cfg.GateInterval / time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("building page: %w", err)
	}
	html := []byte(page.String())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck = d
	s.page = page
	s.pageHTML = html
	return nil
}

// Reload swaps in a new deck. Open sessions are rebound to it and told to
// reload their page.
func (s *Server) Reload(d *deck.Deck) error {
	if err := s.setDeck(d); err != nil {
		return err
	}

	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.rebind(s.newDispatcher(sess.id))
		sess.send(message{Type: msgReload})
	}
	s.logger.Info("deck reloaded",
		zap.String("title", d.Title),
		zap.Int("slides", len(d.Slides)),
		zap.Int("sessions", len(sessions)))
	return nil
}

// newDispatcher returns a dispatcher over a private copy of the current page.
func (s *Server) newDispatcher(name string) *dispatch.Dispatcher {
	s.mu.RLock()
	d, page := s.deck, s.page
	s.mu.RUnlock()

	logger := s.logger.With(zap.String("session", name))
	return dispatch.New(d, page.Clone(),
		dispatch.WithLogger(logger),
		dispatch.WithRenderer(diagram.NewRenderer(
			diagram.WithDefaults(s.cfg.Stagger),
			diagram.WithLogger(logger),
		)),
		dispatch.WithRegistry(chart.NewRegistry(logger)),
		dispatch.WithGate(gate.New(name,
			gate.WithInterval(s.cfg.GateInterval),
			gate.WithMaxAttempts(s.cfg.GateAttempts),
			gate.WithLogger(logger),
		)),
	)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	html := s.pageHTML
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

// slideSummary is one entry of GET /api/slides.
type slideSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Fragments int      `json:"fragments,omitempty"`
	Diagrams  []string `json:"diagrams,omitempty"`
	Charts    []string `json:"charts,omitempty"`
}

func (s *Server) handleListSlides(w http.ResponseWriter, r *http.Request) {
	d := s.Deck()
	out := make([]slideSummary, 0, len(d.Slides))
	for _, sl := range d.Slides {
		sum := slideSummary{ID: sl.ID, Title: sl.Title, Fragments: sl.Fragments}
		for _, spec := range sl.Diagrams {
			sum.Diagrams = append(sum.Diagrams, spec.Container)
		}
		for _, c := range sl.Charts {
			sum.Charts = append(sum.Charts, c.Canvas)
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRenderSlide renders one slide on a throwaway copy of the page.
func (s *Server) handleRenderSlide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.Deck().Slide(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("slide %q not found", id)})
		return
	}

	disp := s.newDispatcher("api:" + id)
	rep, err := disp.Handle(r.Context(), dispatch.Event{Kind: dispatch.KindSlideChanged, SlideID: id})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Start begins listening on the configured address. It returns nil once
// Shutdown has been called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("deckviz server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes open sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
