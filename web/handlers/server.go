package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	ds "github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"plotter/web"
)

const (
	DASHBOARD_FRAMERATE = 20
	SHUTDOWN_TIMEOUT    = 5 * time.Second
)

type Server struct {
	renderer Renderer
	logger   *zap.Logger
	handler  *http.ServeMux
}

// NewServer routes the renderer's pages. metrics is served on /metrics unless nil.
func NewServer(renderer Renderer, metrics http.Handler, logger *zap.Logger) *Server {
	s := &Server{
		renderer: renderer,
		logger:   logger,
	}

	handler := http.NewServeMux()
	handler.HandleFunc("/", s.IndexHandler)
	handler.HandleFunc("/tick", s.TickHandler)
	handler.Handle("/static/", http.FileServer(http.FS(web.Static)))
	if metrics != nil {
		handler.Handle("/metrics", metrics)
	}

	for path, uiHandler := range renderer.Handlers() {
		handler.HandleFunc(path, uiHandler)
	}

	s.handler = handler

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// IndexHandler is the main entrypoint for the UI
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	clientID := getClientID(w, r)
	err := s.renderer.Templates().ExecuteTemplate(w, "index", s.renderer.Data(clientID))
	if err != nil {
		s.logger.Error("couldn't execute template for index", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *Server) TickHandler(w http.ResponseWriter, r *http.Request) {
	clientID := getClientID(w, r)
	sse := ds.NewSSE(w, r)

	ctx := r.Context()
	ticker := time.NewTicker(time.Second / DASHBOARD_FRAMERATE)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.renderer.OnTick(sse, clientID)
			if err != nil {
				s.logger.Debug("tick stream closed", zap.String("client", clientID), zap.Error(err))
				return
			}
		}
	}
}
