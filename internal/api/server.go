package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
	"github.com/MikeSquared-Agency/chatsift/internal/config"
	"github.com/MikeSquared-Agency/chatsift/internal/store"
)

// ImportStore is the persistence the HTTP layer reads and writes directly.
type ImportStore interface {
	CreateImport(ctx context.Context, id uuid.UUID, sourceApp, filePath string) error
	GetImportReport(ctx context.Context, id uuid.UUID) (*store.ImportRecord, error)
}

// Processor runs a stored upload through the parser.
type Processor interface {
	Process(ctx context.Context, id uuid.UUID, sourceApp, filePath string) (*chatparse.Result, error)
}

type Server struct {
	router       *chi.Mux
	httpServer   *http.Server
	port         int
	uploadDir    string
	maxUpload    int64
	previewLimit int
	imports      ImportStore
	processor    Processor
	parser       *chatparse.Parser
	logger       *slog.Logger
}

// NewServer wires the routes. imports may be nil, in which case uploads are
// parsed without being recorded and report lookups answer 503.
func NewServer(cfg *config.Config, imports ImportStore, processor Processor, parser *chatparse.Parser, logger *slog.Logger) *Server {
	if parser == nil {
		parser = chatparse.New()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	s := &Server{
		router:       router,
		port:         cfg.Port,
		uploadDir:    cfg.UploadDir,
		maxUpload:    int64(cfg.MaxUploadMB) << 20,
		previewLimit: cfg.PreviewLimit,
		imports:      imports,
		processor:    processor,
		parser:       parser,
		logger:       logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/imports", func(r chi.Router) {
		r.Use(BearerAuth(cfg.APIToken))
		r.Post("/", s.createImport)
		r.Post("/preview", s.preview)
		r.Get("/{id}", s.getImport)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
