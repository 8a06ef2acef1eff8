package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/api/handlers"
	"github.com/CogStack/tika-service/internal/config"
	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/core/batch"
	"github.com/CogStack/tika-service/internal/models"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, proc core.DocumentProcessor, engine *batch.Engine,
	info models.ServiceInformation, log *zap.Logger) (*Server, error) {

	processHandler := handlers.NewProcessHandler(proc, engine, &cfg.Service, log)
	infoHandler := handlers.NewInfoHandler(info)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	// Bulk runs can legitimately take the whole batch budget.
	r.Use(middleware.Timeout(cfg.Service.BatchTimeout + time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", infoHandler.Home)

	r.Route("/api", func(api chi.Router) {
		api.Get("/info", infoHandler.Info)
		api.Post("/process", processHandler.Process)
		api.Post("/process_file", processHandler.ProcessFile)
		api.Post("/process_bulk", processHandler.ProcessBulk)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Service.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}, nil
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
