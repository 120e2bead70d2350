package web

import (
	"context"
	"net/http"

	"trip-agent/config"
	"trip-agent/rag"
	"trip-agent/web/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	pipeline *rag.RAG
	logger   *zap.Logger
	config   *config.Config
}

func NewServer(pipeline *rag.RAG, logger *zap.Logger, config *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		router:   router,
		pipeline: pipeline,
		logger:   logger,
		config:   config,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	retrievalHandler := handlers.NewRetrievalHandler(s.pipeline, s.logger)

	api := s.router.Group("/api")
	api.POST("/sessions", retrievalHandler.CreateSession)
	api.POST("/sessions/:id/collect", retrievalHandler.Collect)
	api.POST("/sessions/:id/retrieve", retrievalHandler.Retrieve)
	api.DELETE("/sessions/:id", retrievalHandler.DeleteSession)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}
