package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"attache/internal/attachments"
	"attache/internal/logging"
)

// Config configures the HTTP API server.
type Config struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	EnableCORS   bool          `json:"enable_cors"`
	Debug        bool          `json:"debug"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server exposes an attachment collection over HTTP: the derived views as
// JSON endpoints, mutation endpoints, and the collection's events as an SSE
// stream.
type Server struct {
	collection *attachments.Collection
	engine     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer creates the HTTP server around collection.
func NewServer(collection *attachments.Collection, cfg Config) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.EnableCORS {
		engine.Use(cors.Default())
	}

	s := &Server{
		collection: collection,
		engine:     engine,
		logger:     logging.NewComponentLogger("Server"),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		// SSE connections outlive any sane write timeout.
		WriteTimeout: 0,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	attachmentHandler := NewAttachmentHandler(s.collection)
	sseHandler := NewSSEHandler(s.collection)

	api := s.engine.Group("/api")
	{
		api.GET("/attachments", attachmentHandler.List)
		api.GET("/attachments/references", attachmentHandler.References)
		api.POST("/attachments", attachmentHandler.Add)
		api.DELETE("/attachments", attachmentHandler.Remove)
		api.GET("/events", sseHandler.Stream)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"attachments": s.collection.Len(),
	})
}

// Engine returns the underlying gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving and blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
