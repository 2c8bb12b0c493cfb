// Package http - REST surface of the development server
// Serves the bulk event API the dashboard's feed fetches against
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"timelinehub/internal/protocols/stream"
	"timelinehub/internal/repository"
	"timelinehub/pkg/config"
	"timelinehub/pkg/logger"
)

// Server manages the HTTP REST API server
type Server struct {
	router *gin.Engine
	config *config.Config
	events repository.EventRepository
	hub    *stream.Hub
}

// NewServer creates a new HTTP server with all handlers
func NewServer(cfg *config.Config, events repository.EventRepository, hub *stream.Hub) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		router: router,
		config: cfg,
		events: events,
		hub:    hub,
	}

	s.setupRoutes()
	return s
}

// Router exposes the gin engine so main can attach the stream routes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}

// setupRoutes registers all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/events", s.listEvents)
		api.POST("/events", s.createEvent)
		api.GET("/events/:id", s.getEvent)
		api.PUT("/events/:id", s.updateEvent)
		api.DELETE("/events/:id", s.deleteEvent)
		api.GET("/events/:id/verify", s.verifyEvent)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"server_time": time.Now().UTC(),
	})
}

// requestLogger routes access logs through pkg/logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := int(time.Since(start).Milliseconds())
		logger.HTTP(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), latency)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
