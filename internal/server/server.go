// Package server wires the HTTP surface. Handlers are constructed by
// the caller so the server stays a routing shell.
package server

import (
	"net/http"

	"eventpulse/internal/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// Handlers carries the constructed handler set into the router.
type Handlers struct {
	Schedule   handler.ScheduleHandler
	Override   handler.OverrideHandler
	Webhook    handler.WebhookHandler
	Monitoring handler.MonitoringHandler
}

func NewServer(h Handlers, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}
	s.setupRoutes(h)
	return s
}

func (s *Server) setupRoutes(h Handlers) {
	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := s.router.Group("/api")
	{
		api.POST("/events/:id/schedule", h.Schedule.ScheduleEvent)
		api.POST("/events/:id/attendees/:attendeeID/schedule", h.Schedule.ScheduleAttendee)
		api.POST("/events/:id/checkin/:attendeeID", h.Schedule.CheckIn)
		api.POST("/events/:id/override", h.Override.ApplyOverride)
		api.GET("/events/:id/override", h.Override.ListOverrides)
		api.GET("/events/:id/queue-status", h.Monitoring.QueueStatus)
		api.GET("/events/:id/matches", h.Monitoring.Matches)
		api.POST("/webhooks/reply", h.Webhook.IngestReply)
	}
}

func (s *Server) Run(addr string) error {
	s.logger.Info("Server starting", zap.String("addr", addr))
	return s.router.Run(addr)
}
