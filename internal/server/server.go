// Package server exposes the conversation API over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Minggyul/AI-Image-Craft/internal/chat"
	"github.com/Minggyul/AI-Image-Craft/internal/config"
	"github.com/Minggyul/AI-Image-Craft/internal/logger"
	"github.com/Minggyul/AI-Image-Craft/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TurnHandler runs one conversation turn; satisfied by *agent.Agent.
type TurnHandler interface {
	HandleTurn(ctx context.Context, conversationID int, inbound chat.Message) (chat.Conversation, error)
}

// Server wires the store and the orchestrator to the HTTP routes.
type Server struct {
	store store.Store
	turns TurnHandler
}

// New creates a Server.
func New(s store.Store, turns TurnHandler) *Server {
	return &Server{store: s, turns: turns}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router builds the gin engine with all routes and middleware registered.
func (s *Server) Router(images config.ImagesConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Metrics(), cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(images.PublicPath, images.Dir)

	api := r.Group("/api")
	api.POST("/conversations", s.createConversation)
	api.GET("/conversations/:id", s.getConversation)
	api.POST("/conversations/:id/messages", s.postMessage)
	api.GET("/conversations/:id/images", s.listImages)

	return r
}

func (s *Server) createConversation(c *gin.Context) {
	conv, err := s.store.CreateConversation(nil)
	if err != nil {
		logger.L.Error("create conversation failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to create conversation"})
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) getConversation(c *gin.Context) {
	id, ok := conversationID(c)
	if !ok {
		return
	}
	conv, err := s.store.GetConversation(id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Conversation not found"})
		return
	}
	if err != nil {
		logger.L.Error("fetch conversation failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch conversation"})
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) postMessage(c *gin.Context) {
	id, ok := conversationID(c)
	if !ok {
		return
	}

	var body struct {
		Message *chat.Message `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Message == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid message format"})
		return
	}
	logger.L.Info("message received", "conversation", id, "role", body.Message.Role)

	conv, err := s.turns.HandleTurn(c.Request.Context(), id, *body.Message)
	if err != nil {
		var invalid *chat.ValidationError
		switch {
		case errors.As(err, &invalid):
			c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid message format"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Error: "Conversation not found"})
		default:
			// Upstream error text is considered safe to surface.
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) listImages(c *gin.Context) {
	id, ok := conversationID(c)
	if !ok {
		return
	}
	images, err := s.store.GetGeneratedImages(id)
	if err != nil {
		logger.L.Error("fetch images failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch images"})
		return
	}
	c.JSON(http.StatusOK, images)
}

func conversationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid conversation id"})
		return 0, false
	}
	return id, true
}
