package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mesada/internal/auth"
	"mesada/internal/chat"
	"mesada/internal/models"
	"mesada/internal/storage/sqlite"
	"mesada/internal/tasks"
	"mesada/internal/whatsapp"
)

const sessionKey = "session"

// Server provides HTTP handlers for the family task tracker backend.
type Server struct {
	engine      *gin.Engine
	store       *sqlite.Store
	tasks       *tasks.Client
	chat        *chat.Client
	auth        *auth.Manager
	sender      *whatsapp.Sender
	logger      *slog.Logger
	staticDir   string
	verifyToken string
}

// Config carries the collaborators the server routes requests into.
type Config struct {
	Store       *sqlite.Store
	Tasks       *tasks.Client
	Chat        *chat.Client
	Auth        *auth.Manager
	Sender      *whatsapp.Sender
	Logger      *slog.Logger
	StaticDir   string
	VerifyToken string
}

// New constructs the HTTP server with routes and middleware configured.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine:      router,
		store:       cfg.Store,
		tasks:       cfg.Tasks,
		chat:        cfg.Chat,
		auth:        cfg.Auth,
		sender:      cfg.Sender,
		logger:      cfg.Logger,
		staticDir:   cfg.StaticDir,
		verifyToken: cfg.VerifyToken,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API, webhook and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)

		authed := api.Group("", s.requireSession)
		{
			authed.GET("/tasks", s.handleListTasks)
			authed.POST("/tasks", s.handleCreateTask)
			authed.PUT("/tasks/:id", s.handleUpdateTask)
			authed.POST("/tasks/:id/toggle", s.handleToggleTask)
			authed.DELETE("/tasks/:id", s.handleDeleteTask)

			authed.GET("/messages", s.handleListMessages)
			authed.POST("/messages", s.handleSendMessage)
			authed.POST("/whatsapp/connect", s.handleConnect)
			authed.POST("/whatsapp/disconnect", s.handleDisconnect)

			authed.GET("/children", s.handleListChildren)
			authed.POST("/children", s.handleCreateChild)
			authed.GET("/stats", s.handleStats)
		}
	}

	// The webhook lives outside /api: it is called by the messaging
	// provider, not by the dashboard, and carries no session.
	s.engine.Any("/webhook/whatsapp", s.handleWebhook)

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionFrom reads the session the auth middleware stored on the context.
func sessionFrom(c *gin.Context) models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(models.Session); ok {
			return sess
		}
	}
	return models.Session{}
}

// statusFor maps a store failure onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, sqlite.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
