package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	Content string `json:"content"`
}

// handleListMessages returns the caller's recent messages plus the
// connection flag the chat view renders.
func (s *Server) handleListMessages(c *gin.Context) {
	sess := sessionFrom(c)
	messages, err := s.chat.List(c.Request.Context(), sess)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"messages":   messages,
		"connection": s.chat.Connection(sess),
	})
}

// handleSendMessage posts a user message to the conversation. The bot reply
// is scheduled by the chat client and shows up on a later list call.
func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("content is required"))
		return
	}

	msg, err := s.chat.Send(c.Request.Context(), sessionFrom(c), req.Content)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"message": msg})
}

// handleConnect marks the integration connected and writes the welcome
// notification.
func (s *Server) handleConnect(c *gin.Context) {
	sess := sessionFrom(c)
	if err := s.chat.Connect(c.Request.Context(), sess); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"connection": s.chat.Connection(sess)})
}

// handleDisconnect marks the integration disconnected. History is kept.
func (s *Server) handleDisconnect(c *gin.Context) {
	sess := sessionFrom(c)
	s.chat.Disconnect(sess)
	respondSuccess(c, http.StatusOK, gin.H{"connection": s.chat.Connection(sess)})
}
