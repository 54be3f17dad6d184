package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mesada/internal/models"
)

type childRequest struct {
	Name   string `json:"name"`
	Age    int64  `json:"age"`
	Avatar string `json:"avatar"`
}

// handleListChildren returns the caller's children for the overview cards.
func (s *Server) handleListChildren(c *gin.Context) {
	children, err := s.store.ListChildren(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"children": children})
}

// handleCreateChild adds a child profile tasks can be assigned to.
func (s *Server) handleCreateChild(c *gin.Context) {
	var req childRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	child, err := s.store.CreateChild(c.Request.Context(), models.Child{
		UserID: sessionFrom(c).UserID,
		Name:   req.Name,
		Age:    req.Age,
		Avatar: req.Avatar,
	})
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"child": child})
}
