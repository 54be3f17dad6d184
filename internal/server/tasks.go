package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mesada/internal/tasks"
)

type taskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	AssignedTo  *string    `json:"assigned_to"`
	Status      *string    `json:"status"`
	Points      *int64     `json:"points"`
	DueDate     *time.Time `json:"due_date"`
	Category    *string    `json:"category"`
}

// handleListTasks fetches the caller's tasks, newest first.
func (s *Server) handleListTasks(c *gin.Context) {
	list, err := s.tasks.List(c.Request.Context(), sessionFrom(c))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": list})
}

// handleCreateTask inserts a new task for the caller.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Title == nil || *req.Title == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), sessionFrom(c), tasks.CreateInput{
		Title:       *req.Title,
		Description: getString(req.Description),
		AssignedTo:  getString(req.AssignedTo),
		Status:      getString(req.Status),
		Points:      getInt(req.Points),
		DueDate:     req.DueDate,
		Category:    getString(req.Category),
	})
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask applies a partial update to a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	updates := map[string]any{}
	if req.Title != nil && *req.Title != "" {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.AssignedTo != nil {
		updates["assigned_to"] = *req.AssignedTo
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Points != nil {
		updates["points"] = *req.Points
	}
	if req.DueDate != nil {
		updates["due_date"] = req.DueDate
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}

	task, err := s.tasks.Update(c.Request.Context(), sessionFrom(c), c.Param("id"), updates)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleToggleTask advances a task through the status cycle.
func (s *Server) handleToggleTask(c *gin.Context) {
	task, err := s.tasks.Toggle(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleStats computes the dashboard counters from a fresh task list.
func (s *Server) handleStats(c *gin.Context) {
	list, err := s.tasks.List(c.Request.Context(), sessionFrom(c))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": tasks.Stats(list)})
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func getInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
