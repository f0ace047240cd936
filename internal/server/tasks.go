package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskapi/internal/validation"
)

const msgInternal = "Internal server error"

// handleListTasks returns every task.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to fetch tasks")
		return
	}
	respondSuccess(c, http.StatusOK, "", tasks)
}

// handleGetTask returns a single task by id.
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, msgInternal)
		return
	}
	respondSuccess(c, http.StatusOK, "", task)
}

// handleCreateTask validates the body and stores a new task.
func (s *Server) handleCreateTask(c *gin.Context) {
	payload, ok := s.bindPayload(c)
	if !ok {
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), payload)
	if err != nil {
		s.respondError(c, err, msgInternal)
		return
	}
	respondSuccess(c, http.StatusCreated, "Task created successfully", task)
}

// handleUpdateTask applies a partial update to a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	payload, ok := s.bindPayload(c)
	if !ok {
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		s.respondError(c, err, msgInternal)
		return
	}
	respondSuccess(c, http.StatusOK, "Task updated successfully", task)
}

// handleAddSubTask appends a subtask to a task.
func (s *Server) handleAddSubTask(c *gin.Context) {
	payload, ok := s.bindPayload(c)
	if !ok {
		return
	}

	task, err := s.tasks.AddSubTask(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		s.respondError(c, err, msgInternal)
		return
	}
	respondSuccess(c, http.StatusOK, "Subtask added successfully", task)
}

// handleUpdateSubTask patches one subtask, addressed by body.subTask._id.
func (s *Server) handleUpdateSubTask(c *gin.Context) {
	payload, ok := s.bindPayload(c)
	if !ok {
		return
	}

	var sub validation.Payload
	if m, isObject := payload["subTask"].(map[string]any); isObject {
		sub = m
	}

	task, err := s.tasks.UpdateSubTask(c.Request.Context(), c.Param("id"), sub)
	if err != nil {
		s.respondError(c, err, msgInternal)
		return
	}
	respondSuccess(c, http.StatusOK, "Subtask updated successfully", task)
}

// handleDeleteTask removes a task and its subtasks.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err, msgInternal)
		return
	}
	respondSuccess(c, http.StatusOK, "Task deleted successfully", nil)
}
