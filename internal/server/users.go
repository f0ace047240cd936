package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskapi/internal/apperror"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates an account and answers with the bare username.
func (s *Server) handleRegister(c *gin.Context) {
	req, ok := s.bindCredentials(c)
	if !ok {
		return
	}

	username, err := s.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusCreated, username)
}

// handleLogin verifies credentials and issues an access token.
func (s *Server) handleLogin(c *gin.Context) {
	req, ok := s.bindCredentials(c)
	if !ok {
		return
	}

	token, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "accessToken": token})
}

func (s *Server) bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	payload, ok := s.bindPayload(c)
	if !ok {
		return req, false
	}
	req.Username, _ = payload["username"].(string)
	req.Password, _ = payload["password"].(string)
	return req, true
}

// respondUserError writes the user API envelope. Storage failures surface
// their raw message.
func (s *Server) respondUserError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		c.JSON(appErr.Status, gin.H{"message": appErr.Message})
		return
	}
	s.logger.Error("user request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
}
