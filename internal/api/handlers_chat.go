package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message         string `json:"message" binding:"required"`
	OriginalMessage string `json:"original_message"`
	SessionID       string `json:"session_id"`
}

// handleChat runs one assistant text turn. Provider failures never 5xx;
// the assistant responds with a friendly fallback instead.
func (s *Server) handleChat(c *gin.Context) {
	if s.assistant == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Assistant is not configured")
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid chat payload: "+err.Error())
		return
	}

	result, err := s.assistant.Chat(c.Request.Context(), s.getUserID(c), req.Message)
	if err != nil {
		s.logger.Error().Err(err).Msg("chat turn failed")
		errorResponse(c, http.StatusInternalServerError, "Failed to process message")
		return
	}

	successResponse(c, result)
}

// handleChatHistory returns the user's recent chat messages, newest-first.
func (s *Server) handleChatHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	messages, err := s.store.ListChatMessages(c.Request.Context(), s.getUserID(c), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list chat messages")
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch chat history")
		return
	}

	successResponse(c, messages)
}
