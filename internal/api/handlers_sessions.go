package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/store"
)

// handleListSessions returns the user's sessions, newest-created-first.
func (s *Server) handleListSessions(c *gin.Context) {
	userID := s.getUserID(c)

	sessions, err := s.store.ListSessions(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list sessions")
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch sessions")
		return
	}

	successResponse(c, sessions)
}

type createSessionRequest struct {
	Name           string  `json:"name" binding:"required"`
	InitialCapital float64 `json:"initial_capital" binding:"required,gt=0"`
	SessionType    string  `json:"session_type" binding:"required,oneof=Forex Crypto"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid session payload: "+err.Error())
		return
	}

	session := &store.TradingSession{
		UserID:         s.getUserID(c),
		Name:           req.Name,
		InitialCapital: req.InitialCapital,
		CurrentCapital: req.InitialCapital,
		SessionType:    store.SessionType(req.SessionType),
	}

	if err := s.store.CreateSession(c.Request.Context(), session); err != nil {
		s.logger.Error().Err(err).Msg("failed to create session")
		errorResponse(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	if s.eventBus != nil {
		s.eventBus.PublishSessionCreated(session.UserID, session.ID)
	}
	successResponse(c, session)
}

// handleDeleteSession removes a session; the store cascades to its trades.
func (s *Server) handleDeleteSession(c *gin.Context) {
	userID := s.getUserID(c)
	sessionID := c.Param("id")

	if err := s.store.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, "Session not found")
			return
		}
		s.logger.Error().Err(err).Str("session", sessionID).Msg("failed to delete session")
		errorResponse(c, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	if s.eventBus != nil {
		s.eventBus.PublishSessionDeleted(userID, sessionID)
	}
	successResponse(c, gin.H{"deleted": sessionID})
}

type updateCapitalRequest struct {
	CurrentCapital *float64 `json:"current_capital" binding:"required"`
}

func (s *Server) handleUpdateSessionCapital(c *gin.Context) {
	var req updateCapitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid capital payload: "+err.Error())
		return
	}

	userID := s.getUserID(c)
	sessionID := c.Param("id")

	if err := s.store.UpdateSessionCapital(c.Request.Context(), userID, sessionID, *req.CurrentCapital); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, "Session not found")
			return
		}
		s.logger.Error().Err(err).Str("session", sessionID).Msg("failed to update capital")
		errorResponse(c, http.StatusInternalServerError, "Failed to update capital")
		return
	}

	successResponse(c, gin.H{"session_id": sessionID, "current_capital": *req.CurrentCapital})
}
