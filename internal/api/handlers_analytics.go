package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/analytics"
)

// handleAnalytics computes the aggregate metrics over every session and
// trade the user owns. Metrics are derived on demand, never stored.
func (s *Server) handleAnalytics(c *gin.Context) {
	userID := s.getUserID(c)
	ctx := c.Request.Context()

	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list sessions for analytics")
		errorResponse(c, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}

	trades, err := s.store.ListTradesForUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list trades for analytics")
		errorResponse(c, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}

	successResponse(c, analytics.Compute(sessions, trades))
}
