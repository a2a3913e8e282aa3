package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleMarket serves the aggregate market snapshot: cached when fresh,
// fetched otherwise. Always succeeds; unreachable providers appear as
// fallback-sourced sections.
func (s *Server) handleMarket(c *gin.Context) {
	if s.refresher == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Market data is not configured")
		return
	}

	successResponse(c, s.refresher.Snapshot(c.Request.Context()))
}
