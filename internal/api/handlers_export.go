package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trade-journal/internal/export"
	"trade-journal/internal/store"
)

// handleExportSession streams a session with its trades and statistics as
// JSON (default) or as a spreadsheet (?format=xlsx).
func (s *Server) handleExportSession(c *gin.Context) {
	userID := s.getUserID(c)
	sessionID := c.Param("id")
	ctx := c.Request.Context()

	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list sessions for export")
		errorResponse(c, http.StatusInternalServerError, "Failed to export session")
		return
	}

	var session *store.TradingSession
	for _, candidate := range sessions {
		if candidate.ID == sessionID {
			session = candidate
			break
		}
	}
	if session == nil {
		errorResponse(c, http.StatusNotFound, "Session not found")
		return
	}

	trades, err := s.store.ListTrades(ctx, userID, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session", sessionID).Msg("failed to list trades for export")
		errorResponse(c, http.StatusInternalServerError, "Failed to export session")
		return
	}

	doc := export.Build(session, trades)

	switch c.DefaultQuery("format", "json") {
	case "xlsx":
		var buf bytes.Buffer
		if err := doc.WriteXLSX(&buf); err != nil {
			s.logger.Error().Err(err).Msg("spreadsheet export failed")
			errorResponse(c, http.StatusInternalServerError, "Failed to build spreadsheet")
			return
		}
		filename := fmt.Sprintf("session-%s.xlsx", sessionID)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())

	case "json":
		var buf bytes.Buffer
		if err := doc.WriteJSON(&buf); err != nil {
			s.logger.Error().Err(err).Msg("json export failed")
			errorResponse(c, http.StatusInternalServerError, "Failed to build export")
			return
		}
		filename := fmt.Sprintf("session-%s.json", sessionID)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/json", buf.Bytes())

	default:
		errorResponse(c, http.StatusBadRequest, "format must be json or xlsx")
	}
}

// handleImportSession recreates a previously exported session under the
// requesting user, trades included. Statistics are recomputed on read and
// ignored on import.
func (s *Server) handleImportSession(c *gin.Context) {
	doc, err := export.ParseJSON(c.Request.Body)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid export document: "+err.Error())
		return
	}

	userID := s.getUserID(c)
	ctx := c.Request.Context()

	session := &store.TradingSession{
		UserID:         userID,
		Name:           doc.Session.Name,
		InitialCapital: doc.Session.InitialCapital,
		CurrentCapital: doc.Session.CurrentCapital,
		SessionType:    doc.Session.SessionType,
	}
	if session.Name == "" {
		session.Name = "Imported session " + uuid.NewString()[:8]
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		s.logger.Error().Err(err).Msg("failed to create imported session")
		errorResponse(c, http.StatusInternalServerError, "Failed to import session")
		return
	}

	imported := 0
	for i := len(doc.Trades) - 1; i >= 0; i-- {
		src := doc.Trades[i]
		trade := &store.Trade{
			SessionID:  session.ID,
			Margin:     src.Margin,
			ROI:        src.ROI,
			EntrySide:  src.EntrySide,
			ProfitLoss: src.ProfitLoss,
			Comments:   src.Comments,
			Source:     src.Source,
			Forex:      src.Forex,
			Crypto:     src.Crypto,
		}
		if err := s.store.AddTrade(ctx, userID, trade); err != nil {
			s.logger.Error().Err(err).Int("imported", imported).Msg("import stopped on trade failure")
			errorResponse(c, http.StatusInternalServerError,
				fmt.Sprintf("Import failed after %d of %d trades", imported, len(doc.Trades)))
			return
		}
		imported++
	}

	if s.eventBus != nil {
		s.eventBus.PublishSessionCreated(userID, session.ID)
	}
	successResponse(c, gin.H{
		"session":  session,
		"imported": imported,
	})
}
