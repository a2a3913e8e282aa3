package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/store"
)

// handleListTrades returns a session's trades, newest-first.
func (s *Server) handleListTrades(c *gin.Context) {
	userID := s.getUserID(c)
	sessionID := c.Param("id")

	trades, err := s.store.ListTrades(c.Request.Context(), userID, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session", sessionID).Msg("failed to list trades")
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch trades")
		return
	}

	successResponse(c, trades)
}

type addTradeRequest struct {
	Margin     float64          `json:"margin" binding:"required,gt=0"`
	EntrySide  string           `json:"entry_side" binding:"required,oneof=Long Short"`
	ProfitLoss float64          `json:"profit_loss"`
	Comments   string           `json:"comments"`
	Source     string           `json:"source"`
	Forex      *store.ForexLeg  `json:"forex"`
	Crypto     *store.CryptoLeg `json:"crypto"`
}

func (s *Server) handleAddTrade(c *gin.Context) {
	var req addTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid trade payload: "+err.Error())
		return
	}
	if req.Forex != nil && req.Crypto != nil {
		errorResponse(c, http.StatusBadRequest, "A trade carries either forex or crypto fields, not both")
		return
	}

	source := req.Source
	if source != store.TradeSourceExtracted {
		source = store.TradeSourceManual
	}

	trade := &store.Trade{
		SessionID:  c.Param("id"),
		Margin:     req.Margin,
		ROI:        req.ProfitLoss / req.Margin * 100,
		EntrySide:  store.EntrySide(req.EntrySide),
		ProfitLoss: req.ProfitLoss,
		Comments:   req.Comments,
		Source:     source,
		Forex:      req.Forex,
		Crypto:     req.Crypto,
	}

	userID := s.getUserID(c)
	if err := s.store.AddTrade(c.Request.Context(), userID, trade); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, "Session not found")
			return
		}
		s.logger.Error().Err(err).Str("session", trade.SessionID).Msg("failed to add trade")
		errorResponse(c, http.StatusInternalServerError, "Failed to add trade")
		return
	}

	if s.eventBus != nil {
		s.eventBus.PublishTradeCreated(userID, trade.SessionID, trade.ID)
	}
	successResponse(c, trade)
}

func (s *Server) handleUpdateTrade(c *gin.Context) {
	var patch store.TradePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid patch payload: "+err.Error())
		return
	}
	if patch.Forex != nil && patch.Crypto != nil {
		errorResponse(c, http.StatusBadRequest, "A trade carries either forex or crypto fields, not both")
		return
	}

	userID := s.getUserID(c)
	tradeID := c.Param("id")

	if err := s.store.UpdateTrade(c.Request.Context(), userID, tradeID, &patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, "Trade not found")
			return
		}
		s.logger.Error().Err(err).Str("trade", tradeID).Msg("failed to update trade")
		errorResponse(c, http.StatusInternalServerError, "Failed to update trade")
		return
	}

	if s.eventBus != nil {
		s.eventBus.PublishTradeUpdated(userID, tradeID)
	}
	successResponse(c, gin.H{"updated": tradeID})
}

func (s *Server) handleDeleteTrade(c *gin.Context) {
	userID := s.getUserID(c)
	tradeID := c.Param("id")

	if err := s.store.DeleteTrade(c.Request.Context(), userID, tradeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, "Trade not found")
			return
		}
		s.logger.Error().Err(err).Str("trade", tradeID).Msg("failed to delete trade")
		errorResponse(c, http.StatusInternalServerError, "Failed to delete trade")
		return
	}

	if s.eventBus != nil {
		s.eventBus.PublishTradeDeleted(userID, tradeID)
	}
	successResponse(c, gin.H{"deleted": tradeID})
}
