package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/assistant"
	"trade-journal/internal/store"
)

// 8 MB is plenty for a platform screenshot
const maxImageBytes = 8 << 20

// handleExtract accepts a multipart screenshot upload and returns the
// extracted trade record for the user to review before saving. Nothing is
// stored here.
func (s *Server) handleExtract(c *gin.Context) {
	if s.assistant == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Assistant is not configured")
		return
	}

	sessionType := store.SessionType(c.PostForm("session_type"))
	if sessionType != store.SessionForex && sessionType != store.SessionCrypto {
		errorResponse(c, http.StatusBadRequest, "session_type must be Forex or Crypto")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Missing image upload")
		return
	}
	if fileHeader.Size > maxImageBytes {
		errorResponse(c, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Could not read image upload")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Could not read image upload")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}

	trade, err := s.assistant.ExtractTradeFromImage(c.Request.Context(), image, mimeType, sessionType)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrCouldNotExtract):
			errorResponse(c, http.StatusUnprocessableEntity, "Could not extract trade data from the image. Please enter the trade manually.")
		case errors.Is(err, assistant.ErrQuotaExceeded):
			errorResponse(c, http.StatusTooManyRequests, "The assistant is temporarily unavailable. Please try again later.")
		default:
			s.logger.Error().Err(err).Msg("image extraction failed")
			errorResponse(c, http.StatusInternalServerError, "Failed to process the image")
		}
		return
	}

	successResponse(c, trade)
}
