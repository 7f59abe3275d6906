package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "stockwatch",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleGetWatchlist handles GET /api/config/watchlist
func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	value, err := s.envFile.StockList()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to read watchlist")
		return
	}

	codes, _ := s.envFile.Codes()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"stock_list": value,
		"codes":      codes,
	})
}

type watchlistRequest struct {
	StockList string `json:"stock_list"`
}

// handleSetWatchlist handles POST /api/config/watchlist
func (s *Server) handleSetWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	normalized, err := s.envFile.SetStockList(req.StockList)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to write watchlist")
		s.writeError(w, http.StatusInternalServerError, "failed to write watchlist")
		return
	}

	s.log.Info().Str("stock_list", normalized).Msg("Watchlist updated")

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"stock_list": normalized,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
