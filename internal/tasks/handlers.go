package tasks

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/domain"
)

// Handler exposes the task orchestrator over HTTP
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new tasks handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "tasks").Logger(),
	}
}

// RegisterRoutes registers all task routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analysis", h.HandleSubmitAnalysis)
	r.Get("/market_review", h.HandleSubmitMarketReview)
	r.Get("/tasks", h.HandleListTasks)
	r.Get("/task_status", h.HandleTaskStatus)
}

// HandleSubmitAnalysis handles GET /analysis?code=600519&report_type=simple
func (h *Handler) HandleSubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	reportType := domain.ReportTypeFromString(r.URL.Query().Get("report_type"))
	notify := r.URL.Query().Get("notify") == "true"

	submission, err := h.service.SubmitAnalysis(code, reportType, notify)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"message":           submission.Message,
		"code":              submission.Code,
		"task_id":           submission.TaskID,
		"report_type":       submission.ReportType,
		"send_notification": submission.SendNotification,
	})
}

// HandleSubmitMarketReview handles GET /market_review
func (h *Handler) HandleSubmitMarketReview(w http.ResponseWriter, r *http.Request) {
	submission := h.service.SubmitMarketReview()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": submission.Message,
		"task_id": submission.TaskID,
	})
}

// HandleListTasks handles GET /tasks?limit=20
func (h *Handler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	// Invalid limits fall back to the default rather than erroring
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	list := h.service.ListTasks(limit)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(list),
		"tasks":   list,
	})
}

// HandleTaskStatus handles GET /task_status?task_id=...
func (h *Handler) HandleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "missing required parameter: task_id",
		})
		return
	}

	task, ok := h.service.GetTaskStatus(taskID)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "task not found",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"task":    task,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
