package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/metroverse-pipeline/internal/delivery/http/request"
	"github.com/user/metroverse-pipeline/internal/delivery/http/response"
	"github.com/user/metroverse-pipeline/internal/usecase"
)

type Handler struct {
	captures usecase.CaptureManager
	logger   *zap.Logger
}

func NewHandler(captures usecase.CaptureManager, logger *zap.Logger) *Handler {
	return &Handler{
		captures: captures,
		logger:   logger,
	}
}

func (h *Handler) HandleSubmitCapture(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.CityIDs) == 0 {
		h.writeJSONError(w, "city_ids list cannot be empty", http.StatusBadRequest)
		return
	}

	results := make([]response.QueueResult, 0, len(req.CityIDs))
	for _, cityID := range req.CityIDs {
		requestID, err := h.captures.Submit(r.Context(), cityID, req.Force)
		switch {
		case errors.Is(err, usecase.ErrRecentlyCaptured):
			results = append(results, response.QueueResult{CityID: cityID, RequestID: requestID, Status: "skipped"})
		case err != nil:
			h.logger.Error("failed to submit city for capture", zap.String("city", cityID), zap.Error(err))
			results = append(results, response.QueueResult{CityID: cityID, Status: "error"})
		default:
			results = append(results, response.QueueResult{CityID: cityID, RequestID: requestID, Status: "queued"})
		}
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitCaptureResponse{
		Status:  "accepted",
		Results: results,
	})
}

func (h *Handler) HandleCaptureStatus(w http.ResponseWriter, r *http.Request) {
	cityID := r.URL.Query().Get("city")
	if cityID == "" {
		h.writeJSONError(w, "city query parameter is required", http.StatusBadRequest)
		return
	}

	status, err := h.captures.GetStatus(r.Context(), cityID)
	if err != nil {
		h.logger.Error("failed to get capture status", zap.String("city", cityID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if status.CurrentStatus == "not_found" {
		h.writeJSONError(w, "No capture found for the given city", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, response.CaptureStatusResponse{
		CityID:        status.CityID,
		CurrentStatus: status.CurrentStatus,
		ResponseCount: status.ResponseCount,
		FailureReason: status.FailureReason,
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
