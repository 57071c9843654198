// Package httpapi exposes the data-logger service over HTTP. Responses follow
// the form contract: a success flag plus a human-readable message or error.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lakmecaceres/DataLoggerWeb/internal/core"
	"github.com/lakmecaceres/DataLoggerWeb/internal/sheet"
)

// Service is the narrow contract the handlers need from the core.
type Service interface {
	Submit(ctx context.Context, sub core.Submission) error
	Download(ctx context.Context, user string) (string, []byte, error)
	NextChip(ctx context.Context, user string) (int, bool, error)
	SetNextChip(ctx context.Context, user string, next int) error
	ResetCounters(ctx context.Context) error
}

// Handler provides HTTP access to the logbook service.
type Handler struct {
	Service Service
	Logger  *zap.Logger
}

// NewHandler constructs a logbook HTTP handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Logger: logger}
}

// Register mounts the handler's routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/submit", h.handleSubmit)
	r.Get("/download", h.handleDownload)
	r.Get("/counter", h.handleGetCounter)
	r.Post("/counter", h.handleUpdateCounter)
	r.Post("/debug/reset_counter", h.handleResetCounters)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub core.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid submission payload"})
		return
	}
	if err := h.Service.Submit(r.Context(), sub); err != nil {
		h.Logger.Warn("submission rejected", zap.Error(err))
		status := http.StatusOK
		if !core.IsRejection(err) {
			status = http.StatusInternalServerError
			if errors.Is(err, core.ErrLogBusy) {
				status = http.StatusConflict
			}
		}
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Data saved successfully!"})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing user name in query parameter ?user="})
		return
	}
	filename, data, err := h.Service.Download(r.Context(), user)
	if err != nil {
		h.Logger.Error("download failed", zap.String("user", user), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func (h *Handler) handleGetCounter(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Missing user name in query parameter ?user="})
		return
	}
	next, ok, err := h.Service.NextChip(r.Context(), user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	var counter any
	if ok {
		counter = next
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "next_counter": counter})
}

type updateCounterRequest struct {
	User       string           `json:"user"`
	NewCounter *core.FlexString `json:"new_counter"`
}

func (h *Handler) handleUpdateCounter(w http.ResponseWriter, r *http.Request) {
	var req updateCounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid counter payload"})
		return
	}
	if req.NewCounter == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Invalid counter value"})
		return
	}
	next, err := strconv.Atoi(strings.TrimSpace(string(*req.NewCounter)))
	if err != nil || next < 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Invalid counter value"})
		return
	}
	if err := h.Service.SetNextChip(r.Context(), req.User, next); err != nil {
		status := http.StatusInternalServerError
		if core.IsRejection(err) {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "new_counter": next})
}

func (h *Handler) handleResetCounters(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ResetCounters(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
